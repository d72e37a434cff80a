package service

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockStripes = 64

// UserLocks serializes balance mutations per user on top of the
// repository's own transaction. Stripes are acquired in index order so a
// gift that locks both sender and receiver cannot deadlock against the
// reverse gift.
type UserLocks struct {
	stripes [lockStripes]sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{}
}

func (l *UserLocks) stripeFor(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % lockStripes)
}

// lock acquires the stripes covering the given users and returns the
// matching unlock. Duplicate stripes are acquired once.
func (l *UserLocks) lock(userIDs ...string) func() {
	seen := make(map[int]struct{}, len(userIDs))
	indexes := make([]int, 0, len(userIDs))
	for _, id := range userIDs {
		idx := l.stripeFor(id)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		l.stripes[idx].Lock()
	}
	return func() {
		for i := len(indexes) - 1; i >= 0; i-- {
			l.stripes[indexes[i]].Unlock()
		}
	}
}
