package signaling

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// MediaSource supplies the local tracks a broker attaches before
// negotiating. Release frees whatever the source holds; the broker calls
// it exactly once on every terminal path.
type MediaSource interface {
	Tracks() ([]webrtc.TrackLocal, error)
	Release()
}

// StaticSource is a MediaSource over pre-built sample tracks, one video
// and one audio.
type StaticSource struct {
	mu       sync.Mutex
	video    *webrtc.TrackLocalStaticSample
	audio    *webrtc.TrackLocalStaticSample
	released bool
}

// NewStaticSource builds VP8 video and Opus audio tracks for one stream.
func NewStaticSource(streamID string) (*StaticSource, error) {
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video", streamID,
	)
	if err != nil {
		return nil, err
	}

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", streamID,
	)
	if err != nil {
		return nil, err
	}

	return &StaticSource{video: video, audio: audio}, nil
}

func (s *StaticSource) Tracks() ([]webrtc.TrackLocal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, webrtc.ErrConnectionClosed
	}
	return []webrtc.TrackLocal{s.video, s.audio}, nil
}

// VideoTrack exposes the video track for sample writers.
func (s *StaticSource) VideoTrack() *webrtc.TrackLocalStaticSample { return s.video }

// AudioTrack exposes the audio track for sample writers.
func (s *StaticSource) AudioTrack() *webrtc.TrackLocalStaticSample { return s.audio }

func (s *StaticSource) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// Released reports whether Release has been called.
func (s *StaticSource) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
