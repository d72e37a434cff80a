package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/berrylive/live-service/pkg/database"
	"gorm.io/gorm"
)

// GiftCounts stores a gift-name -> quantity aggregate as a JSON column.
type GiftCounts map[string]int64

func (g *GiftCounts) Scan(value interface{}) error {
	if value == nil {
		*g = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	default:
		return errors.New("GiftCounts: unsupported scan type")
	}
}

func (g GiftCounts) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (GiftCounts) GormDataType() string { return "text" }

// FrameList stores owned avatar frames as a JSON column.
type FrameList []OwnedFrame

func (f *FrameList) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return errors.New("FrameList: unsupported scan type")
	}
}

func (f FrameList) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (FrameList) GormDataType() string { return "text" }

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID                string     `gorm:"type:varchar(36);primaryKey"`
	Username          string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	Diamonds          int64      `gorm:"not null;default:0"`
	Earnings          int64      `gorm:"not null;default:0"`
	EarningsWithdrawn int64      `gorm:"not null;default:0"`
	XP                int64      `gorm:"column:xp;not null;default:0"`
	Level             int        `gorm:"not null;default:1"`
	LifetimeSent      int64      `gorm:"not null;default:0"`
	LifetimeReceived  int64      `gorm:"not null;default:0"`
	ReceivedGifts     GiftCounts `gorm:"type:text"`
	OwnedFrames       FrameList  `gorm:"type:text"`
	WithdrawalKind    string     `gorm:"type:varchar(30)"`
	WithdrawalKey     string     `gorm:"type:varchar(255)"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string { return "users" }

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	u := &User{
		ID:                m.ID,
		Username:          m.Username,
		Diamonds:          m.Diamonds,
		Earnings:          m.Earnings,
		EarningsWithdrawn: m.EarningsWithdrawn,
		XP:                m.XP,
		Level:             m.Level,
		LifetimeSent:      m.LifetimeSent,
		LifetimeReceived:  m.LifetimeReceived,
		ReceivedGifts:     map[string]int64(m.ReceivedGifts),
		OwnedFrames:       []OwnedFrame(m.OwnedFrames),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.WithdrawalKind != "" {
		u.WithdrawalMethod = &WithdrawalMethod{Kind: m.WithdrawalKind, Key: m.WithdrawalKey}
	}
	return u
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	m := &UserModel{
		ID:                u.ID,
		Username:          u.Username,
		Diamonds:          u.Diamonds,
		Earnings:          u.Earnings,
		EarningsWithdrawn: u.EarningsWithdrawn,
		XP:                u.XP,
		Level:             u.Level,
		LifetimeSent:      u.LifetimeSent,
		LifetimeReceived:  u.LifetimeReceived,
		ReceivedGifts:     GiftCounts(u.ReceivedGifts),
		OwnedFrames:       FrameList(u.OwnedFrames),
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
	if u.WithdrawalMethod != nil {
		m.WithdrawalKind = u.WithdrawalMethod.Kind
		m.WithdrawalKey = u.WithdrawalMethod.Key
	}
	return m
}

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID        string               `gorm:"type:varchar(36);primaryKey"`
	HostID    string               `gorm:"type:varchar(36);index;not null"`
	Title     string               `gorm:"type:varchar(200);not null"`
	IsPrivate bool                 `gorm:"not null;default:false"`
	Tags      database.StringArray `gorm:"type:text"`
	Quality   string               `gorm:"type:varchar(20)"`
	Status    string               `gorm:"type:varchar(20);index;not null;default:'active'"`
	CreatedAt time.Time            `gorm:"autoCreateTime"`
	ClosedAt  *time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string { return "rooms" }

// ToDomain converts RoomModel to domain Room.
func (m *RoomModel) ToDomain() *Room {
	return &Room{
		ID:        m.ID,
		HostID:    m.HostID,
		Title:     m.Title,
		IsPrivate: m.IsPrivate,
		Tags:      []string(m.Tags),
		Quality:   m.Quality,
		Status:    RoomStatus(m.Status),
		CreatedAt: m.CreatedAt,
		ClosedAt:  m.ClosedAt,
	}
}

// RoomToModel converts domain Room to RoomModel.
func RoomToModel(r *Room) *RoomModel {
	return &RoomModel{
		ID:        r.ID,
		HostID:    r.HostID,
		Title:     r.Title,
		IsPrivate: r.IsPrivate,
		Tags:      database.StringArray(r.Tags),
		Quality:   r.Quality,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		ClosedAt:  r.ClosedAt,
	}
}

// LedgerModel is the GORM model for the ledger_records table.
type LedgerModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	UserID      string    `gorm:"type:varchar(36);index;not null"`
	Type        string    `gorm:"type:varchar(30);index;not null"`
	AmountBRL   int64     `gorm:"not null"`
	AmountCoins int64     `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for LedgerModel.
func (LedgerModel) TableName() string { return "ledger_records" }

// ToDomain converts LedgerModel to domain LedgerRecord.
func (m *LedgerModel) ToDomain() *LedgerRecord {
	return &LedgerRecord{
		ID:          m.ID,
		UserID:      m.UserID,
		Type:        LedgerType(m.Type),
		AmountBRL:   Centavos(m.AmountBRL),
		AmountCoins: m.AmountCoins,
		Status:      LedgerStatus(m.Status),
		CreatedAt:   m.CreatedAt,
	}
}

// LedgerToModel converts domain LedgerRecord to LedgerModel.
func LedgerToModel(r *LedgerRecord) *LedgerModel {
	return &LedgerModel{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        string(r.Type),
		AmountBRL:   int64(r.AmountBRL),
		AmountCoins: r.AmountCoins,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}

// InvitationModel is the GORM model for the invitations table.
type InvitationModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	RoomID    string    `gorm:"type:varchar(36);index;not null"`
	InviteeID string    `gorm:"type:varchar(36);index;not null"`
	Status    string    `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for InvitationModel.
func (InvitationModel) TableName() string { return "invitations" }

// ToDomain converts InvitationModel to domain Invitation.
func (m *InvitationModel) ToDomain() *Invitation {
	return &Invitation{
		ID:        m.ID,
		RoomID:    m.RoomID,
		InviteeID: m.InviteeID,
		Status:    InvitationStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

// InvitationToModel converts domain Invitation to InvitationModel.
func InvitationToModel(i *Invitation) *InvitationModel {
	return &InvitationModel{
		ID:        i.ID,
		RoomID:    i.RoomID,
		InviteeID: i.InviteeID,
		Status:    string(i.Status),
		CreatedAt: i.CreatedAt,
	}
}

// FollowModel is the GORM model for the follows table.
type FollowModel struct {
	FollowerID string    `gorm:"type:varchar(36);primaryKey"`
	FolloweeID string    `gorm:"type:varchar(36);primaryKey"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for FollowModel.
func (FollowModel) TableName() string { return "follows" }
