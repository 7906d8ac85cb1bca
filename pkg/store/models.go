package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type EventModel struct {
	ID          string     `gorm:"primaryKey"`
	Name        string     `gorm:"not null"`
	ScheduledAt *time.Time `gorm:"index"`
	Vehicle     string
	Status      string    `gorm:"not null"`
	Live        bool      `gorm:"not null;default:false;index"`
	ManualPhase string    `gorm:"not null;default:''"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID          string    `gorm:"primaryKey"`
	EventID     string    `gorm:"not null;index:idx_chat_event_created,priority:1"`
	UserID      string    `gorm:"not null"`
	DisplayName string    `gorm:"not null"`
	Body        string    `gorm:"type:text;not null"`
	Type        string    `gorm:"not null"`
	PhaseID     string
	CreatedAt   time.Time `gorm:"not null;index:idx_chat_event_created,priority:2"`
}

type ReactionModel struct {
	ID        string    `gorm:"primaryKey"`
	EventID   string    `gorm:"not null;index:idx_reaction_event_created,priority:1"`
	UserID    string    `gorm:"not null"`
	Kind      string    `gorm:"not null"`
	PhaseID   string
	CreatedAt time.Time `gorm:"not null;index:idx_reaction_event_created,priority:2"`
}

type PollModel struct {
	ID        string                          `gorm:"primaryKey"`
	EventID   string                          `gorm:"not null;index"`
	Question  string                          `gorm:"not null"`
	Options   datatypes.JSONSlice[string]     `gorm:"type:jsonb;not null"`
	Active    bool                            `gorm:"not null"`
	Tally     datatypes.JSONType[map[int]int] `gorm:"type:jsonb;not null"`
	CreatedBy string                          `gorm:"not null"`
	CreatedAt time.Time                       `gorm:"not null"`
	UpdatedAt time.Time                       `gorm:"not null"`
}

// VoteModel's composite key is what enforces one vote per user per poll.
type VoteModel struct {
	PollID    string    `gorm:"primaryKey"`
	UserID    string    `gorm:"primaryKey"`
	Option    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
