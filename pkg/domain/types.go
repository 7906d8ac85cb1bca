package domain

import "time"

type EventStatus string

const (
	EventUpcoming   EventStatus = "upcoming"
	EventGo         EventStatus = "go"
	EventTBC        EventStatus = "tbc"
	EventTBD        EventStatus = "tbd"
	EventInProgress EventStatus = "in_progress"
	EventCompleted  EventStatus = "completed"
	EventSuccess    EventStatus = "success"
	EventFailure    EventStatus = "failure"
	EventHold       EventStatus = "hold"
	EventScrubbed   EventStatus = "scrubbed"
)

type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleOperator UserRole = "operator"
	RoleAdmin    UserRole = "admin"
)

// CanOperate reports whether the role may mutate event controls and polls.
func (r UserRole) CanOperate() bool {
	return r == RoleOperator || r == RoleAdmin
}

// User is the authenticated caller resolved from a session token.
type User struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Role        UserRole `json:"role"`
}

// Event is a trackable launch or space event.
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ScheduledAt *time.Time  `json:"scheduledAt"`
	Vehicle     string      `json:"vehicle"`
	Status      EventStatus `json:"status"`
	Live        bool        `json:"live"`
	ManualPhase string      `json:"manualPhase,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type MessageType string

const (
	MessageChat      MessageType = "chat"
	MessageMilestone MessageType = "milestone"
)

type ChatMessage struct {
	ID          string      `json:"id"`
	EventID     string      `json:"eventId"`
	UserID      string      `json:"userId"`
	DisplayName string      `json:"displayName"`
	Body        string      `json:"body"`
	Type        MessageType `json:"type"`
	PhaseID     string      `json:"phaseId,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type ReactionKind string

const (
	ReactionRocket ReactionKind = "rocket"
	ReactionFire   ReactionKind = "fire"
	ReactionClap   ReactionKind = "clap"
	ReactionHeart  ReactionKind = "heart"
	ReactionWow    ReactionKind = "wow"
	ReactionPray   ReactionKind = "pray"
)

// ReactionKinds is the closed set of accepted reactions, in display order.
var ReactionKinds = []ReactionKind{
	ReactionRocket,
	ReactionFire,
	ReactionClap,
	ReactionHeart,
	ReactionWow,
	ReactionPray,
}

var reactionEmoji = map[ReactionKind]string{
	ReactionRocket: "🚀",
	ReactionFire:   "🔥",
	ReactionClap:   "👏",
	ReactionHeart:  "❤️",
	ReactionWow:    "😮",
	ReactionPray:   "🙏",
}

// Valid reports whether k belongs to the closed reaction set.
func (k ReactionKind) Valid() bool {
	_, ok := reactionEmoji[k]
	return ok
}

// Emoji returns the glyph rendered for k.
func (k ReactionKind) Emoji() string {
	return reactionEmoji[k]
}

type Reaction struct {
	ID        string       `json:"id"`
	EventID   string       `json:"eventId"`
	UserID    string       `json:"userId"`
	Kind      ReactionKind `json:"kind"`
	PhaseID   string       `json:"phaseId,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ReactionCount is the aggregate for one reaction kind.
type ReactionCount struct {
	Kind   ReactionKind `json:"kind"`
	Emoji  string       `json:"emoji"`
	Recent int          `json:"recent"`
	Total  int          `json:"total"`
}

type ReactionSummary struct {
	EventID string          `json:"eventId"`
	Window  string          `json:"window"`
	Counts  []ReactionCount `json:"counts"`
	AsOf    time.Time       `json:"asOf"`
}

type Poll struct {
	ID        string      `json:"id"`
	EventID   string      `json:"eventId"`
	Question  string      `json:"question"`
	Options   []string    `json:"options"`
	Active    bool        `json:"active"`
	Tally     map[int]int `json:"tally"`
	CreatedBy string      `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Vote struct {
	PollID    string    `json:"pollId"`
	UserID    string    `json:"userId"`
	Option    int       `json:"option"`
	CreatedAt time.Time `json:"createdAt"`
}

// Milestone is published when an operator moves an event to a new phase.
type Milestone struct {
	EventID    string    `json:"eventId"`
	EventName  string    `json:"eventName"`
	PhaseID    string    `json:"phaseId"`
	PhaseName  string    `json:"phaseName"`
	MessageID  string    `json:"messageId"`
	OperatorID string    `json:"operatorId"`
	At         time.Time `json:"at"`
}
