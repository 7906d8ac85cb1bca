package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

var (
	// ErrNotFound is returned by mutations that target a missing row.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateVote is returned when a user already voted in a poll.
	ErrDuplicateVote = errors.New("store: duplicate vote")
	ErrPollInactive  = errors.New("store: poll is not active")
	ErrOptionRange   = errors.New("store: option index out of range")
)

// Store defines persistence for tracked events and their audience activity.
// Get* methods report absence with a false flag rather than an error.
type Store interface {
	// events
	SaveEvent(ctx context.Context, e domain.Event) error
	GetEvent(ctx context.Context, id string) (domain.Event, bool, error)
	// ListTrackedEvents returns live events plus events scheduled in [from, to].
	ListTrackedEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error)
	// SetPhaseOverride sets the manual phase when it differs from the stored
	// one and reports whether it changed. When it changed and milestone is
	// non-nil, the message is appended in the same transaction.
	SetPhaseOverride(ctx context.Context, eventID, phaseID string, milestone *domain.ChatMessage) (bool, error)
	SetLive(ctx context.Context, eventID string, live bool) error

	// chat
	AppendChatMessage(ctx context.Context, msg domain.ChatMessage) error
	// ListChatMessages returns up to limit messages created strictly before
	// before (when set), newest first.
	ListChatMessages(ctx context.Context, eventID string, before *time.Time, limit int) ([]domain.ChatMessage, error)

	// reactions
	AddReaction(ctx context.Context, r domain.Reaction) error
	// CountReactions counts reactions per kind created in (after, until].
	// A nil bound is open.
	CountReactions(ctx context.Context, eventID string, after, until *time.Time) (map[domain.ReactionKind]int, error)

	// polls
	CreatePoll(ctx context.Context, p domain.Poll) error
	GetPoll(ctx context.Context, id string) (domain.Poll, bool, error)
	ListPolls(ctx context.Context, eventID string) ([]domain.Poll, error)
	SetPollActive(ctx context.Context, id string, active bool) (domain.Poll, error)
	// CastVote records the vote and bumps the option tally atomically,
	// returning the updated poll.
	CastVote(ctx context.Context, v domain.Vote) (domain.Poll, error)
}

func checkVote(p domain.Poll, v domain.Vote) error {
	if !p.Active {
		return ErrPollInactive
	}
	if v.Option < 0 || v.Option >= len(p.Options) {
		return ErrOptionRange
	}
	return nil
}

func copyTally(t map[int]int) map[int]int {
	out := make(map[int]int, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
