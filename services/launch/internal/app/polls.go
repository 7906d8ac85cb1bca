package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackosaurus2014/spacehub-sub018/internal/util"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/store"
)

const (
	minPollOptions     = 2
	maxPollOptions     = 6
	maxQuestionRunes   = 200
	maxPollOptionRunes = 100
)

type PollInput struct {
	EventID  string
	Question string
	Options  []string
	// Active defaults to true.
	Active *bool
}

type VoteInput struct {
	Option int
}

// CreatePoll opens a poll on an event. Operators only.
func (a *App) CreatePoll(ctx context.Context, user domain.User, in PollInput) (domain.Poll, error) {
	if !user.Role.CanOperate() {
		return domain.Poll{}, ErrForbidden
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return domain.Poll{}, invalidf("question required")
	}
	if utf8.RuneCountInString(question) > maxQuestionRunes {
		return domain.Poll{}, invalidf("question longer than %d characters", maxQuestionRunes)
	}
	options, err := cleanOptions(in.Options)
	if err != nil {
		return domain.Poll{}, err
	}
	e, err := a.loadEvent(ctx, in.EventID)
	if err != nil {
		return domain.Poll{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := a.Now()
	p := domain.Poll{
		ID:        util.NewID(),
		EventID:   e.ID,
		Question:  question,
		Options:   options,
		Active:    active,
		Tally:     map[int]int{},
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreatePoll(ctx, p); err != nil {
		return domain.Poll{}, fmt.Errorf("create poll: %w", err)
	}
	return p, nil
}

func cleanOptions(raw []string) ([]string, error) {
	if len(raw) < minPollOptions || len(raw) > maxPollOptions {
		return nil, invalidf("poll needs %d to %d options, got %d", minPollOptions, maxPollOptions, len(raw))
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for i, o := range raw {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, invalidf("option %d is empty", i)
		}
		if utf8.RuneCountInString(o) > maxPollOptionRunes {
			return nil, invalidf("option %d longer than %d characters", i, maxPollOptionRunes)
		}
		key := strings.ToLower(o)
		if _, dup := seen[key]; dup {
			return nil, invalidf("option %q repeated", o)
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}
	return out, nil
}

// SetPollActive opens or closes voting. Operators only.
func (a *App) SetPollActive(ctx context.Context, user domain.User, pollID string, active bool) (domain.Poll, error) {
	if !user.Role.CanOperate() {
		return domain.Poll{}, ErrForbidden
	}
	p, err := a.store.SetPollActive(ctx, pollID, active)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Poll{}, ErrPollNotFound
	}
	if err != nil {
		return domain.Poll{}, fmt.Errorf("set poll active: %w", err)
	}
	return p, nil
}

func (a *App) GetPoll(ctx context.Context, pollID string) (domain.Poll, error) {
	p, ok, err := a.store.GetPoll(ctx, pollID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("get poll: %w", err)
	}
	if !ok {
		return domain.Poll{}, ErrPollNotFound
	}
	return p, nil
}

func (a *App) ListPolls(ctx context.Context, eventID string) ([]domain.Poll, error) {
	e, err := a.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	polls, err := a.store.ListPolls(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

// CastVote records the user's single vote and returns the updated poll.
// A second vote by the same user is a conflict and leaves the tally as is.
func (a *App) CastVote(ctx context.Context, user domain.User, pollID string, in VoteInput) (domain.Poll, error) {
	if user.ID == "" {
		return domain.Poll{}, invalidf("user required")
	}
	if pollID == "" {
		return domain.Poll{}, invalidf("poll id required")
	}
	if in.Option < 0 {
		return domain.Poll{}, invalidf("option %d out of range", in.Option)
	}
	p, err := a.store.CastVote(ctx, domain.Vote{
		PollID:    pollID,
		UserID:    user.ID,
		Option:    in.Option,
		CreatedAt: a.Now(),
	})
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.Poll{}, ErrPollNotFound
	case errors.Is(err, store.ErrDuplicateVote):
		return domain.Poll{}, fmt.Errorf("%w: already voted in this poll", ErrConflict)
	case errors.Is(err, store.ErrPollInactive):
		return domain.Poll{}, invalidf("poll is not active")
	case errors.Is(err, store.ErrOptionRange):
		return domain.Poll{}, invalidf("option %d out of range", in.Option)
	default:
		return domain.Poll{}, fmt.Errorf("cast vote: %w", err)
	}
}
