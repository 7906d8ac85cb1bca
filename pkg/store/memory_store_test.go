package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

func TestMemoryStorePhaseOverrideIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.SaveEvent(ctx, domain.Event{ID: "ev-1", Name: "Demo"}); err != nil {
		t.Fatalf("save event: %v", err)
	}

	msg := &domain.ChatMessage{ID: "m-1", EventID: "ev-1", Type: domain.MessageMilestone}
	changed, err := s.SetPhaseOverride(ctx, "ev-1", "max_q", msg)
	if err != nil || !changed {
		t.Fatalf("first override: changed=%v err=%v", changed, err)
	}
	changed, err = s.SetPhaseOverride(ctx, "ev-1", "max_q", &domain.ChatMessage{ID: "m-2", EventID: "ev-1"})
	if err != nil || changed {
		t.Fatalf("repeat override should be a no-op: changed=%v err=%v", changed, err)
	}
	msgs, err := s.ListChatMessages(ctx, "ev-1", nil, 10)
	if err != nil {
		t.Fatalf("list chat: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m-1" {
		t.Fatalf("expected exactly one milestone message, got %+v", msgs)
	}

	if _, err := s.SetPhaseOverride(ctx, "missing", "max_q", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreListChatMessagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = s.AppendChatMessage(ctx, domain.ChatMessage{
			ID:        fmt.Sprintf("m-%d", i),
			EventID:   "ev-1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	_ = s.AppendChatMessage(ctx, domain.ChatMessage{ID: "other", EventID: "ev-2", CreatedAt: base})

	msgs, _ := s.ListChatMessages(ctx, "ev-1", nil, 2)
	if len(msgs) != 2 || msgs[0].ID != "m-4" || msgs[1].ID != "m-3" {
		t.Fatalf("unexpected page: %+v", msgs)
	}
	before := base.Add(3 * time.Second)
	msgs, _ = s.ListChatMessages(ctx, "ev-1", &before, 10)
	if len(msgs) != 3 || msgs[0].ID != "m-2" {
		t.Fatalf("unexpected page before cursor: %+v", msgs)
	}
}

func TestMemoryStoreCountReactionsHalfOpenWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{-31 * time.Second, -30 * time.Second, -29 * time.Second, 0, time.Second} {
		_ = s.AddReaction(ctx, domain.Reaction{
			ID:        fmt.Sprintf("r-%d", i),
			EventID:   "ev-1",
			Kind:      domain.ReactionRocket,
			CreatedAt: now.Add(offset),
		})
	}
	after := now.Add(-30 * time.Second)
	counts, err := s.CountReactions(ctx, "ev-1", &after, &now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.ReactionRocket] != 2 {
		t.Fatalf("expected 2 reactions in (now-30s, now], got %d", counts[domain.ReactionRocket])
	}
	total, _ := s.CountReactions(ctx, "ev-1", nil, nil)
	if total[domain.ReactionRocket] != 5 {
		t.Fatalf("expected 5 total reactions, got %d", total[domain.ReactionRocket])
	}
}

func TestMemoryStoreCastVote(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.CreatePoll(ctx, domain.Poll{ID: "p-1", EventID: "ev-1", Options: []string{"A", "B"}, Active: true})

	poll, err := s.CastVote(ctx, domain.Vote{PollID: "p-1", UserID: "u-1", Option: 0})
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if poll.Tally[0] != 1 || poll.Tally[1] != 0 {
		t.Fatalf("unexpected tally: %v", poll.Tally)
	}
	if _, err := s.CastVote(ctx, domain.Vote{PollID: "p-1", UserID: "u-1", Option: 1}); !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected duplicate vote, got %v", err)
	}
	if _, err := s.CastVote(ctx, domain.Vote{PollID: "p-1", UserID: "u-2", Option: 2}); !errors.Is(err, ErrOptionRange) {
		t.Fatalf("expected option range error, got %v", err)
	}
	if _, err := s.SetPollActive(ctx, "p-1", false); err != nil {
		t.Fatalf("close poll: %v", err)
	}
	if _, err := s.CastVote(ctx, domain.Vote{PollID: "p-1", UserID: "u-2", Option: 1}); !errors.Is(err, ErrPollInactive) {
		t.Fatalf("expected inactive poll error, got %v", err)
	}
	poll, _, _ = s.GetPoll(ctx, "p-1")
	if poll.Tally[0] != 1 || poll.Tally[1] != 0 {
		t.Fatalf("tally changed by rejected votes: %v", poll.Tally)
	}
}

func TestMemoryStoreConcurrentVotesCountOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.CreatePoll(ctx, domain.Poll{ID: "p-1", EventID: "ev-1", Options: []string{"A", "B"}, Active: true})

	const workers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := s.CastVote(ctx, domain.Vote{PollID: "p-1", UserID: "u-1", Option: 1})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateVote):
		default:
			t.Fatalf("unexpected vote error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one accepted vote, got %d", ok)
	}
	poll, _, _ := s.GetPoll(ctx, "p-1")
	if poll.Tally[1] != 1 {
		t.Fatalf("expected tally 1, got %v", poll.Tally)
	}
}

func TestMemoryStoreListTrackedEvents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	in := now.Add(time.Hour)
	out := now.Add(48 * time.Hour)
	_ = s.SaveEvent(ctx, domain.Event{ID: "in", ScheduledAt: &in})
	_ = s.SaveEvent(ctx, domain.Event{ID: "out", ScheduledAt: &out})
	_ = s.SaveEvent(ctx, domain.Event{ID: "live", Live: true})

	events, err := s.ListTrackedEvents(ctx, now.Add(-24*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].ID != "in" || events[1].ID != "live" {
		t.Fatalf("unexpected tracked events: %+v", events)
	}
}
