package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackosaurus2014/spacehub-sub018/internal/ratelimit"
	"github.com/jackosaurus2014/spacehub-sub018/internal/util"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/mission"
)

// ReactionInput is one emoji reaction. An empty PhaseID is filled with the
// event's current phase when one applies.
type ReactionInput struct {
	EventID string
	Kind    domain.ReactionKind
	PhaseID string
}

// PostReaction records a reaction and returns the refreshed summary.
func (a *App) PostReaction(ctx context.Context, user domain.User, in ReactionInput) (domain.ReactionSummary, error) {
	kind := domain.ReactionKind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	if !kind.Valid() {
		return domain.ReactionSummary{}, invalidf("unknown reaction %q", in.Kind)
	}
	phaseID := strings.TrimSpace(in.PhaseID)
	if phaseID != "" {
		if _, ok := mission.LookupPhase(phaseID); !ok {
			return domain.ReactionSummary{}, invalidf("unknown phase %q", phaseID)
		}
	}
	if user.ID == "" {
		return domain.ReactionSummary{}, invalidf("user required")
	}
	e, err := a.loadEvent(ctx, in.EventID)
	if err != nil {
		return domain.ReactionSummary{}, err
	}
	now := a.Now()
	if phaseID == "" {
		phaseID = currentPhaseID(e, now)
	}

	key := ratelimit.Key("reaction", e.ID, user.ID)
	if err := acquire(ctx, a.reactionLimiter, key); err != nil {
		return domain.ReactionSummary{}, err
	}
	r := domain.Reaction{
		ID:        util.NewID(),
		EventID:   e.ID,
		UserID:    user.ID,
		Kind:      kind,
		PhaseID:   phaseID,
		CreatedAt: now,
	}
	if err := a.store.AddReaction(ctx, r); err != nil {
		release(ctx, a.reactionLimiter, key)
		return domain.ReactionSummary{}, fmt.Errorf("add reaction: %w", err)
	}
	return a.summarize(ctx, e.ID, now)
}

// currentPhaseID is the phase a reaction is attributed to when the client
// sends none. Events without a firm time only have their manual phase.
func currentPhaseID(e domain.Event, now time.Time) string {
	if clock, ok := mission.ClockAt(now, e.ScheduledAt); ok {
		if p, ok := mission.ResolvePhase(clock.Seconds, e.ManualPhase); ok {
			return p.ID
		}
		return ""
	}
	if p, ok := mission.LookupPhase(e.ManualPhase); ok {
		return p.ID
	}
	return ""
}

// ReactionSummary returns per-kind counts over the rolling window ending at
// now, plus all-time totals. Both are recomputed on every call.
func (a *App) ReactionSummary(ctx context.Context, eventID string, now time.Time) (domain.ReactionSummary, error) {
	e, err := a.loadEvent(ctx, eventID)
	if err != nil {
		return domain.ReactionSummary{}, err
	}
	return a.summarize(ctx, e.ID, now)
}

func (a *App) summarize(ctx context.Context, eventID string, now time.Time) (domain.ReactionSummary, error) {
	after := now.Add(-a.reactionWindow)
	var recent, total map[domain.ReactionKind]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = a.store.CountReactions(gctx, eventID, &after, &now)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = a.store.CountReactions(gctx, eventID, nil, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ReactionSummary{}, fmt.Errorf("count reactions: %w", err)
	}

	counts := make([]domain.ReactionCount, 0, len(domain.ReactionKinds))
	for _, kind := range domain.ReactionKinds {
		counts = append(counts, domain.ReactionCount{
			Kind:   kind,
			Emoji:  kind.Emoji(),
			Recent: recent[kind],
			Total:  total[kind],
		})
	}
	return domain.ReactionSummary{
		EventID: eventID,
		Window:  a.reactionWindow.String(),
		Counts:  counts,
		AsOf:    now.UTC(),
	}, nil
}
