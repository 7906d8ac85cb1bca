package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackosaurus2014/spacehub-sub018/internal/util"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/mission"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/store"
)

const (
	systemUserID      = "system"
	systemDisplayName = "Mission Control"
)

// ControlInput changes operator-owned event fields. Nil fields are left
// untouched; an empty Phase clears the override.
type ControlInput struct {
	EventID string
	Phase   *string
	Live    *bool
}

type ControlResult struct {
	Event        domain.Event        `json:"event"`
	PhaseChanged bool                `json:"phaseChanged"`
	Milestone    *domain.ChatMessage `json:"milestone,omitempty"`
}

// SetEventControl applies a manual phase override and/or the live flag.
// Setting a new phase appends one milestone chat message and publishes a
// milestone notification; repeating the current override does neither.
func (a *App) SetEventControl(ctx context.Context, user domain.User, in ControlInput) (ControlResult, error) {
	if !user.Role.CanOperate() {
		return ControlResult{}, ErrForbidden
	}
	if in.Phase == nil && in.Live == nil {
		return ControlResult{}, invalidf("nothing to change")
	}
	var phase mission.Phase
	if in.Phase != nil {
		id := strings.TrimSpace(*in.Phase)
		if id != "" {
			p, ok := mission.LookupPhase(id)
			if !ok {
				return ControlResult{}, invalidf("unknown phase %q", id)
			}
			phase = p
		}
	}
	e, err := a.loadEvent(ctx, in.EventID)
	if err != nil {
		return ControlResult{}, err
	}

	var res ControlResult
	if in.Phase != nil {
		var msg *domain.ChatMessage
		if phase.ID != "" {
			msg = &domain.ChatMessage{
				ID:          util.NewID(),
				EventID:     e.ID,
				UserID:      systemUserID,
				DisplayName: systemDisplayName,
				Body:        milestoneBody(phase),
				Type:        domain.MessageMilestone,
				PhaseID:     phase.ID,
				CreatedAt:   a.Now(),
			}
		}
		changed, err := a.store.SetPhaseOverride(ctx, e.ID, phase.ID, msg)
		if errors.Is(err, store.ErrNotFound) {
			return ControlResult{}, ErrEventNotFound
		}
		if err != nil {
			return ControlResult{}, fmt.Errorf("set phase override: %w", err)
		}
		res.PhaseChanged = changed
		if changed && msg != nil {
			res.Milestone = msg
			a.publishMilestone(ctx, e, phase, msg, user)
		}
	}
	if in.Live != nil {
		err := a.store.SetLive(ctx, e.ID, *in.Live)
		if errors.Is(err, store.ErrNotFound) {
			return ControlResult{}, ErrEventNotFound
		}
		if err != nil {
			return ControlResult{}, fmt.Errorf("set live: %w", err)
		}
	}
	res.Event, err = a.loadEvent(ctx, e.ID)
	if err != nil {
		return ControlResult{}, err
	}
	return res, nil
}

func milestoneBody(p mission.Phase) string {
	return fmt.Sprintf("%s %s: %s", p.Icon, p.Name, p.Description)
}

// publishMilestone is best effort; the chat message is already durable.
func (a *App) publishMilestone(ctx context.Context, e domain.Event, p mission.Phase, msg *domain.ChatMessage, operator domain.User) {
	m := domain.Milestone{
		EventID:    e.ID,
		EventName:  e.Name,
		PhaseID:    p.ID,
		PhaseName:  p.Name,
		MessageID:  msg.ID,
		OperatorID: operator.ID,
		At:         msg.CreatedAt,
	}
	if err := a.notifier.PublishMilestone(ctx, m); err != nil {
		util.LoggerFromContext(ctx).Warn("milestone publish failed", "event_id", e.ID, "phase", p.ID, "err", err)
	}
}
