package app

import (
	"context"
	"math"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/mission"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/telemetry"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/tracker"
)

// Telemetry is only meaningful inside these mission-time windows.
const (
	statusTelemetryStart int64 = -10
	statusTelemetryEnd   int64 = 7200
	seriesStart                = mission.CatalogStart
	seriesEnd                  = mission.CatalogEnd
)

const (
	defaultSeriesLimit = 60
	maxSeriesLimit     = 600
	defaultSeriesSpan  = 5 * time.Minute
)

// EventStatus is the derived live view of one event. When Applicable is
// false the event has no firm launch time and every derived field is empty.
type EventStatus struct {
	Event                domain.Event      `json:"event"`
	Applicable           bool              `json:"applicable"`
	MissionTime          *int64            `json:"missionTime"`
	FormattedMissionTime string            `json:"formattedMissionTime,omitempty"`
	Phase                *mission.Phase    `json:"phase"`
	PhaseOverridden      bool              `json:"phaseOverridden"`
	Telemetry            *telemetry.Sample `json:"telemetry"`
	AsOf                 time.Time         `json:"asOf"`
}

// EventStatus derives clock, phase and telemetry for an event at now.
func (a *App) EventStatus(ctx context.Context, eventID string, now time.Time) (EventStatus, error) {
	e, err := a.loadEvent(ctx, eventID)
	if err != nil {
		return EventStatus{}, err
	}
	return deriveStatus(e, now), nil
}

func deriveStatus(e domain.Event, now time.Time) EventStatus {
	out := EventStatus{Event: e, AsOf: now.UTC()}
	clock, ok := mission.ClockAt(now, e.ScheduledAt)
	if !ok {
		return out
	}
	seconds := clock.Seconds
	out.Applicable = true
	out.MissionTime = &seconds
	out.FormattedMissionTime = clock.Label
	if p, ok := mission.ResolvePhase(seconds, e.ManualPhase); ok {
		out.Phase = &p
		out.PhaseOverridden = e.ManualPhase != "" && p.ID == e.ManualPhase
	}
	if seconds >= statusTelemetryStart && seconds <= statusTelemetryEnd {
		sample := telemetry.SampleAt(float64(seconds), e.Vehicle)
		out.Telemetry = &sample
	}
	return out
}

// TelemetrySeries is an evenly spaced run of samples ending at the current
// mission second.
type TelemetrySeries struct {
	EventID string             `json:"eventId"`
	Vehicle string             `json:"vehicle"`
	Step    int64              `json:"stepSeconds"`
	Samples []telemetry.Sample `json:"samples"`
}

// TelemetrySeries returns at most limit samples covering [since, now],
// clipped to the telemetry window. since defaults to five minutes ago.
func (a *App) TelemetrySeries(ctx context.Context, eventID string, since *time.Time, limit int, now time.Time) (TelemetrySeries, error) {
	switch {
	case limit < 0:
		return TelemetrySeries{}, invalidf("limit must not be negative")
	case limit == 0:
		limit = defaultSeriesLimit
	case limit > maxSeriesLimit:
		limit = maxSeriesLimit
	}
	start := now.Add(-defaultSeriesSpan)
	if since != nil {
		if since.After(now) {
			return TelemetrySeries{}, invalidf("since must not be in the future")
		}
		start = *since
	}
	e, err := a.loadEvent(ctx, eventID)
	if err != nil {
		return TelemetrySeries{}, err
	}
	profile, _ := telemetry.LookupProfile(e.Vehicle)
	out := TelemetrySeries{EventID: e.ID, Vehicle: profile.ID, Samples: []telemetry.Sample{}}
	if e.ScheduledAt == nil || e.ScheduledAt.IsZero() {
		return out, nil
	}

	from := max(mission.Elapsed(start, *e.ScheduledAt), seriesStart)
	to := min(mission.Elapsed(now, *e.ScheduledAt), seriesEnd)
	if from > to {
		return out, nil
	}
	step, count := seriesCadence(to-from, limit)
	first := to - step*(count-1)
	samples, err := telemetry.SampleRange(float64(first), float64(to), float64(step), e.Vehicle)
	if err != nil {
		return TelemetrySeries{}, invalidf("%v", err)
	}
	out.Step = step
	out.Samples = samples
	return out, nil
}

// seriesCadence picks the smallest whole-second step that fits span into
// limit samples, and the resulting sample count.
func seriesCadence(span int64, limit int) (step, count int64) {
	if limit <= 1 || span == 0 {
		return 1, 1
	}
	step = int64(math.Ceil(float64(span) / float64(limit-1)))
	if step < 1 {
		step = 1
	}
	return step, span/step + 1
}

// Dashboard is the bucketed view of tracked events.
type Dashboard struct {
	tracker.Buckets
	LiveStatus []EventStatus `json:"liveStatus"`
	AsOf       time.Time     `json:"asOf"`
}

// Dashboard classifies tracked events at now. Live events also carry their
// derived status.
func (a *App) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	w := a.buckets.Normalized()
	events, err := a.store.ListTrackedEvents(ctx, now.Add(-w.Recent), now.Add(w.Upcoming))
	if err != nil {
		return Dashboard{}, err
	}
	buckets := tracker.Classify(now, events, w)
	live := make([]EventStatus, 0, len(buckets.Live))
	for _, e := range buckets.Live {
		live = append(live, deriveStatus(e, now))
	}
	return Dashboard{Buckets: buckets, LiveStatus: live, AsOf: now.UTC()}, nil
}
