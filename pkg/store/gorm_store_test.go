package store

import (
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

func TestEventModelRoundTripNormalizesSchedule(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	at := time.Date(2026, 5, 1, 13, 0, 0, 0, loc)
	e := domain.Event{ID: "ev-1", Name: "Demo", ScheduledAt: &at, Vehicle: "Falcon 9", Status: domain.EventGo, ManualPhase: "max_q"}

	got := eventFromModel(eventToModel(e))
	if got.ScheduledAt == nil || !got.ScheduledAt.Equal(at) || got.ScheduledAt.Location() != time.UTC {
		t.Fatalf("unexpected schedule: %v", got.ScheduledAt)
	}
	if got.Status != domain.EventGo || got.ManualPhase != "max_q" {
		t.Fatalf("unexpected event: %+v", got)
	}

	zero := time.Time{}
	e.ScheduledAt = &zero
	if got := eventToModel(e); got.ScheduledAt != nil {
		t.Fatalf("zero schedule should be stored as null")
	}
}

func TestPollModelTallyIsIndependentCopy(t *testing.T) {
	p := domain.Poll{ID: "p-1", Options: []string{"A", "B"}, Active: true}
	model := pollToModel(p)
	if model.Tally.Data() == nil {
		t.Fatalf("expected non-nil tally")
	}

	model.Tally = datatypes.NewJSONType(map[int]int{1: 3})
	got := pollFromModel(model)
	got.Tally[1]++
	if model.Tally.Data()[1] != 3 {
		t.Fatalf("domain tally aliases model tally")
	}
	if len(got.Options) != 2 || got.Options[1] != "B" {
		t.Fatalf("unexpected options: %v", got.Options)
	}
}
