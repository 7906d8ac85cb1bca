package tracker

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

var allStatuses = []domain.EventStatus{
	domain.EventUpcoming, domain.EventGo, domain.EventTBC, domain.EventTBD,
	domain.EventInProgress, domain.EventCompleted, domain.EventSuccess,
	domain.EventFailure, domain.EventHold, domain.EventScrubbed,
}

func event(id string, now time.Time, offset time.Duration, status domain.EventStatus) domain.Event {
	at := now.Add(offset)
	return domain.Event{ID: id, Name: id, ScheduledAt: &at, Status: status}
}

func ids(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestLiveEventOnlyInLiveBucket(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, status := range allStatuses {
		e := event("ev", now, -10*time.Minute, status)
		e.Live = true
		b := Classify(now, []domain.Event{e}, DefaultWindows())
		if !slices.Equal(ids(b.Live), []string{"ev"}) {
			t.Fatalf("status=%s: expected live event, got %v", status, ids(b.Live))
		}
		if len(b.Imminent)+len(b.Recent)+len(b.Upcoming) != 0 {
			t.Fatalf("status=%s: live event leaked into other buckets: %+v", status, b)
		}
	}
}

func TestLiveWithoutScheduleStillLive(t *testing.T) {
	now := time.Now()
	b := Classify(now, []domain.Event{
		{ID: "live", Live: true, Status: domain.EventTBD},
		{ID: "idle", Status: domain.EventUpcoming},
	}, DefaultWindows())
	if !slices.Equal(ids(b.Live), []string{"live"}) {
		t.Fatalf("unexpected live bucket: %v", ids(b.Live))
	}
	if len(b.Imminent) != 0 || len(b.Upcoming) != 0 {
		t.Fatalf("unscheduled events must not be imminent or upcoming: %+v", b)
	}
}

func TestWindowEdges(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	w := DefaultWindows()
	cases := []struct {
		offset time.Duration
		status domain.EventStatus
		want   Bucket
	}{
		{0, domain.EventGo, BucketImminent},
		{6 * time.Hour, domain.EventGo, BucketImminent},
		{6*time.Hour + time.Second, domain.EventGo, BucketUpcoming},
		{24 * time.Hour, domain.EventTBD, BucketUpcoming},
		{24*time.Hour + time.Second, domain.EventGo, BucketNone},
		{-time.Second, domain.EventCompleted, BucketRecent},
		{-24 * time.Hour, domain.EventCompleted, BucketRecent},
		{-24*time.Hour - time.Second, domain.EventCompleted, BucketNone},
		{0, domain.EventCompleted, BucketNone},
		{time.Hour, domain.EventTBD, BucketNone},
		{time.Hour, domain.EventScrubbed, BucketNone},
		{-time.Hour, domain.EventSuccess, BucketNone},
		{-time.Hour, domain.EventInProgress, BucketRecent},
	}
	for _, tc := range cases {
		got := BucketOf(now, event("ev", now, tc.offset, tc.status), w)
		if got != tc.want {
			t.Fatalf("offset=%s status=%s: got %q, want %q", tc.offset, tc.status, got, tc.want)
		}
	}
}

func TestEventLandsInAtMostOneBucket(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var events []domain.Event
	for _, status := range allStatuses {
		for h := -30; h <= 30; h++ {
			events = append(events, event(fmt.Sprintf("%s/%d", status, h), now, time.Duration(h)*time.Hour, status))
		}
	}
	w := Windows{RecentLimit: 1000, UpcomingLimit: 1000}
	b := Classify(now, events, w)
	seen := map[string]int{}
	for _, bucket := range [][]domain.Event{b.Live, b.Imminent, b.Recent, b.Upcoming} {
		for _, e := range bucket {
			seen[e.ID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("event %s appears in %d buckets", id, n)
		}
	}
}

func TestOrderingAndCaps(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []domain.Event{
		event("late", now, 3*time.Hour, domain.EventGo),
		event("soon", now, time.Hour, domain.EventUpcoming),
		event("old", now, -20*time.Hour, domain.EventCompleted),
		event("fresh", now, -time.Hour, domain.EventCompleted),
		event("mid", now, -5*time.Hour, domain.EventCompleted),
		event("far", now, 20*time.Hour, domain.EventTBD),
		event("near", now, 8*time.Hour, domain.EventTBC),
	}
	b := Classify(now, events, Windows{RecentLimit: 2, UpcomingLimit: 5})
	if got := ids(b.Imminent); !slices.Equal(got, []string{"soon", "late"}) {
		t.Fatalf("unexpected imminent order: %v", got)
	}
	if got := ids(b.Recent); !slices.Equal(got, []string{"fresh", "mid"}) {
		t.Fatalf("unexpected recent order: %v", got)
	}
	if got := ids(b.Upcoming); !slices.Equal(got, []string{"near", "far"}) {
		t.Fatalf("unexpected upcoming order: %v", got)
	}
}

func TestEmptyInputYieldsEmptyBuckets(t *testing.T) {
	b := Classify(time.Now(), nil, DefaultWindows())
	if b.Live == nil || b.Imminent == nil || b.Recent == nil || b.Upcoming == nil {
		t.Fatalf("expected empty, non-nil buckets: %+v", b)
	}
}
