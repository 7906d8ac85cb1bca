package tracker

import (
	"sort"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

// Windows configures the dashboard buckets.
type Windows struct {
	Imminent      time.Duration
	Upcoming      time.Duration
	Recent        time.Duration
	RecentLimit   int
	UpcomingLimit int
}

// DefaultWindows returns the stock 6h / 24h windows with ten entries per capped bucket.
func DefaultWindows() Windows {
	return Windows{
		Imminent:      6 * time.Hour,
		Upcoming:      24 * time.Hour,
		Recent:        24 * time.Hour,
		RecentLimit:   10,
		UpcomingLimit: 10,
	}
}

// Normalized fills unset fields with defaults and keeps Upcoming >= Imminent.
func (w Windows) Normalized() Windows {
	d := DefaultWindows()
	if w.Imminent <= 0 {
		w.Imminent = d.Imminent
	}
	if w.Upcoming <= 0 {
		w.Upcoming = d.Upcoming
	}
	if w.Upcoming < w.Imminent {
		w.Upcoming = w.Imminent
	}
	if w.Recent <= 0 {
		w.Recent = d.Recent
	}
	if w.RecentLimit <= 0 {
		w.RecentLimit = d.RecentLimit
	}
	if w.UpcomingLimit <= 0 {
		w.UpcomingLimit = d.UpcomingLimit
	}
	return w
}

// Buckets is the dashboard partition of tracked events.
type Buckets struct {
	Live     []domain.Event `json:"live"`
	Imminent []domain.Event `json:"imminent"`
	Recent   []domain.Event `json:"recent"`
	Upcoming []domain.Event `json:"upcoming"`
}

type Bucket string

const (
	BucketNone     Bucket = ""
	BucketLive     Bucket = "live"
	BucketImminent Bucket = "imminent"
	BucketRecent   Bucket = "recent"
	BucketUpcoming Bucket = "upcoming"
)

var (
	imminentStatuses = statusSet(domain.EventUpcoming, domain.EventGo, domain.EventTBC)
	recentStatuses   = statusSet(domain.EventCompleted, domain.EventInProgress)
	upcomingStatuses = statusSet(domain.EventUpcoming, domain.EventGo, domain.EventTBC, domain.EventTBD)
)

// BucketOf places a single event. Window edges are inclusive on the side
// nearest to now and exclusive on the far side of the adjacent bucket, so an
// event never qualifies for two buckets.
func BucketOf(now time.Time, e domain.Event, w Windows) Bucket {
	w = w.Normalized()
	if e.Live {
		return BucketLive
	}
	if e.ScheduledAt == nil || e.ScheduledAt.IsZero() {
		return BucketNone
	}
	at := *e.ScheduledAt
	switch {
	case !at.Before(now) && !at.After(now.Add(w.Imminent)):
		if imminentStatuses[e.Status] {
			return BucketImminent
		}
	case at.Before(now) && !at.Before(now.Add(-w.Recent)):
		if recentStatuses[e.Status] {
			return BucketRecent
		}
	case at.After(now.Add(w.Imminent)) && !at.After(now.Add(w.Upcoming)):
		if upcomingStatuses[e.Status] {
			return BucketUpcoming
		}
	}
	return BucketNone
}

// Classify partitions events into dashboard buckets.
func Classify(now time.Time, events []domain.Event, w Windows) Buckets {
	w = w.Normalized()
	b := Buckets{
		Live:     []domain.Event{},
		Imminent: []domain.Event{},
		Recent:   []domain.Event{},
		Upcoming: []domain.Event{},
	}
	for _, e := range events {
		switch BucketOf(now, e, w) {
		case BucketLive:
			b.Live = append(b.Live, e)
		case BucketImminent:
			b.Imminent = append(b.Imminent, e)
		case BucketRecent:
			b.Recent = append(b.Recent, e)
		case BucketUpcoming:
			b.Upcoming = append(b.Upcoming, e)
		}
	}
	sortBySchedule(b.Live, false)
	sortBySchedule(b.Imminent, false)
	sortBySchedule(b.Recent, true)
	sortBySchedule(b.Upcoming, false)
	if len(b.Recent) > w.RecentLimit {
		b.Recent = b.Recent[:w.RecentLimit]
	}
	if len(b.Upcoming) > w.UpcomingLimit {
		b.Upcoming = b.Upcoming[:w.UpcomingLimit]
	}
	return b
}

// sortBySchedule orders events by scheduled time; unscheduled events go last
// and ties break on id so output is stable.
func sortBySchedule(events []domain.Event, newestFirst bool) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].ScheduledAt, events[j].ScheduledAt
		switch {
		case a == nil && b == nil:
			return events[i].ID < events[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return events[i].ID < events[j].ID
		case newestFirst:
			return a.After(*b)
		default:
			return a.Before(*b)
		}
	})
}

func statusSet(statuses ...domain.EventStatus) map[domain.EventStatus]bool {
	out := make(map[domain.EventStatus]bool, len(statuses))
	for _, s := range statuses {
		out[s] = true
	}
	return out
}
