package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

// MemoryStore implements Store in process memory. It backs tests and
// single-instance demo deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	events    map[string]domain.Event
	messages  map[string][]domain.ChatMessage
	reactions map[string][]domain.Reaction
	polls     map[string]domain.Poll
	votes     map[string]map[string]int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string]domain.Event),
		messages:  make(map[string][]domain.ChatMessage),
		reactions: make(map[string][]domain.Reaction),
		polls:     make(map[string]domain.Poll),
		votes:     make(map[string]map[string]int),
	}
}

func (s *MemoryStore) SaveEvent(_ context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ScheduledAt = utcPtr(e.ScheduledAt)
	s.events[e.ID] = e
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (domain.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	return e, ok, nil
}

func (s *MemoryStore) ListTrackedEvents(_ context.Context, from, to time.Time) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		inRange := e.ScheduledAt != nil && !e.ScheduledAt.Before(from) && !e.ScheduledAt.After(to)
		if e.Live || inRange {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetPhaseOverride(_ context.Context, eventID, phaseID string, milestone *domain.ChatMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return false, ErrNotFound
	}
	if e.ManualPhase == phaseID {
		return false, nil
	}
	e.ManualPhase = phaseID
	e.UpdatedAt = time.Now().UTC()
	s.events[eventID] = e
	if milestone != nil {
		s.messages[eventID] = append(s.messages[eventID], *milestone)
	}
	return true, nil
}

func (s *MemoryStore) SetLive(_ context.Context, eventID string, live bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	e.Live = live
	e.UpdatedAt = time.Now().UTC()
	s.events[eventID] = e
	return nil
}

func (s *MemoryStore) AppendChatMessage(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.EventID] = append(s.messages[msg.EventID], msg)
	return nil
}

func (s *MemoryStore) ListChatMessages(_ context.Context, eventID string, before *time.Time, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	all := append([]domain.ChatMessage(nil), s.messages[eventID]...)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	out := make([]domain.ChatMessage, 0, limit)
	for _, m := range all {
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AddReaction(_ context.Context, r domain.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactions[r.EventID] = append(s.reactions[r.EventID], r)
	return nil
}

func (s *MemoryStore) CountReactions(_ context.Context, eventID string, after, until *time.Time) (map[domain.ReactionKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.ReactionKind]int)
	for _, r := range s.reactions[eventID] {
		if after != nil && !r.CreatedAt.After(*after) {
			continue
		}
		if until != nil && r.CreatedAt.After(*until) {
			continue
		}
		out[r.Kind]++
	}
	return out, nil
}

func (s *MemoryStore) CreatePoll(_ context.Context, p domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Options = append([]string(nil), p.Options...)
	p.Tally = copyTally(p.Tally)
	s.polls[p.ID] = p
	return nil
}

func (s *MemoryStore) GetPoll(_ context.Context, id string) (domain.Poll, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, false, nil
	}
	return clonePoll(p), true, nil
}

func (s *MemoryStore) ListPolls(_ context.Context, eventID string) ([]domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Poll, 0)
	for _, p := range s.polls {
		if p.EventID == eventID {
			out = append(out, clonePoll(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SetPollActive(_ context.Context, id string, active bool) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, ErrNotFound
	}
	p.Active = active
	p.UpdatedAt = time.Now().UTC()
	s.polls[id] = p
	return clonePoll(p), nil
}

func (s *MemoryStore) CastVote(_ context.Context, v domain.Vote) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[v.PollID]
	if !ok {
		return domain.Poll{}, ErrNotFound
	}
	if err := checkVote(p, v); err != nil {
		return domain.Poll{}, err
	}
	voters := s.votes[v.PollID]
	if voters == nil {
		voters = make(map[string]int)
		s.votes[v.PollID] = voters
	}
	if _, dup := voters[v.UserID]; dup {
		return domain.Poll{}, ErrDuplicateVote
	}
	voters[v.UserID] = v.Option
	p = clonePoll(p)
	p.Tally[v.Option]++
	p.UpdatedAt = time.Now().UTC()
	s.polls[v.PollID] = p
	return clonePoll(p), nil
}

func clonePoll(p domain.Poll) domain.Poll {
	p.Options = append([]string(nil), p.Options...)
	p.Tally = copyTally(p.Tally)
	return p
}
