package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

const migrateLockID int64 = 51960412

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&EventModel{}, &ChatMessageModel{}, &ReactionModel{}, &PollModel{}, &VoteModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database reachability.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveEvent registers or updates an event.
func (s *GormStore) SaveEvent(ctx context.Context, e domain.Event) error {
	model := eventToModel(e)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "scheduled_at", "vehicle", "status", "live", "manual_phase", "updated_at"}),
	}).Create(&model).Error
}

// GetEvent retrieves an event.
func (s *GormStore) GetEvent(ctx context.Context, id string) (domain.Event, bool, error) {
	var model EventModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Event{}, false, nil
		}
		return domain.Event{}, false, err
	}
	return eventFromModel(model), true, nil
}

// ListTrackedEvents returns live events plus events scheduled in [from, to].
func (s *GormStore) ListTrackedEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	var models []EventModel
	if err := s.db.WithContext(ctx).
		Where("live = ?", true).
		Or("scheduled_at >= ? AND scheduled_at <= ?", from.UTC(), to.UTC()).
		Order("scheduled_at ASC NULLS LAST").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Event, 0, len(models))
	for _, m := range models {
		res = append(res, eventFromModel(m))
	}
	return res, nil
}

// SetPhaseOverride performs a conditional update so that concurrent operators
// setting the same phase produce a single change.
func (s *GormStore) SetPhaseOverride(ctx context.Context, eventID, phaseID string, milestone *domain.ChatMessage) (bool, error) {
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&EventModel{}).
			Where("id = ? AND manual_phase <> ?", eventID, phaseID).
			Updates(map[string]any{
				"manual_phase": phaseID,
				"updated_at":   time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&EventModel{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return nil
		}
		changed = true
		if milestone == nil {
			return nil
		}
		model := chatMessageToModel(*milestone)
		return tx.Create(&model).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// SetLive flips the live flag.
func (s *GormStore) SetLive(ctx context.Context, eventID string, live bool) error {
	res := s.db.WithContext(ctx).Model(&EventModel{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"live":       live,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendChatMessage stores a chat or milestone message.
func (s *GormStore) AppendChatMessage(ctx context.Context, msg domain.ChatMessage) error {
	model := chatMessageToModel(msg)
	return s.db.WithContext(ctx).Create(&model).Error
}

// ListChatMessages returns newest-first messages for an event.
func (s *GormStore) ListChatMessages(ctx context.Context, eventID string, before *time.Time, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	tx := s.db.WithContext(ctx).Where("event_id = ?", eventID)
	if before != nil {
		tx = tx.Where("created_at < ?", before.UTC())
	}
	var models []ChatMessageModel
	if err := tx.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		res = append(res, chatMessageFromModel(m))
	}
	return res, nil
}

// AddReaction stores one reaction.
func (s *GormStore) AddReaction(ctx context.Context, r domain.Reaction) error {
	model := reactionToModel(r)
	return s.db.WithContext(ctx).Create(&model).Error
}

// CountReactions aggregates reactions per kind in (after, until].
func (s *GormStore) CountReactions(ctx context.Context, eventID string, after, until *time.Time) (map[domain.ReactionKind]int, error) {
	tx := s.db.WithContext(ctx).Model(&ReactionModel{}).Where("event_id = ?", eventID)
	if after != nil {
		tx = tx.Where("created_at > ?", after.UTC())
	}
	if until != nil {
		tx = tx.Where("created_at <= ?", until.UTC())
	}
	var rows []struct {
		Kind  string
		Count int
	}
	if err := tx.Select("kind, COUNT(*) AS count").Group("kind").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.ReactionKind]int, len(rows))
	for _, r := range rows {
		out[domain.ReactionKind(r.Kind)] = r.Count
	}
	return out, nil
}

// CreatePoll stores a new poll.
func (s *GormStore) CreatePoll(ctx context.Context, p domain.Poll) error {
	model := pollToModel(p)
	return s.db.WithContext(ctx).Create(&model).Error
}

// GetPoll retrieves a poll with its tally.
func (s *GormStore) GetPoll(ctx context.Context, id string) (domain.Poll, bool, error) {
	var model PollModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Poll{}, false, nil
		}
		return domain.Poll{}, false, err
	}
	return pollFromModel(model), true, nil
}

// ListPolls returns an event's polls oldest first.
func (s *GormStore) ListPolls(ctx context.Context, eventID string) ([]domain.Poll, error) {
	var models []PollModel
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Poll, 0, len(models))
	for _, m := range models {
		res = append(res, pollFromModel(m))
	}
	return res, nil
}

// SetPollActive opens or closes voting.
func (s *GormStore) SetPollActive(ctx context.Context, id string, active bool) (domain.Poll, error) {
	var out domain.Poll
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PollModel{}).Where("id = ?", id).Updates(map[string]any{
			"active":     active,
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var model PollModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return err
		}
		out = pollFromModel(model)
		return nil
	})
	return out, err
}

// CastVote locks the poll row, inserts the vote and bumps the tally in one
// transaction. The (poll_id, user_id) key rejects a second vote.
func (s *GormStore) CastVote(ctx context.Context, v domain.Vote) (domain.Poll, error) {
	var out domain.Poll
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model PollModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", v.PollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		poll := pollFromModel(model)
		if err := checkVote(poll, v); err != nil {
			return err
		}
		vote := voteToModel(v)
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateVote
			}
			return err
		}
		poll.Tally[v.Option]++
		poll.UpdatedAt = time.Now().UTC()
		if err := tx.Model(&PollModel{}).Where("id = ?", poll.ID).Updates(map[string]any{
			"tally":      datatypes.NewJSONType(poll.Tally),
			"updated_at": poll.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		out = poll
		return nil
	})
	return out, err
}

func eventToModel(e domain.Event) EventModel {
	return EventModel{
		ID:          e.ID,
		Name:        e.Name,
		ScheduledAt: utcPtr(e.ScheduledAt),
		Vehicle:     e.Vehicle,
		Status:      string(e.Status),
		Live:        e.Live,
		ManualPhase: e.ManualPhase,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func eventFromModel(m EventModel) domain.Event {
	return domain.Event{
		ID:          m.ID,
		Name:        m.Name,
		ScheduledAt: utcPtr(m.ScheduledAt),
		Vehicle:     m.Vehicle,
		Status:      domain.EventStatus(m.Status),
		Live:        m.Live,
		ManualPhase: m.ManualPhase,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func chatMessageToModel(msg domain.ChatMessage) ChatMessageModel {
	return ChatMessageModel{
		ID:          msg.ID,
		EventID:     msg.EventID,
		UserID:      msg.UserID,
		DisplayName: msg.DisplayName,
		Body:        msg.Body,
		Type:        string(msg.Type),
		PhaseID:     msg.PhaseID,
		CreatedAt:   msg.CreatedAt,
	}
}

func chatMessageFromModel(m ChatMessageModel) domain.ChatMessage {
	return domain.ChatMessage{
		ID:          m.ID,
		EventID:     m.EventID,
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Body:        m.Body,
		Type:        domain.MessageType(m.Type),
		PhaseID:     m.PhaseID,
		CreatedAt:   m.CreatedAt,
	}
}

func reactionToModel(r domain.Reaction) ReactionModel {
	return ReactionModel{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		Kind:      string(r.Kind),
		PhaseID:   r.PhaseID,
		CreatedAt: r.CreatedAt,
	}
}

func pollToModel(p domain.Poll) PollModel {
	tally := p.Tally
	if tally == nil {
		tally = map[int]int{}
	}
	return PollModel{
		ID:        p.ID,
		EventID:   p.EventID,
		Question:  p.Question,
		Options:   datatypes.JSONSlice[string](p.Options),
		Active:    p.Active,
		Tally:     datatypes.NewJSONType(tally),
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func pollFromModel(m PollModel) domain.Poll {
	tally := copyTally(m.Tally.Data())
	return domain.Poll{
		ID:        m.ID,
		EventID:   m.EventID,
		Question:  m.Question,
		Options:   append([]string(nil), m.Options...),
		Active:    m.Active,
		Tally:     tally,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func voteToModel(v domain.Vote) VoteModel {
	return VoteModel{
		PollID:    v.PollID,
		UserID:    v.UserID,
		Option:    v.Option,
		CreatedAt: v.CreatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
