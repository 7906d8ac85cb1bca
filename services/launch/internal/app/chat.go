package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackosaurus2014/spacehub-sub018/internal/ratelimit"
	"github.com/jackosaurus2014/spacehub-sub018/internal/util"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

const (
	maxChatBodyRunes = 500
	defaultChatLimit = 50
	maxChatLimit     = 200
)

// ChatInput is a validated-at-the-boundary chat post.
type ChatInput struct {
	EventID string
	Body    string
}

// PostChatMessage stores a chat message, at most one per user per event per
// chat cooldown.
func (a *App) PostChatMessage(ctx context.Context, user domain.User, in ChatInput) (domain.ChatMessage, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return domain.ChatMessage{}, invalidf("message body required")
	}
	if n := utf8.RuneCountInString(body); n > maxChatBodyRunes {
		return domain.ChatMessage{}, invalidf("message body is %d characters, max %d", n, maxChatBodyRunes)
	}
	if user.ID == "" {
		return domain.ChatMessage{}, invalidf("user required")
	}
	e, err := a.loadEvent(ctx, in.EventID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	key := ratelimit.Key("chat", e.ID, user.ID)
	if err := acquire(ctx, a.chatLimiter, key); err != nil {
		return domain.ChatMessage{}, err
	}
	msg := domain.ChatMessage{
		ID:          util.NewID(),
		EventID:     e.ID,
		UserID:      user.ID,
		DisplayName: displayName(user),
		Body:        body,
		Type:        domain.MessageChat,
		CreatedAt:   a.Now(),
	}
	if err := a.store.AppendChatMessage(ctx, msg); err != nil {
		release(ctx, a.chatLimiter, key)
		return domain.ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}
	return msg, nil
}

// ListChatMessages returns the latest messages before the cursor, oldest
// first.
func (a *App) ListChatMessages(ctx context.Context, eventID string, before *time.Time, limit int) ([]domain.ChatMessage, error) {
	switch {
	case limit < 0:
		return nil, invalidf("limit must not be negative")
	case limit == 0:
		limit = defaultChatLimit
	case limit > maxChatLimit:
		limit = maxChatLimit
	}
	e, err := a.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	msgs, err := a.store.ListChatMessages(ctx, e.ID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func displayName(u domain.User) string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.ID
}
