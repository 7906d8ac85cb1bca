package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
)

// Publisher fans milestone announcements out to downstream consumers
// (push gateways, social bots). Delivery is best effort.
type Publisher interface {
	PublishMilestone(ctx context.Context, m domain.Milestone) error
	Close() error
}

// Nop discards every milestone.
type Nop struct{}

func (Nop) PublishMilestone(context.Context, domain.Milestone) error { return nil }
func (Nop) Close() error { return nil }

func encodeMilestone(m domain.Milestone) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode milestone: %w", err)
	}
	return body, nil
}
