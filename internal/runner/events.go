package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
)

// Publisher is satisfied by *rabbitmq.Client
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// JSONEventPublisher encodes run events as JSON messages
type JSONEventPublisher struct {
	publisher Publisher
}

// NewJSONEventPublisher creates a new event publisher
func NewJSONEventPublisher(publisher Publisher) *JSONEventPublisher {
	return &JSONEventPublisher{publisher: publisher}
}

// PublishRunEvent publishes event as application/json
func (p *JSONEventPublisher) PublishRunEvent(ctx context.Context, event domain.RunEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}
	return p.publisher.PublishWithRetry(ctx, body, "application/json")
}
