package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/debtflow/platform/internal/shared/config"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/google/uuid"
)

// Event types published by the engine.
const (
	TypeCaseCreated       = "case.created"
	TypeCaseAllocated     = "case.allocated"
	TypeCaseStatusChanged = "case.status_changed"
	TypeDeadlineBreached  = "sla.deadline_breached"
	TypeDeadlineAtRisk    = "sla.deadline_at_risk"
	TypeEscalationRaised  = "escalation.raised"
	TypeAllocationDenied  = "allocation.caller_denied"
)

// Event represents a domain event
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	// Actor information
	ActorID   types.ID `json:"actor_id,omitempty"`
	ActorType string   `json:"actor_type,omitempty"` // pipeline, worker, supervisor

	// Event data
	Data any `json:"data"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the actor information on the event
func (e Event) WithActor(actorID types.ID, actorType string) Event {
	e.ActorID = actorID
	e.ActorType = actorType
	return e
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, pattern string, handler Handler) error
	Close()
}

// Bus publishes engine events to EventStoreDB
type Bus struct {
	client *esdb.Client
	prefix string
}

var _ EventBus = (*Bus)(nil)

// NewBus creates a new event bus connected to EventStoreDB
func NewBus(cfg config.EventDBConfig) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create EventStoreDB client: %w", err)
	}

	return &Bus{client: client, prefix: "dca"}, nil
}

func connectionString(cfg config.EventDBConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}
	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false"
	}
	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// Publish publishes an event to the bus
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Stream per event type: dca.case.allocated -> dca-case-allocated
	stream := fmt.Sprintf("%s-%s", b.prefix, streamSafe(event.Type))

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	_, err = b.client.AppendToStream(ctx, stream, esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdb.EventData{
		EventType:   event.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe creates a catch-up subscription filtered by event type pattern
// (simple wildcard, e.g. "sla.*").
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	sub, err := b.client.SubscribeToAll(ctx, esdb.SubscribeToAllOptions{
		From: esdb.End{},
		Filter: &esdb.SubscriptionFilter{
			Type:  esdb.EventFilterType,
			Regex: patternToRegex(pattern),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			subEvent := sub.Recv()
			if subEvent.SubscriptionDropped != nil {
				log.Printf("event subscription dropped: %v", subEvent.SubscriptionDropped.Error)
				return
			}
			if subEvent.EventAppeared == nil {
				continue
			}

			var event Event
			if err := json.Unmarshal(subEvent.EventAppeared.OriginalEvent().Data, &event); err != nil {
				log.Printf("failed to decode event: %v", err)
				continue
			}
			if err := handler(ctx, event); err != nil {
				log.Printf("event handler failed for %s: %v", event.Type, err)
			}
		}
	}()

	return nil
}

// Close closes the bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}

func streamSafe(eventType string) string {
	out := []byte(eventType)
	for i := range out {
		if out[i] == '.' {
			out[i] = '-'
		}
	}
	return string(out)
}

func patternToRegex(pattern string) string {
	result := make([]byte, 0, len(pattern)*2)
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '.':
			result = append(result, '\\', '.')
		case '*':
			result = append(result, '.', '*')
		default:
			result = append(result, pattern[i])
		}
	}
	return string(result)
}
