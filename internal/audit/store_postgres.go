package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events land in audit_events for querying and in the outbox for the Kafka
// worker; Kafka is the downstream source of truth for compliance consumers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	// Category always derives from the event type; the map in models.go is
	// the source of truth.
	event.Category = event.Type.Category()

	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal audit data: %w", err)
	}
	actorJSON, err := json.Marshal(event.Actor)
	if err != nil {
		return fmt.Errorf("marshal audit actor: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit append: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_events (id, lead_id, event_type, category, data, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		event.ID, event.LeadID, string(event.Type), string(event.Category),
		dataJSON, actorJSON, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, 'lead', $2, $3, $4, $5)`,
		uuid.New(), event.LeadID, string(event.Type), payload, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit append: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByLead(ctx context.Context, leadID string) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, lead_id, event_type, category, data, actor, created_at
		FROM audit_events
		WHERE lead_id = $1
		ORDER BY created_at ASC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var eventType, category string
		var dataJSON, actorJSON []byte
		if err := rows.Scan(&e.ID, &e.LeadID, &eventType, &category, &dataJSON, &actorJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = EventType(eventType)
		e.Category = EventCategory(category)
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &e.Data); err != nil {
				return nil, fmt.Errorf("unmarshal audit data: %w", err)
			}
		}
		if len(actorJSON) > 0 {
			if err := json.Unmarshal(actorJSON, &e.Actor); err != nil {
				return nil, fmt.Errorf("unmarshal audit actor: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
