package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps the active document per session in Redis. Each session owns
// exactly one document; starting a new quotation replaces it.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store. Documents expire with the session TTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionID string) string {
	return "quotation:doc:" + sessionID
}

// Load returns the session's document, or a fresh one when none exists.
func (s *Store) Load(ctx context.Context, sessionID string) (*Document, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewDocument(time.Now()), nil
		}
		return nil, fmt.Errorf("quotation: load document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("quotation: decode document: %w", err)
	}
	return &doc, nil
}

// Save persists the session's document.
func (s *Store) Save(ctx context.Context, sessionID string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("quotation: encode document: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("quotation: save document: %w", err)
	}
	return nil
}
