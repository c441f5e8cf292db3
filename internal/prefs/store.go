// Package prefs persists per-user agenda preferences (filter terms and view
// mode) across view sessions. The engine treats them as opaque state; losing
// them never affects scheduling correctness.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicore/agenda/internal/schedule"
)

// Prefs is the persisted preference blob.
type Prefs struct {
	Filter   schedule.FilterState `json:"filter"`
	ViewMode schedule.ViewKey     `json:"view_mode"`
}

// DefaultPrefs is what a user without stored preferences gets.
func DefaultPrefs() Prefs {
	return Prefs{ViewMode: schedule.ViewDay}
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a preference store. ttl bounds how long stale preferences
// survive; zero keeps them forever.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func prefsKey(userID string) string {
	return fmt.Sprintf("agenda:prefs:%s", userID)
}

// Load returns the user's stored preferences, or the defaults when nothing
// is stored yet.
func (s *Store) Load(ctx context.Context, userID string) (Prefs, error) {
	raw, err := s.client.Get(ctx, prefsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultPrefs(), nil
		}
		return Prefs{}, fmt.Errorf("load prefs: %w", err)
	}

	var p Prefs
	if err := json.Unmarshal(raw, &p); err != nil {
		// Corrupt blob: fall back rather than wedging the agenda.
		return DefaultPrefs(), nil
	}
	if p.ViewMode != schedule.ViewWeek {
		p.ViewMode = schedule.ViewDay
	}
	return p, nil
}

// Save stores the user's preferences.
func (s *Store) Save(ctx context.Context, userID string, p Prefs) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := s.client.Set(ctx, prefsKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}
