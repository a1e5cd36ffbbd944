// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package passkey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// MemoryChallengeStore is an in-memory implementation of ChallengeStore.
// Suitable for single-process deployments and testing; multi-node
// deployments need an implementation backed by a shared cache with an
// atomic check-and-delete.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

// NewMemoryChallengeStore creates a new in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]*Challenge),
	}
}

// Issue generates a random challenge and session ID and stores the record.
func (s *MemoryChallengeStore) Issue(ctx context.Context, size int, ttl time.Duration, userHandle []byte, allowedCredentialIDs [][]byte) (*Challenge, error) {
	value := make([]byte, size)
	if _, err := rand.Read(value); err != nil {
		return nil, err
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	sessionID := hex.EncodeToString(idBytes)

	now := time.Now().UTC()
	ch := &Challenge{
		SessionID:            sessionID,
		Value:                value,
		IssuedAt:             now,
		ExpiresAt:            now.Add(ttl),
		UserHandle:           userHandle,
		AllowedCredentialIDs: allowedCredentialIDs,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[sessionID] = ch

	return ch, nil
}

// Consume atomically removes and returns the challenge for the session ID.
// The check and delete happen under a single lock, so concurrent consumers
// of the same session ID cannot both succeed.
func (s *MemoryChallengeStore) Consume(ctx context.Context, sessionID string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[sessionID]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.challenges, sessionID)

	// Expired challenges are inert even when still present; they answer
	// identically to never-issued ones.
	if ch.Expired(time.Now().UTC()) {
		return nil, ErrChallengeNotFound
	}

	return ch, nil
}

// Count returns the number of stored challenges.
func (s *MemoryChallengeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// Clear removes all challenges from the store.
func (s *MemoryChallengeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges = make(map[string]*Challenge)
}

// Sweep removes expired challenges and returns how many were removed.
// Correctness never depends on sweeping; Consume checks expiry itself.
func (s *MemoryChallengeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	removed := 0
	for id, ch := range s.challenges {
		if ch.Expired(now) {
			delete(s.challenges, id)
			removed++
		}
	}
	return removed
}

// StartSweepRoutine starts a background goroutine that periodically removes
// expired challenges. Call the returned cancel function to stop it.
func (s *MemoryChallengeStore) StartSweepRoutine(ctx context.Context, interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()

	return cancel
}
