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

package rest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// instrumentedChallengeStore wraps a ChallengeStore and records challenge
// lifecycle metrics.
type instrumentedChallengeStore struct {
	store passkey.ChallengeStore
}

func newInstrumentedChallengeStore(store passkey.ChallengeStore) *instrumentedChallengeStore {
	return &instrumentedChallengeStore{store: store}
}

func (s *instrumentedChallengeStore) Issue(ctx context.Context, size int, ttl time.Duration, userHandle []byte, allowedCredentialIDs [][]byte) (*passkey.Challenge, error) {
	challenge, err := s.store.Issue(ctx, size, ttl, userHandle, allowedCredentialIDs)
	if err != nil {
		return nil, err
	}

	flow := metrics.FlowDiscoverable
	if len(userHandle) > 0 {
		flow = metrics.FlowTargeted
	}
	metrics.RecordChallengeIssued(flow)

	return challenge, nil
}

func (s *instrumentedChallengeStore) Consume(ctx context.Context, sessionID string) (*passkey.Challenge, error) {
	challenge, err := s.store.Consume(ctx, sessionID)
	switch {
	case err == nil:
		metrics.RecordChallengeConsumed(metrics.StatusConsumed)
	case errors.Is(err, passkey.ErrChallengeNotFound):
		metrics.RecordChallengeConsumed(metrics.StatusNotFound)
	}
	return challenge, err
}

// securityEventSink logs security events and records them as metrics.
type securityEventSink struct {
	log *passkey.LogSecuritySink
}

func newSecurityEventSink(logger *slog.Logger) *securityEventSink {
	return &securityEventSink{log: passkey.NewLogSecuritySink(logger)}
}

func (s *securityEventSink) CloneDetected(ctx context.Context, credentialID []byte, storedCounter, reportedCounter uint32) {
	s.log.CloneDetected(ctx, credentialID, storedCounter, reportedCounter)
	metrics.RecordCloneDetection()
}

// startPendingChallengeGauge periodically publishes the number of
// outstanding challenges.
func (s *Server) startPendingChallengeGauge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.SetPendingChallenges(float64(s.challenges.Count()))
			}
		}
	}()
}
