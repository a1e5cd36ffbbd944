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
	"encoding/hex"
	"sync"
	"time"
)

// MemoryCredentialRegistry is an in-memory implementation of CredentialRegistry.
// Intended for development and testing; production deployments implement the
// interface against a relational store where UpdateAfterUse is a single-row
// write under row serialization.
type MemoryCredentialRegistry struct {
	mu       sync.RWMutex
	byID     map[string]*Credential
	byUser   map[string][]string
	idToUser map[string]string
}

// NewMemoryCredentialRegistry creates a new in-memory credential registry.
func NewMemoryCredentialRegistry() *MemoryCredentialRegistry {
	return &MemoryCredentialRegistry{
		byID:     make(map[string]*Credential),
		byUser:   make(map[string][]string),
		idToUser: make(map[string]string),
	}
}

// FindByID retrieves an active credential by its ID. Inactive credentials
// answer ErrCredentialNotFound so account state never leaks to an
// unauthenticated caller.
func (r *MemoryCredentialRegistry) FindByID(ctx context.Context, credentialID []byte) (*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.byID[hex.EncodeToString(credentialID)]
	if !ok || !cred.Active {
		return nil, ErrCredentialNotFound
	}

	out := *cred
	return &out, nil
}

// FindByUser retrieves all active credentials for a user handle.
func (r *MemoryCredentialRegistry) FindByUser(ctx context.Context, userHandle []byte) ([]*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[hex.EncodeToString(userHandle)]
	creds := make([]*Credential, 0, len(ids))
	for _, id := range ids {
		cred, ok := r.byID[id]
		if !ok || !cred.Active {
			continue
		}
		out := *cred
		creds = append(creds, &out)
	}
	return creds, nil
}

// Register stores a newly registered credential.
func (r *MemoryCredentialRegistry) Register(ctx context.Context, cred *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	credKey := hex.EncodeToString(cred.ID)
	if _, ok := r.byID[credKey]; ok {
		return ErrCredentialAlreadyExists
	}

	userKey := hex.EncodeToString(cred.UserHandle)
	stored := *cred
	r.byID[credKey] = &stored
	r.byUser[userKey] = append(r.byUser[userKey], credKey)
	r.idToUser[credKey] = userKey

	return nil
}

// UpdateAfterUse persists the new counter and last-used timestamp. The
// monotonicity check is re-evaluated under the registry lock against the
// authoritative stored value: a concurrent authentication may have advanced
// the counter after the caller took its snapshot, and a non-increasing write
// must fail as a counter regression rather than silently overwrite. Counters
// pinned at zero belong to authenticators without a counter and pass.
func (r *MemoryCredentialRegistry) UpdateAfterUse(ctx context.Context, credentialID []byte, newCounter uint32, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return ErrCredentialNotFound
	}

	if newCounter <= cred.SignCount && !(newCounter == 0 && cred.SignCount == 0) {
		return ErrClonedAuthenticator
	}

	cred.SignCount = newCounter
	cred.LastUsedAt = usedAt
	return nil
}

// FlagClone marks a credential for manual review after a counter regression.
// The credential stays active: some authenticator firmware produces false
// positives and deactivation is an account-management decision.
func (r *MemoryCredentialRegistry) FlagClone(ctx context.Context, credentialID []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return ErrCredentialNotFound
	}

	cred.CloneFlagged = true
	return nil
}

// Deactivate excludes a credential from lookup while retaining it for audit.
func (r *MemoryCredentialRegistry) Deactivate(ctx context.Context, credentialID []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return ErrCredentialNotFound
	}

	cred.Active = false
	return nil
}

// Get returns the raw record regardless of active state, for audit tooling
// and tests. Not part of the CredentialRegistry contract.
func (r *MemoryCredentialRegistry) Get(credentialID []byte) (*Credential, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return nil, false
	}
	out := *cred
	return &out, true
}

// Count returns the total number of records, active or not.
func (r *MemoryCredentialRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Clear removes all records from the registry.
func (r *MemoryCredentialRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Credential)
	r.byUser = make(map[string][]string)
	r.idToUser = make(map[string]string)
}
