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
	"encoding/base64"
	"log/slog"
)

// LogSecuritySink is the default SecurityEventSink. It logs security events
// at Warn with non-sensitive metadata only; deployments that need paging or
// SIEM routing implement their own sink.
type LogSecuritySink struct {
	logger *slog.Logger
}

// NewLogSecuritySink creates a slog-backed security event sink.
// A nil logger uses slog.Default().
func NewLogSecuritySink(logger *slog.Logger) *LogSecuritySink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSecuritySink{logger: logger}
}

// CloneDetected logs a signature counter regression.
func (s *LogSecuritySink) CloneDetected(ctx context.Context, credentialID []byte, storedCounter, reportedCounter uint32) {
	s.logger.WarnContext(ctx, "cloned authenticator suspected",
		"credential_id", base64.RawURLEncoding.EncodeToString(credentialID),
		"stored_counter", storedCounter,
		"reported_counter", reportedCounter)
}
