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
	"encoding/json"
	"net/http"
	"time"
)

// HealthCheckResponse is returned by the health probe endpoints.
type HealthCheckResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// LivenessHandler handles GET /health/live requests. It only fails when
// the process is in an unrecoverable state, which for an in-memory
// deployment means never.
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	s.writeHealth(w, http.StatusOK, HealthCheckResponse{
		Status: "healthy",
	})
}

// ReadinessHandler handles GET /health/ready requests. The server is
// ready once the coordinator and its stores are assembled.
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.coordinator == nil {
		s.writeHealth(w, http.StatusServiceUnavailable, HealthCheckResponse{
			Status: "unhealthy",
		})
		return
	}

	s.writeHealth(w, http.StatusOK, HealthCheckResponse{
		Status:  "healthy",
		Version: s.version,
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) writeHealth(w http.ResponseWriter, status int, resp HealthCheckResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
