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

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountChi mounts the login routes on a chi router.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(coordinator)
//	r.Route("/api/v1/auth", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
func MountChi(r chi.Router, h *Handler) {
	r.Post("/challenge", h.IssueChallenge)
	r.Post("/assert", h.SubmitAssertion)
}

// MountStdlib mounts the login routes on a stdlib http.ServeMux.
// The prefix should not include a trailing slash.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(coordinator)
//	passkeyhttp.MountStdlib(mux, "/api/v1/auth", handler)
func MountStdlib(mux *http.ServeMux, prefix string, h *Handler) {
	mux.HandleFunc(prefix+"/challenge", h.IssueChallenge)
	mux.HandleFunc(prefix+"/assert", h.SubmitAssertion)
}

// RouteEntry represents a single route with its method, path, and handler.
type RouteEntry struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Routes returns the login routes for manual mounting on frameworks not
// directly supported.
func (h *Handler) Routes() []RouteEntry {
	return []RouteEntry{
		{Method: "POST", Path: "/challenge", Handler: h.IssueChallenge},
		{Method: "POST", Path: "/assert", Handler: h.SubmitAssertion},
	}
}
