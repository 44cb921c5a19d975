// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import "net/http"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// handleReady verifies the directory answers before reporting ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.Review.ListRoles()
	NewResponseWriter(w, r).Success(map[string]string{"status": "ready"})
}
