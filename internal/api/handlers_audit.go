// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tomtom215/palisade/internal/audit"
)

const defaultAuditLimit = 100

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.QueryFilter{
		Name:  q.Get("name"),
		Actor: q.Get("actor"),
		Limit: defaultAuditLimit,
	}

	switch outcome := q.Get("outcome"); outcome {
	case "":
	case string(audit.OutcomeAccept):
		filter.Outcome = audit.OutcomeAccept
	case string(audit.OutcomeReject):
		filter.Outcome = audit.OutcomeReject
	default:
		NewResponseWriter(w, r).BadRequest(fmt.Sprintf("outcome must be accept or reject, got %q", outcome))
		return
	}

	since, err := parseTimeParam(q.Get("since"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest("since must be an RFC3339 timestamp")
		return
	}
	filter.Since = since

	until, err := parseTimeParam(q.Get("until"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest("until must be an RFC3339 timestamp")
		return
	}
	filter.Until = until

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			NewResponseWriter(w, r).BadRequest("limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	events, err := s.Audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(events, len(events))
}
