// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/validation"
)

// maxBodyBytes caps request bodies. Directory entities are small; a
// megabyte is generous.
const maxBodyBytes = 1 << 20

// bind decodes the JSON body into dst and validates it. On failure it
// writes the error response and returns false.
func bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		NewResponseWriter(w, r).BadRequest(fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// ouType parses the {type} route parameter.
func ouType(raw string) (models.OrgUnitType, error) {
	switch raw {
	case "user", "USER":
		return models.OrgUnitUser, nil
	case "perm", "PERM":
		return models.OrgUnitPerm, nil
	default:
		return "", fmt.Errorf("org unit type must be USER or PERM, got %q", raw)
	}
}

// sdKind parses the {kind} route parameter.
func sdKind(raw string) (models.SDKind, error) {
	switch raw {
	case "ssd", "SSD":
		return models.SSD, nil
	case "dsd", "DSD":
		return models.DSD, nil
	default:
		return "", fmt.Errorf("sd set kind must be SSD or DSD, got %q", raw)
	}
}

// permQuery reads the obj/op/id permission selector from query
// parameters.
func permQuery(r *http.Request) (objName, opName, objID string, err error) {
	q := r.URL.Query()
	objName = models.NormalizeName(q.Get("obj"))
	opName = models.NormalizeName(q.Get("op"))
	objID = models.NormalizeName(q.Get("id"))
	if objName == "" || opName == "" {
		return "", "", "", fmt.Errorf("obj and op query parameters are required")
	}
	return objName, opName, objID, nil
}

// nameParam reads an entity name from a query parameter, normalized.
func nameParam(r *http.Request, key string) string {
	return models.NormalizeName(r.URL.Query().Get(key))
}

// parseTimeParam parses an optional RFC3339 query parameter.
func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
