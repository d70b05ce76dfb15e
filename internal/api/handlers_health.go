// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package api

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health runs every dependency check and reports 503 if any fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{Status: "healthy", Checks: make(map[string]string, len(h.deps.Checks))}
	for _, c := range h.deps.Checks {
		if err := c.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[c.Name] = err.Error()
			continue
		}
		status.Checks[c.Name] = "ok"
	}

	rw := NewResponseWriter(w, r)
	if status.Status != "healthy" {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeUnhealthy, "One or more dependencies are unhealthy", status)
		return
	}
	rw.Success(status)
}
