// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func TestResponseWriter_Success(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	NewResponseWriter(w, r).Success(map[string]string{"message": "hello"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.Success || response.Error != nil {
		t.Errorf("response = %+v", response)
	}
	if response.Meta == nil || response.Meta.Timestamp.IsZero() {
		t.Error("Expected Meta with Timestamp")
	}
}

func TestResponseWriter_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		write    func(*ResponseWriter)
		wantCode int
		wantErr  string
	}{
		{"bad request", func(rw *ResponseWriter) { rw.BadRequest("bad") }, http.StatusBadRequest, ErrCodeBadRequest},
		{"not found", func(rw *ResponseWriter) { rw.NotFound("gone") }, http.StatusNotFound, ErrCodeNotFound},
		{"unauthorized", func(rw *ResponseWriter) { rw.Unauthorized("no") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"internal", func(rw *ResponseWriter) { rw.InternalError("oops") }, http.StatusInternalServerError, ErrCodeInternalError},
		{"database", func(rw *ResponseWriter) { rw.DatabaseError(errors.New("closed")) }, http.StatusInternalServerError, ErrCodeDatabaseError},
		{"validation", func(rw *ResponseWriter) { rw.ValidationError("dj_user is required", nil) }, http.StatusBadRequest, ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/test", nil)
			tt.write(NewResponseWriter(w, r))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var response APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if response.Success || response.Error == nil || response.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", response.Error, tt.wantErr)
			}
		})
	}
}

func TestTaskResponse(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	TaskResponse(w, httptest.NewRequest(http.MethodPost, "/tasks/live365", nil), nil)
	if w.Code != http.StatusOK || w.Body.String() != TaskOK {
		t.Errorf("success = %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	TaskResponse(w, httptest.NewRequest(http.MethodPost, "/tasks/live365", nil), errors.New("timeout"))
	if w.Code != http.StatusInternalServerError || w.Body.String() != TaskFailed {
		t.Errorf("failure = %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}
