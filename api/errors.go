// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/blinklabs-io/circulard/workflow"
)

type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// StatusForKind maps a workflow error kind to an HTTP status code
func StatusForKind(kind workflow.Kind) int {
	switch kind {
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindForbidden:
		return http.StatusForbidden
	case workflow.KindInvalidState, workflow.KindConflict:
		return http.StatusConflict
	case workflow.KindInvalidInput:
		return http.StatusBadRequest
	case workflow.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err to the client. Messages of unclassified errors are
// logged and replaced
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := workflow.KindOf(err)
	status := StatusForKind(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", kind.String(),
			"error", err,
		)
		if kind == workflow.KindInternal {
			msg = "internal server error"
		}
	}
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Kind:       kind.String(),
		Message:    msg,
	})
}

// decodeBody reads a JSON request body into v. Unknown fields are ignored,
// so clients may send back whole records
func decodeBody(r *http.Request, v any) error {
	return decode(json.NewDecoder(r.Body), v)
}

// decodeStrictBody is decodeBody for decision requests, where a misspelled
// field would silently change the outcome
func decodeStrictBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return decode(dec, v)
}

func decode(dec *json.Decoder, v any) error {
	if err := dec.Decode(v); err != nil {
		return workflow.NewError(workflow.KindInvalidInput, "invalid request body: %v", err)
	}
	return nil
}
