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
	"net/http"

	"github.com/blinklabs-io/circulard/auth"
	"github.com/blinklabs-io/circulard/workflow"
	"github.com/go-chi/chi/v5"
)

type AdminReviewRequest struct {
	Decision workflow.AdminDecision `json:"decision"`
	Reason   string                 `json:"rejectionReason"`
}

type SuperAdminReviewRequest struct {
	Decision  workflow.SuperAdminDecision `json:"decision"`
	Reason    string                      `json:"rejectionReason"`
	Approvers []string                    `json:"higherApproverIds"`
}

type HigherReviewRequest struct {
	Decision workflow.Decision `json:"decision"`
	Feedback string            `json:"feedback"`
}

func actorOf(r *http.Request) workflow.Actor {
	actor, _ := auth.FromContext(r.Context())
	return actor
}

// respond writes the result of a workflow call
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

func (s *Server) handleListCirculars(w http.ResponseWriter, r *http.Request) {
	ret, err := s.config.Workflow.ListForRole(r.Context(), actorOf(r))
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleListAllCirculars(w http.ResponseWriter, r *http.Request) {
	ret, err := s.config.Workflow.ListAll(r.Context(), actorOf(r))
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleCreateCircular(w http.ResponseWriter, r *http.Request) {
	var content workflow.Content
	if err := decodeBody(r, &content); err != nil {
		s.writeError(w, r, err)
		return
	}
	ret, err := s.config.Workflow.CreateDraft(r.Context(), actorOf(r), content)
	s.respond(w, r, http.StatusCreated, ret, err)
}

func (s *Server) handleGetCircular(w http.ResponseWriter, r *http.Request) {
	ret, err := s.config.Workflow.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleEditCircular(w http.ResponseWriter, r *http.Request) {
	var content workflow.Content
	if err := decodeBody(r, &content); err != nil {
		s.writeError(w, r, err)
		return
	}
	ret, err := s.config.Workflow.EditDraft(r.Context(), actorOf(r), chi.URLParam(r, "id"), content)
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleDeleteCircular(w http.ResponseWriter, r *http.Request) {
	err := s.config.Workflow.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, MessageResponse{Message: "circular removed"}, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ret, err := s.config.Workflow.Submit(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleAdminReview(w http.ResponseWriter, r *http.Request) {
	var req AdminReviewRequest
	if err := decodeStrictBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ret, err := s.config.Workflow.AdminReview(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "id"),
		req.Decision,
		req.Reason,
	)
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleSuperAdminReview(w http.ResponseWriter, r *http.Request) {
	var req SuperAdminReviewRequest
	if err := decodeStrictBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ret, err := s.config.Workflow.SuperAdminReview(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "id"),
		req.Decision,
		req.Reason,
		req.Approvers,
	)
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleHigherReview(w http.ResponseWriter, r *http.Request) {
	var req HigherReviewRequest
	if err := decodeStrictBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ret, err := s.config.Workflow.HigherReview(
		r.Context(),
		actorOf(r),
		chi.URLParam(r, "id"),
		req.Decision,
		req.Feedback,
	)
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleResolveMeeting(w http.ResponseWriter, r *http.Request) {
	ret, err := s.config.Workflow.ResolveMeeting(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, ret, err)
}

// handleGetArchive returns the archived snapshot, which only exists for
// Published circulars and is therefore readable by anyone signed in
func (s *Server) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	if s.config.Archive == nil {
		s.writeError(w, r, workflow.NewError(workflow.KindNotFound, "archive is not enabled"))
		return
	}
	ret, err := s.config.Archive.Get(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, ret, err)
}
