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

	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/workflow"
	"github.com/go-chi/chi/v5"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string                `json:"token"`
	User  *directory.UserRecord `json:"user"`
}

type AuthorityRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, u, err := s.config.Auth.Login(r.Context(), req.Email, req.Password)
	s.respond(w, r, http.StatusOK, LoginResponse{Token: token, User: u}, err)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ret, err := s.config.Directory.Me(r.Context(), actorOf(r))
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := workflow.Role(r.URL.Query().Get("role"))
	ret, err := s.config.Directory.ListUsers(r.Context(), actorOf(r), role)
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req directory.NewUser
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ret, err := s.config.Directory.CreateUser(r.Context(), actorOf(r), req)
	s.respond(w, r, http.StatusCreated, ret, err)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	err := s.config.Directory.DeleteUser(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, MessageResponse{Message: "user removed"}, err)
}

func (s *Server) handleListAuthorities(w http.ResponseWriter, r *http.Request) {
	ret, err := s.config.Directory.ListAuthorities(r.Context())
	s.respond(w, r, http.StatusOK, ret, err)
}

func (s *Server) handleCreateAuthority(w http.ResponseWriter, r *http.Request) {
	var req AuthorityRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ret, err := s.config.Directory.CreateAuthority(r.Context(), actorOf(r), req.Name, req.Position)
	s.respond(w, r, http.StatusCreated, ret, err)
}

func (s *Server) handleDeleteAuthority(w http.ResponseWriter, r *http.Request) {
	err := s.config.Directory.DeleteAuthority(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, MessageResponse{Message: "signatory removed"}, err)
}
