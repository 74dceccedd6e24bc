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
	"context"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler builds the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	compress1KB := connect.WithCompressMinBytes(1024)
	r.Mount(grpchealth.NewHandler(&healthChecker{server: s}, compress1KB))
	reflector := grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName)
	r.Mount(grpcreflect.NewHandlerV1(reflector, compress1KB))
	r.Mount(grpcreflect.NewHandlerV1Alpha(reflector, compress1KB))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/auth/me", s.handleMe)

			r.Route("/circulars", func(r chi.Router) {
				r.Get("/", s.handleListCirculars)
				r.Post("/", s.handleCreateCircular)
				r.Get("/all", s.handleListAllCirculars)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCircular)
					r.Patch("/", s.handleEditCircular)
					r.Delete("/", s.handleDeleteCircular)
					r.Patch("/submit", s.handleSubmit)
					r.Patch("/admin-review", s.handleAdminReview)
					r.Patch("/review", s.handleSuperAdminReview)
					r.Patch("/higher-review", s.handleHigherReview)
					r.Patch("/resolve-meeting", s.handleResolveMeeting)
				})
			})

			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)

			r.Get("/signatories", s.handleListAuthorities)
			r.Post("/signatories", s.handleCreateAuthority)
			r.Delete("/signatories/{id}", s.handleDeleteAuthority)

			r.Get("/archive/{id}", s.handleGetArchive)
		})
	})
	return r
}

type HealthResponse struct {
	IsHealthy bool   `json:"is_healthy"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) ping(ctx context.Context) error {
	if s.config.Health == nil {
		return nil
	}
	return s.config.Health.Ping(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

// healthChecker answers gRPC health checks from the database ping
type healthChecker struct {
	server *Server
}

func (h *healthChecker) Check(
	ctx context.Context,
	req *grpchealth.CheckRequest,
) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != grpchealth.HealthV1ServiceName {
		return nil, connect.NewError(connect.CodeNotFound, nil)
	}
	if err := h.server.ping(ctx); err != nil {
		return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}
