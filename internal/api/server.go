// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

// Package api implements a small demo HTTP server that drives a hosted
// FABCore's tick loop from requests. It is a demo application, not a
// hardened public surface: it trusts callers to sequence
// init_tick/fill/step/mix correctly and surfaces the core's own errors
// rather than re-validating on top of them.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orbis-labs/fabcore/internal/session"
	"github.com/orbis-labs/fabcore/pkg/fab"
)

// Server exposes one Manager's fleet of sessions over HTTP.
type Server struct {
	manager *session.Manager
}

// NewServer configures a new API server over an existing session manager.
func NewServer(manager *session.Manager) *Server {
	return &Server{manager: manager}
}

// RegisterRoutes wires the demo endpoints onto mux using Go's method+path
// pattern matching.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("POST /sessions/{id}/init_tick", s.handleInitTick)
	mux.HandleFunc("POST /sessions/{id}/fill", s.handleFill)
	mux.HandleFunc("POST /sessions/{id}/step", s.handleStep)
	mux.HandleFunc("GET /sessions/{id}/mix", s.handleMix)
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// handleCreateSession mints a fresh session id for callers that don't want
// to pick their own (e.g. anonymous or ephemeral clients), and eagerly hosts
// a FABCore for it so the very next init_tick call hits the warm path.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	s.manager.GetOrCreate(id)
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

type initTickRequest struct {
	Mode    string      `json:"mode"`
	Budgets fab.Budgets `json:"budgets"`
}

func parseMode(s string) (fab.FabMode, bool) {
	switch s {
	case "", "FAB0":
		return fab.FAB0, true
	case "FAB1":
		return fab.FAB1, true
	case "FAB2":
		return fab.FAB2, true
	default:
		return fab.FAB0, false
	}
}

func (s *Server) handleInitTick(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req initTickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	mode, ok := parseMode(req.Mode)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return
	}

	core := s.manager.GetOrCreate(id)
	if !s.manager.AdmitTick(id, int64(req.Budgets.Tokens)) {
		http.Error(w, "fleet token budget exhausted", http.StatusTooManyRequests)
		return
	}

	if err := core.InitTick(mode, req.Budgets); err != nil {
		s.manager.SettleTick(id)
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var z fab.ZSlice
	if err := json.NewDecoder(r.Body).Decode(&z); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	core := s.manager.GetOrCreate(id)
	if err := core.Fill(z); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var metrics fab.Metrics
	if err := json.NewDecoder(r.Body).Decode(&metrics); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	core := s.manager.GetOrCreate(id)
	result, err := core.Step(metrics)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	s.manager.SettleTick(id)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMix(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	core := s.manager.GetOrCreate(id)
	snap, err := core.Mix()
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeCoreError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if err == fab.ErrNotInitialized {
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe starts the HTTP server on addr, with the teacher's timeout
// conventions for a demo-grade server.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	fmt.Printf("fab demo API server listening on %s\n", addr)
	return httpServer.ListenAndServe()
}
