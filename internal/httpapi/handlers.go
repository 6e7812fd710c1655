// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/rentuma/authcore/pkg/errutil"
)

const maxBodyBytes = 64 << 10

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type updateProfileRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	profile, err := s.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "missing bearer token",
			Code:  "AUTH_INVALID_TOKEN",
		})
		return
	}

	if err := s.svc.Logout(r.Context(), token); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "missing bearer token",
			Code:  "AUTH_INVALID_TOKEN",
		})
		return
	}

	profile, err := s.svc.Profile(r.Context(), token)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "missing bearer token",
			Code:  "AUTH_INVALID_TOKEN",
		})
		return
	}

	var req updateProfileRequest
	if !s.decode(w, r, &req) {
		return
	}

	profile, err := s.svc.UpdateEmail(r.Context(), token, req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid request body",
		})
		return false
	}
	return true
}

// writeError maps engine failure codes to HTTP statuses. Anything without a
// recognized code is a server fault and must not leak detail to the client.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := ""
	if oopsErr, ok := oops.AsOops(err); ok {
		code = oopsErr.Code()
	}

	status := http.StatusInternalServerError
	switch code {
	case "AUTH_INVALID_FORMAT", "AUTH_WEAK_PASSWORD",
		"AUTH_DUPLICATE_USERNAME", "AUTH_DUPLICATE_EMAIL":
		status = http.StatusBadRequest
	case "AUTH_INVALID_CREDENTIALS", "AUTH_INVALID_TOKEN":
		status = http.StatusUnauthorized
	case "AUTH_ACCOUNT_LOCKED":
		status = http.StatusLocked
	case "ACCOUNT_NOT_FOUND":
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
		s.writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "error", err)
	}
}
