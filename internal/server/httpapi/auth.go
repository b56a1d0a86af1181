package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/receiptvault/internal/common"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
)

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req wire.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON payload", common.ErrorValidation))
		return
	}

	u, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wire.RegisterResponse{ID: u.ID})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req wire.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON payload", common.ErrorValidation))
		return
	}

	pair, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	var req wire.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		s.respondError(w, r, fmt.Errorf("%w: refreshToken is required", common.ErrorValidation))
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, wire.Health{Status: "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, wire.Health{Status: "ok"})
}
