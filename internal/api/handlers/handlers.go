// Package handlers implements the HTTP endpoints: accounts,
// transactions, dashboard, receipt scanning and guest sessions.
package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/welthhq/welth/internal/api/middleware"
	"github.com/welthhq/welth/internal/domain"
)

// writeDomainError maps service-layer failures onto HTTP statuses.
// Validation details are safe to echo; everything else gets a generic
// message and a log line.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		middleware.WriteError(w, http.StatusTooManyRequests, "Too many requests, slow down")
	case errors.Is(err, domain.ErrAlreadySeeded):
		middleware.WriteError(w, http.StatusConflict, "Account already has demo data")
	case errors.Is(err, domain.ErrUpstream):
		middleware.WriteError(w, http.StatusBadGateway, "Upstream service failed")
	default:
		log.Error().Err(err).Str("action", action).Msg("Request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}
