package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
)

func (s *Server) handleGetPatterns(w http.ResponseWriter, r *http.Request) {
	set, err := s.app.Patterns.Get(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load patterns")
		RespondWithError(w, http.StatusInternalServerError, "Failed to load patterns")
		return
	}
	RespondWithJSON(w, http.StatusOK, set)
}

// handleSavePatterns replaces both rule lists. One invalid rule rejects the
// whole request.
func (s *Server) handleSavePatterns(w http.ResponseWriter, r *http.Request) {
	var set patterns.Set
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.app.Patterns.Replace(r.Context(), set); err != nil {
		if errors.Is(err, patterns.ErrInvalidPattern) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to save patterns")
		RespondWithError(w, http.StatusInternalServerError, "Failed to save patterns")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Patterns saved"})
}
