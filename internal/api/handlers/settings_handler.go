package handlers

import (
	"encoding/json"
	stdErrors "errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apiContext "pubhook/internal/api/context"
	"pubhook/internal/engine/settings"
	"pubhook/internal/pkg/errors"
	"pubhook/internal/platform/auth"
)

type SettingsHandler struct {
	page      *settings.Page
	store     settings.Writer
	overrides settings.Overrides
}

func NewSettingsHandler(page *settings.Page, store settings.Writer, overrides settings.Overrides) *SettingsHandler {
	return &SettingsHandler{page: page, store: store, overrides: overrides}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.page.View(r.Context(), h.store, h.overrides)
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load settings", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, view)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := h.page.Update(r.Context(), h.store, values); err != nil {
		var unknown *settings.ErrUnknownFields
		if stdErrors.As(err, &unknown) {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unknown settings fields", unknown.Keys)
			return
		}
		log.Error().Err(err).Msg("failed to store settings")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to store settings", nil)
		return
	}

	if claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims); ok {
		fields := make([]string, 0, len(values))
		for k := range values {
			fields = append(fields, k)
		}
		log.Info().Str("user", claims.Username).Strs("fields", fields).Msg("settings updated")
	}

	h.Get(w, r)
}
