package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "pubhook/internal/api/context"
	"pubhook/internal/engine/hooks"
	"pubhook/internal/pkg/errors"
)

// HookHandler turns inbound host notifications into registry triggers.
type HookHandler struct {
	registry *hooks.Registry
}

func NewHookHandler(registry *hooks.Registry) *HookHandler {
	return &HookHandler{registry: registry}
}

func (h *HookHandler) Fire(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	trigger, err := hooks.ParseTrigger(params.ByName("trigger"))
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, err.Error(), nil)
		return
	}

	var event hooks.SaveEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if event.ID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Missing item id", nil)
		return
	}

	if err := h.registry.Fire(r.Context(), trigger, event); err != nil {
		log.Error().Err(err).Str("trigger", string(trigger)).Msg("failed to fire trigger")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to fire trigger", nil)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
