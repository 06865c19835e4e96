package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/api/request"
	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/core"
	"github.com/edvin/backupd/internal/model"
)

// APIKeyStore is the subset of *core.APIKeyService the handlers use.
type APIKeyStore interface {
	Create(ctx context.Context, name string, isAdmin bool) (*model.APIKey, string, error)
	List(ctx context.Context) ([]model.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// APIKey handles API key management endpoints.
type APIKey struct {
	svc APIKeyStore
}

// NewAPIKey creates a new APIKey handler.
func NewAPIKey(svc APIKeyStore) *APIKey {
	return &APIKey{svc: svc}
}

type apiKeyCreated struct {
	OK     bool          `json:"ok"`
	Key    string        `json:"key"`
	APIKey *model.APIKey `json:"apiKey"`
}

type apiKeyList struct {
	OK    bool           `json:"ok"`
	Items []model.APIKey `json:"items"`
}

// Create generates a new API key. The raw key is returned once in the response.
func (h *APIKey) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAPIKey
	if !decodeBody(w, r, &req) {
		return
	}

	key, rawKey, err := h.svc.Create(r.Context(), req.Name, req.Admin)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("create api key")
		response.WriteError(w, http.StatusInternalServerError, model.ErrInternal)
		return
	}
	response.WriteJSON(w, http.StatusCreated, apiKeyCreated{OK: true, Key: rawKey, APIKey: key})
}

// List lists all API keys, including revoked ones.
func (h *APIKey) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.List(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list api keys")
		response.WriteError(w, http.StatusInternalServerError, model.ErrInternal)
		return
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	response.WriteJSON(w, http.StatusOK, apiKeyList{OK: true, Items: keys})
}

// Revoke soft-deletes an API key by setting revoked_at.
func (h *APIKey) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrInvalidRequest)
		return
	}

	if err := h.svc.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrUnknownAPIKey) {
			response.WriteError(w, http.StatusNotFound, model.ErrNotFound)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("revoke api key")
		response.WriteError(w, http.StatusInternalServerError, model.ErrInternal)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
