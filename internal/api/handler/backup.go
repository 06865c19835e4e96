package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/backupd/internal/api/request"
	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/core"
	"github.com/edvin/backupd/internal/model"
)

// BackupAPI is the subset of *core.BackupService the handlers use.
type BackupAPI interface {
	List(ctx context.Context) (*model.BackupList, error)
	Get(ctx context.Context, backupID string) (*model.Manifest, error)
	Create(ctx context.Context, in core.CreateBackupInput) (*model.Manifest, error)
	Restore(ctx context.Context, in core.RestoreInput) (*model.RestoreLogs, error)
	Status(ctx context.Context) (*core.RestoreStatus, error)
}

type Backup struct {
	svc BackupAPI
}

func NewBackup(svc BackupAPI) *Backup {
	return &Backup{svc: svc}
}

type listResponse struct {
	OK    bool                   `json:"ok"`
	Root  string                 `json:"root"`
	Items []model.BackupListItem `json:"items"`
}

type manifestResponse struct {
	OK       bool            `json:"ok"`
	Manifest *model.Manifest `json:"manifest"`
}

type restoreResponse struct {
	OK   bool               `json:"ok"`
	Logs *model.RestoreLogs `json:"logs"`
}

type statusResponse struct {
	OK                bool `json:"ok"`
	RestoreInProgress bool `json:"restoreInProgress"`
}

// List returns every snapshot under the backup root, newest first.
func (h *Backup) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, response.ErrorBody{})
		return
	}
	response.WriteJSON(w, http.StatusOK, listResponse{OK: true, Root: list.Root, Items: list.Items})
}

// Get returns one snapshot's manifest.
func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "backupID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrMissingBackupID)
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, response.ErrorBody{})
		return
	}
	response.WriteJSON(w, http.StatusOK, manifestResponse{OK: true, Manifest: m})
}

// Create takes a snapshot synchronously. Failed backups still return the
// manifest that was written.
func (h *Backup) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackup
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.svc.Create(r.Context(), core.CreateBackupInput{
		IncludeEnv: req.IncludeEnv,
		CreatedBy:  callerName(r),
	})
	if err != nil {
		body := response.ErrorBody{}
		if m != nil {
			body.Manifest = m
		}
		writeServiceError(w, r, err, body)
		return
	}
	response.WriteJSON(w, http.StatusOK, manifestResponse{OK: true, Manifest: m})
}

// Restore replays a snapshot. The caller must echo "RESTORE <backupId>".
// A running restore is reported before any body error.
func (h *Backup) Restore(w http.ResponseWriter, r *http.Request) {
	var req request.RestoreBackup
	if err := request.Decode(r, &req); err != nil {
		if st, serr := h.svc.Status(r.Context()); serr == nil && st.RestoreInProgress {
			response.WriteError(w, http.StatusLocked, model.ErrRestoreInProgress)
			return
		}
		rejectBody(w, r, err)
		return
	}

	logs, err := h.svc.Restore(r.Context(), core.RestoreInput{
		BackupID:    req.BackupID,
		ConfirmText: req.ConfirmText,
	})
	if err != nil {
		body := response.ErrorBody{}
		if logs != nil {
			body.Logs = logs
		}
		writeServiceError(w, r, err, body)
		return
	}
	response.WriteJSON(w, http.StatusOK, restoreResponse{OK: true, Logs: logs})
}

// Status reports whether a restore is running.
func (h *Backup) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeServiceError(w, r, err, response.ErrorBody{})
		return
	}
	response.WriteJSON(w, http.StatusOK, statusResponse{OK: true, RestoreInProgress: st.RestoreInProgress})
}
