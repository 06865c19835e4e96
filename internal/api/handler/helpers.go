package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	mw "github.com/edvin/backupd/internal/api/middleware"
	"github.com/edvin/backupd/internal/api/request"
	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/core"
	"github.com/edvin/backupd/internal/model"
)

// statusFor maps an operator-facing error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case model.ErrMissingBackupID, model.ErrConfirmMismatch, model.ErrInvalidBackupID,
		model.ErrMissingDBDump, model.ErrInvalidJSON, model.ErrInvalidRequest:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrRestoreInProgress:
		return http.StatusLocked
	case model.ErrTimeout:
		return http.StatusGatewayTimeout
	case model.ErrLockUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeBody decodes the request body and writes a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := request.Decode(r, v)
	if err == nil {
		return true
	}
	rejectBody(w, r, err)
	return false
}

func rejectBody(w http.ResponseWriter, r *http.Request, err error) {
	code := model.ErrInvalidJSON
	if errors.Is(err, request.ErrValidation) {
		code = model.ErrInvalidRequest
	}
	zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejected request body")
	response.WriteError(w, http.StatusBadRequest, code)
}

// writeServiceError writes the error envelope for a failed service call,
// carrying any partial manifest or logs.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, body response.ErrorBody) {
	code := core.ErrorCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("backup operation failed")
	}
	body.Error = code
	response.WriteErrorBody(w, status, body)
}

// callerName identifies the caller in manifests.
func callerName(r *http.Request) string {
	identity := mw.GetIdentity(r.Context())
	if identity == nil {
		return ""
	}
	if identity.Name != "" {
		return identity.Name
	}
	return identity.ID
}
