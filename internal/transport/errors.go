package transport

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hartwell/gridsync/internal/codec/xlsx"
	"github.com/hartwell/gridsync/internal/domain/collab"
	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/httputil"
	"github.com/hartwell/gridsync/internal/store"
)

// respondServiceError maps domain and storage errors onto HTTP statuses.
// Storage errors arrive here unchanged from the service layer.
func respondServiceError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, store.ErrAlreadyExists):
		httputil.RespondError(w, http.StatusConflict, "project already exists")
	case errors.Is(err, store.ErrVersionConflict):
		httputil.RespondError(w, http.StatusConflict, "project was modified by another session; sync and retry")
	case errors.Is(err, store.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		httputil.RespondError(w, http.StatusServiceUnavailable, "project is busy; retry")
	case errors.Is(err, store.ErrCorrupt):
		httputil.RespondError(w, http.StatusInternalServerError, "project data is unreadable")
	case errors.Is(err, collab.ErrInvalidInput),
		errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, xlsx.ErrDecode),
		errors.As(err, &verrs):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
