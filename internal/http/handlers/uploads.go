package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/brieflyhq/briefly-back/internal/observer"
	"github.com/brieflyhq/briefly-back/internal/service"
)

const multipartMemoryLimit = 32 << 20

// Upload accepts one multipart file, creates its tracking record and
// queues it for processing. The 202 response carries the record id the
// client uses to follow progress.
func (api *API) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	// MaxBytesReader caps the whole request body; the declared size is
	// validated again by the service.
	r.Body = http.MaxBytesReader(w, r.Body, api.maxUploadBytes+multipartMemoryLimit)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the size limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "no_file", "multipart form with a file field is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no_file", "no file provided")
		return
	}
	defer file.Close()

	fileType := header.Header.Get("Content-Type")
	if override := strings.TrimSpace(r.FormValue("file_type")); override != "" {
		fileType = override
	}

	job, err := api.uploads.Upload(r.Context(), service.UploadRequest{
		OwnerID:  strings.TrimSpace(r.FormValue("owner_id")),
		FileName: header.Filename,
		FileType: fileType,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoFile):
			writeError(w, r, http.StatusBadRequest, "no_file", "no file provided")
		case errors.Is(err, service.ErrInvalidFileType):
			writeError(w, r, http.StatusBadRequest, "invalid_type", "file type is not supported")
		case errors.Is(err, service.ErrFileTooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the size limit")
		case errors.Is(err, service.ErrQuotaExceeded):
			writeError(w, r, http.StatusForbidden, "quota_exceeded", "free tier record limit reached")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to accept upload")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":      job.ID,
		"status":  job.Status,
		"message": observer.StatusMessage(job.Status, job.StatusDetail),
	})
}

func isBodyTooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes)
}
