package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brieflyhq/briefly-back/internal/http/middleware"
	"github.com/brieflyhq/briefly-back/internal/notify"
	"github.com/brieflyhq/briefly-back/internal/observer"
	"github.com/brieflyhq/briefly-back/internal/repository"
	"github.com/brieflyhq/briefly-back/internal/service"
)

var errInvalidPayload = errors.New("invalid payload")

type API struct {
	uploads  *service.UploadsService
	payments *service.PaymentsService
	jobs     repository.SummaryJobsRepository
	observer *observer.Observer
	notifier notify.Notifier

	maxUploadBytes int64
	watchCeiling   time.Duration
}

type APIDependencies struct {
	Uploads  *service.UploadsService
	Payments *service.PaymentsService
	Jobs     repository.SummaryJobsRepository
	Observer *observer.Observer
	Notifier notify.Notifier

	MaxUploadBytes int64
	WatchCeiling   time.Duration
}

func NewAPI(deps APIDependencies) *API {
	if deps.WatchCeiling <= 0 {
		deps.WatchCeiling = 120 * time.Second
	}
	return &API{
		uploads:        deps.Uploads,
		payments:       deps.Payments,
		jobs:           deps.Jobs,
		observer:       deps.Observer,
		notifier:       deps.Notifier,
		maxUploadBytes: deps.MaxUploadBytes,
		watchCeiling:   deps.WatchCeiling,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}
