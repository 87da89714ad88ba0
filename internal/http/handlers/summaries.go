package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/brieflyhq/briefly-back/internal/observer"
	"github.com/brieflyhq/briefly-back/internal/repository"
)

// Summaries routes /v1/summaries/{id} plus its /wait and /events
// sub-resources.
func (api *API) Summaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/summaries/")
	switch {
	case strings.HasSuffix(rest, "/events"):
		api.summaryEvents(w, r, strings.TrimSuffix(rest, "/events"))
	case strings.HasSuffix(rest, "/wait"):
		api.summaryWait(w, r, strings.TrimSuffix(rest, "/wait"))
	default:
		api.summaryStatus(w, r, rest)
	}
}

func (api *API) summaryStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "summary id is required")
		return
	}

	job, err := api.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "summary not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load summary")
		return
	}

	writeJSON(w, http.StatusOK, summaryView(job))
}

// summaryWait blocks until the record reaches a terminal state or the
// wait ceiling passes. A timeout is reported as its own outcome, not an
// error: the record is untouched and may still complete.
func (api *API) summaryWait(w http.ResponseWriter, r *http.Request, jobID string) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "summary id is required")
		return
	}

	outcome, err := api.observer.Watch(r.Context(), jobID)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to observe summary")
		return
	}

	response := map[string]any{"outcome": outcome.Kind}
	if outcome.Detail != "" {
		response["message"] = outcome.Detail
	}
	if outcome.Record != nil {
		response["summary"] = summaryView(outcome.Record)
	}
	writeJSON(w, http.StatusOK, response)
}

// summaryEvents streams record updates as server-sent events until the
// record turns terminal or the wait ceiling passes. Each event carries
// the full current record; clients replace, never merge.
func (api *API) summaryEvents(w http.ResponseWriter, r *http.Request, jobID string) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "summary id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	streamCtx := r.Context()
	sub, err := api.notifier.Subscribe(streamCtx, jobID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to subscribe")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial snapshot. A record that is not visible yet is fine; the
	// first published update will cover it.
	current, err := api.jobs.GetJob(streamCtx, jobID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		sendEvent(w, flusher, "error", map[string]any{"message": "failed to load summary"})
		return
	}
	if current != nil {
		sendEvent(w, flusher, "update", summaryView(current))
		if current.Status.IsTerminal() {
			return
		}
	}

	timer := time.NewTimer(api.watchCeiling)
	defer timer.Stop()

	for {
		select {
		case <-streamCtx.Done():
			return

		case <-timer.C:
			sendEvent(w, flusher, "timeout", map[string]any{
				"message": "Processing is taking longer than expected. Please check back later.",
			})
			return

		case update, ok := <-sub.Updates():
			if !ok {
				return
			}
			sendEvent(w, flusher, "update", summaryView(update))
			if update.Status.IsTerminal() {
				return
			}
		}
	}
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, encoded)
	flusher.Flush()
}

func summaryView(job *domain.SummaryJob) map[string]any {
	view := map[string]any{
		"id":         job.ID,
		"file_name":  job.FileName,
		"file_type":  job.FileType,
		"status":     job.Status,
		"message":    observer.StatusMessage(job.Status, job.StatusDetail),
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Status == domain.StatusCompleted {
		keyPoints := job.KeyPoints
		if keyPoints == nil {
			keyPoints = []string{}
		}
		actionItems := job.ActionItems
		if actionItems == nil {
			actionItems = []string{}
		}
		view["summary"] = job.Summary
		view["key_points"] = keyPoints
		view["action_items"] = actionItems
	}
	if job.Status == domain.StatusFailed && job.StatusDetail != "" {
		view["error"] = map[string]any{
			"code":    "processing_error",
			"message": job.StatusDetail,
		}
	}
	return view
}
