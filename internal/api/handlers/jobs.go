package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/goaltracker/internal/api/middleware"
	"github.com/dvloznov/goaltracker/internal/jobs"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/google/uuid"
)

// JobsHandler handles statement imports and job status endpoints.
type JobsHandler struct {
	publisher   jobs.Publisher
	store       jobs.JobStore
	maxBodySize int64
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, maxBodySize int64) *JobsHandler {
	return &JobsHandler{
		publisher:   publisher,
		store:       store,
		maxBodySize: maxBodySize,
	}
}

// EnqueueImport handles POST /api/imports. A text/csv body is imported
// inline; a JSON body names a statement location to read:
//
//	{"source": "gs://bucket/statements/march.csv", "contribute": true}
//
// ?contribute=true marks positive rows of an inline import as contributing.
func (h *JobsHandler) EnqueueImport(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	jobID := uuid.New().String()
	job := &jobs.ImportJob{
		JobID:       jobID,
		Status:      jobs.JobStatusPending,
		UserID:      user.UID,
		DisplayName: user.DisplayName,
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req struct {
			Source     string `json:"source"`
			Contribute bool   `json:"contribute"`
		}
		if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Local paths are only readable from the CLI.
		if !strings.HasPrefix(req.Source, "gs://") {
			middleware.WriteError(w, http.StatusBadRequest, "source must be a gs:// URI")
			return
		}
		job.Source = req.Source
		job.Contribute = req.Contribute
	} else {
		body := io.Reader(r.Body)
		if h.maxBodySize > 0 {
			body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
		}
		payload, err := io.ReadAll(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Statement is too large")
				return
			}
			middleware.WriteError(w, http.StatusBadRequest, "Failed to read statement")
			return
		}
		if len(payload) == 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Statement is empty")
			return
		}
		job.Payload = payload
		job.Contribute, _ = strconv.ParseBool(r.URL.Query().Get("contribute"))
	}

	source := job.Source

	// Workers own the job once it is published.
	log := logger.FromContext(r.Context())
	if err := h.publisher.PublishImport(r.Context(), job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	log.Info().Str("job_id", jobID).Str("source", source).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(jobs.JobStatusPending),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	jobID := r.PathValue("id")
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil || job.UserID != user.UID {
		if err != nil && !errors.Is(err, jobs.ErrJobNotFound) {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: user.UID,
		Status: jobs.JobStatus(query.Get("status")),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
