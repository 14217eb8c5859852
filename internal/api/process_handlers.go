package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/intake"
	"github.com/vrsandeep/qa-harvest/internal/jobs"
	"github.com/vrsandeep/qa-harvest/internal/models"
	"github.com/vrsandeep/qa-harvest/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// multipartMemory is how much of an upload is held in memory before spilling
// to temporary files.
const multipartMemory = 32 << 20

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleProcess accepts the template (`excel`) and the documents (`pdfs[]`)
// and starts a job.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if limit := s.app.Config.Upload.MaxBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "Upload is too large")
			return
		}
		RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var req jobs.StartRequest
	if ts := r.MultipartForm.File["excel"]; len(ts) > 0 {
		data, err := readPart(ts[0])
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Could not read template")
			return
		}
		req.Template = data
	}

	var uploads []*multipart.FileHeader
	uploads = append(uploads, r.MultipartForm.File["pdfs[]"]...)
	uploads = append(uploads, r.MultipartForm.File["pdfs"]...)
	for _, fh := range uploads {
		data, err := readPart(fh)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Could not read %s", fh.Filename))
			return
		}
		req.Files = append(req.Files, models.FileDescriptor{Name: fh.Filename, Data: data})
	}

	job, err := s.app.Jobs.Start(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, jobs.ErrJobRunning):
		RespondWithError(w, http.StatusConflict, "A job is already running")
		return
	case errors.Is(err, jobs.ErrNoTemplate),
		errors.Is(err, report.ErrInvalidTemplate),
		errors.Is(err, intake.ErrNoDocuments):
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	default:
		log.Error().Err(err).Msg("Failed to start job")
		RespondWithError(w, http.StatusInternalServerError, "Failed to start job")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Processing started",
		"job_id":  job.ID,
		"total":   job.Total(),
	})
}

// handleStatus returns the progress messages published since the last poll.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Jobs.Poll())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.app.Jobs.Current()
	if !ok {
		RespondWithError(w, http.StatusNotFound, "No job has been started")
		return
	}
	RespondWithJSON(w, http.StatusOK, snap)
}

// handleGetResult serves the rendered report of a completed job.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	art, err := s.app.Jobs.Result(r.URL.Query().Get("job_id"))
	if err != nil {
		if errors.Is(err, jobs.ErrResultNotReady) {
			RespondWithError(w, http.StatusNotFound, "The report is not ready yet")
			return
		}
		RespondWithError(w, http.StatusNotFound, "No report found for this job")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		log.Warn().Err(err).Str("job_id", art.JobID).Msg("Failed to send report")
	}
}
