package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	relayusecase "forgerelay/internal/usecase/relay"
)

const maxUploadBytes = 64 << 20

type evidenceResponse struct {
	ID          string `json:"id"`
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issue_number"`
	EventID     string `json:"event_id,omitempty"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	URL         string `json:"url"`
}

func (a *API) handlePostEvidence(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}

	repo := strings.TrimSpace(r.FormValue("repo"))
	if repo == "" {
		writeError(w, http.StatusBadRequest, "repo is required", nil)
		return
	}
	issueNumber, err := strconv.Atoi(strings.TrimSpace(r.FormValue("issue_number")))
	if err != nil || issueNumber <= 0 {
		writeError(w, http.StatusBadRequest, "issue_number must be a positive integer", nil)
		return
	}
	eventID := strings.TrimSpace(r.FormValue("event_id"))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required", nil)
		return
	}
	defer file.Close()

	filename := strings.Trim(header.Filename, `"`)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := a.relay.UploadEvidence(r.Context(), relayusecase.UploadEvidenceInput{
		Repo:        repo,
		IssueNumber: issueNumber,
		EventID:     eventID,
		Filename:    filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		var validationErr *relayusecase.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, validationErr.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, evidenceResponse{
		ID:          result.ID,
		Repo:        result.Repo,
		IssueNumber: result.IssueNumber,
		EventID:     result.EventID,
		Filename:    result.Filename,
		ContentType: result.ContentType,
		SizeBytes:   result.SizeBytes,
		URL:         result.URL,
	})
}

func (a *API) handleGetEvidence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, body, err := a.relay.GetEvidence(r.Context(), id)
	if err != nil {
		if errors.Is(err, relayusecase.ErrEvidenceNotFound) {
			writeError(w, http.StatusNotFound, "evidence not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	defer body.Close()

	sanitized := strings.ReplaceAll(rec.Filename, `"`, "")
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, sanitized))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
