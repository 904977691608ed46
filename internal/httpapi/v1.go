package httpapi

import (
	"encoding/json"
	"net/http"
)

// v1 is a thin, boundary-only convenience surface: it does no validation,
// idempotency, or rendering of its own — it forwards directly to the
// forge using a long-lived personal-access-token client.

type v1RepoIssueRequest struct {
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issue_number"`
}

type v1CommentRequest struct {
	v1RepoIssueRequest
	Body string `json:"body"`
}

type v1LabelsRequest struct {
	v1RepoIssueRequest
	Labels []string `json:"labels"`
}

type v1CommentResponse struct {
	ID int64 `json:"id"`
}

func (a *API) handleV1Directive(w http.ResponseWriter, r *http.Request) {
	a.handleV1Comment(w, r)
}

func (a *API) handleV1Comment(w http.ResponseWriter, r *http.Request) {
	var req v1CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	comment, err := a.v1.CreateComment(r.Context(), req.Repo, req.IssueNumber, req.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusCreated, v1CommentResponse{ID: comment.ID})
}

func (a *API) handleV1Close(w http.ResponseWriter, r *http.Request) {
	var req v1RepoIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	if err := a.v1.CloseIssue(r.Context(), req.Repo, req.IssueNumber); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) handleV1Labels(w http.ResponseWriter, r *http.Request) {
	var req v1LabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	if err := a.v1.PutLabels(r.Context(), req.Repo, req.IssueNumber, req.Labels); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
