package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	domainrelay "forgerelay/internal/domain/relay"
	"forgerelay/internal/ports"
	relayusecase "forgerelay/internal/usecase/relay"
)

type scopeResultWire struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type buildWire struct {
	CommitSHA string `json:"commit_sha,omitempty"`
	PR        int    `json:"pr,omitempty"`
}

type eventRequest struct {
	EventID        string            `json:"event_id"`
	Repo           string            `json:"repo"`
	IssueNumber    int               `json:"issue_number"`
	EventType      string            `json:"event_type"`
	Role           string            `json:"role"`
	Agent          string            `json:"agent"`
	Environment    string            `json:"environment,omitempty"`
	OverallVerdict string            `json:"overall_verdict,omitempty"`
	Build          *buildWire        `json:"build,omitempty"`
	ScopeResults   []scopeResultWire `json:"scope_results,omitempty"`
	Severity       string            `json:"severity,omitempty"`
	ReproSteps     string            `json:"repro_steps,omitempty"`
	Expected       string            `json:"expected,omitempty"`
	Actual         string            `json:"actual,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	EvidenceURLs   []string          `json:"evidence_urls,omitempty"`
	Artifacts      []string          `json:"artifacts,omitempty"`
	Details        map[string]any    `json:"details,omitempty"`
}

type eventResponse struct {
	OK                 bool   `json:"ok"`
	EventID            string `json:"event_id"`
	Stored             *bool  `json:"stored,omitempty"`
	Idempotent         *bool  `json:"idempotent,omitempty"`
	RollingCommentID   *int64 `json:"rolling_comment_id,omitempty"`
	Verdict            string `json:"verdict,omitempty"`
	ProvenanceVerified *bool  `json:"provenance_verified,omitempty"`
}

type conflictResponse struct {
	Error        string `json:"error"`
	ExistingHash string `json:"existing_hash"`
	NewHash      string `json:"new_hash"`
}

func (a *API) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	in := relayusecase.IngestEventInput{
		EventID:        req.EventID,
		Repo:           req.Repo,
		IssueNumber:    req.IssueNumber,
		EventType:      req.EventType,
		Role:           req.Role,
		Agent:          req.Agent,
		Environment:    req.Environment,
		OverallVerdict: req.OverallVerdict,
		Severity:       req.Severity,
		ReproSteps:     req.ReproSteps,
		Expected:       req.Expected,
		Actual:         req.Actual,
		Summary:        req.Summary,
		EvidenceURLs:   req.EvidenceURLs,
		Artifacts:      req.Artifacts,
		Details:        req.Details,
	}
	if req.Build != nil {
		in.Build = &relayusecase.BuildInput{CommitSHA: req.Build.CommitSHA, PR: req.Build.PR}
	}
	for _, sr := range req.ScopeResults {
		in.ScopeResults = append(in.ScopeResults, domainrelay.ScopeResult{ID: sr.ID, Status: sr.Status, Notes: sr.Notes})
	}

	result, err := a.relay.IngestEvent(r.Context(), in)
	if err != nil {
		var validationErr *relayusecase.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, validationErr.Error(), nil)
			return
		}
		var forgeErr *ports.ForgeError
		if errors.As(err, &forgeErr) {
			writeError(w, http.StatusInternalServerError, "forge request failed", forgeErr.Body)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	if result.Conflict != nil {
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error:        "event_id reused with a different payload",
			ExistingHash: result.Conflict.ExistingHash,
			NewHash:      result.Conflict.NewHash,
		})
		return
	}

	resp := eventResponse{OK: result.OK, EventID: result.EventID, Verdict: result.Verdict, ProvenanceVerified: result.ProvenanceVerified}
	if result.Idempotent {
		idempotent := true
		resp.Idempotent = &idempotent
		writeJSON(w, http.StatusOK, resp)
		return
	}

	stored := result.Stored
	resp.Stored = &stored
	if result.RollingCommentID != 0 {
		id := result.RollingCommentID
		resp.RollingCommentID = &id
	}
	writeJSON(w, http.StatusCreated, resp)
}
