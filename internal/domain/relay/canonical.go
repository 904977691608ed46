package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/tidwall/sjson"
)

// Build is the optional provenance claim attached to an event.
type Build struct {
	CommitSHA string `json:"commit_sha"`
	PR        int    `json:"pr,omitempty"`
}

// ScopeResult is one named check within a QA/DEV run.
type ScopeResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// NormalizedEvent is the validator's output: every field coerced and
// defaulted exactly once, ready to be canonically serialized, hashed, and
// stored verbatim. OverallVerdict here is the caller's REPORTED verdict,
// never the provenance-downgraded effective verdict — the hash must stay
// reproducible across resubmission regardless of the forge's current PR
// head, so provenance never participates in canonicalization.
type NormalizedEvent struct {
	EventID        string
	Repo           string
	IssueNumber    int
	EventType      string
	Role           string
	Agent          string
	Environment    string
	OverallVerdict string
	Build          *Build
	ScopeResults   []ScopeResult
	Severity       string
	ReproSteps     string
	Expected       string
	Actual         string
	Summary        string
	EvidenceURLs   []string
	Artifacts      []string
	Details        map[string]any
}

// CanonicalJSON renders the event with a fixed key order so that
// payload_hash is byte-for-byte reproducible regardless of map iteration
// order or struct field order. Keys are written in a stable sequence with
// sjson.Set, which preserves insertion order unlike encoding/json's map
// marshaling.
func CanonicalJSON(ev NormalizedEvent) (string, error) {
	doc := "{}"
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, path, value)
	}

	set("event_id", ev.EventID)
	set("repo", ev.Repo)
	set("issue_number", ev.IssueNumber)
	set("event_type", ev.EventType)
	set("role", ev.Role)
	set("agent", ev.Agent)
	if ev.Environment != "" {
		set("environment", ev.Environment)
	}
	if ev.OverallVerdict != "" {
		set("overall_verdict", ev.OverallVerdict)
	}
	if ev.Build != nil {
		set("build.commit_sha", ev.Build.CommitSHA)
		if ev.Build.PR > 0 {
			set("build.pr", ev.Build.PR)
		}
	}
	if len(ev.ScopeResults) > 0 {
		for i, sr := range ev.ScopeResults {
			set(sjsonIndex("scope_results", i, "id"), sr.ID)
			set(sjsonIndex("scope_results", i, "status"), sr.Status)
			if sr.Notes != "" {
				set(sjsonIndex("scope_results", i, "notes"), sr.Notes)
			}
		}
	}
	if ev.Severity != "" {
		set("severity", ev.Severity)
	}
	if ev.ReproSteps != "" {
		set("repro_steps", ev.ReproSteps)
	}
	if ev.Expected != "" {
		set("expected", ev.Expected)
	}
	if ev.Actual != "" {
		set("actual", ev.Actual)
	}
	if ev.Summary != "" {
		set("summary", ev.Summary)
	}
	if len(ev.EvidenceURLs) > 0 {
		set("evidence_urls", ev.EvidenceURLs)
	}
	if len(ev.Artifacts) > 0 {
		set("artifacts", ev.Artifacts)
	}
	if len(ev.Details) > 0 {
		set("details", ev.Details)
	}

	if err != nil {
		return "", err
	}
	return doc, nil
}

func sjsonIndex(root string, i int, field string) string {
	return root + "." + strconv.Itoa(i) + "." + field
}

// PayloadHash is the SHA-256 hex digest of a canonical payload string.
func PayloadHash(canonicalJSON string) string {
	sum := sha256.Sum256([]byte(canonicalJSON))
	return hex.EncodeToString(sum[:])
}
