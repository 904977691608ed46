package relay

import (
	"fmt"
	"regexp"
	"strings"

	"forgerelay/internal/domain/relay"
)

var repoPattern = regexp.MustCompile(`^[^/]+/[^/]+$`)
var shaPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// ValidateAndNormalize rejects in on the first rule it violates and
// otherwise returns the canonical normalized form the event store hashes
// and stores. Every coercion and default happens exactly once, here.
func ValidateAndNormalize(in IngestEventInput) (relay.NormalizedEvent, error) {
	eventID := strings.TrimSpace(in.EventID)
	if len(eventID) < 8 {
		return relay.NormalizedEvent{}, fmt.Errorf("event_id must be at least 8 characters")
	}

	repo := strings.TrimSpace(in.Repo)
	if !repoPattern.MatchString(repo) {
		return relay.NormalizedEvent{}, fmt.Errorf("repo must match <owner>/<name>")
	}

	if in.IssueNumber <= 0 {
		return relay.NormalizedEvent{}, fmt.Errorf("issue_number must be a positive integer")
	}

	eventType := strings.TrimSpace(in.EventType)
	if eventType == "" {
		return relay.NormalizedEvent{}, fmt.Errorf("event_type is required")
	}

	role, err := relay.ParseRole(strings.ToUpper(strings.TrimSpace(in.Role)))
	if err != nil {
		return relay.NormalizedEvent{}, err
	}

	agent := strings.TrimSpace(in.Agent)
	if len(agent) < 2 {
		return relay.NormalizedEvent{}, fmt.Errorf("agent must be at least 2 characters")
	}

	var environment relay.Environment
	if raw := strings.TrimSpace(in.Environment); raw != "" {
		environment, err = relay.ParseEnvironment(strings.ToLower(raw))
		if err != nil {
			return relay.NormalizedEvent{}, err
		}
	}

	var verdict relay.Verdict
	if raw := strings.TrimSpace(in.OverallVerdict); raw != "" {
		verdict, err = relay.ParseVerdict(strings.ToUpper(raw))
		if err != nil {
			return relay.NormalizedEvent{}, err
		}
	}

	var build *relay.Build
	if in.Build != nil {
		sha := strings.ToLower(strings.TrimSpace(in.Build.CommitSHA))
		if sha != "" && !shaPattern.MatchString(sha) {
			return relay.NormalizedEvent{}, fmt.Errorf("build.commit_sha must be 7-40 hex characters")
		}
		if in.Build.PR < 0 {
			return relay.NormalizedEvent{}, fmt.Errorf("build.pr must be a positive integer")
		}
		build = &relay.Build{CommitSHA: sha, PR: in.Build.PR}
	}

	var scopeResults []relay.ScopeResult
	if len(in.ScopeResults) > 0 {
		scopeResults = make([]relay.ScopeResult, 0, len(in.ScopeResults))
		for _, sr := range in.ScopeResults {
			id := strings.TrimSpace(sr.ID)
			if id == "" {
				return relay.NormalizedEvent{}, fmt.Errorf("scope_results[].id is required")
			}
			status, err := relay.ParseScopeStatus(strings.ToUpper(strings.TrimSpace(sr.Status)))
			if err != nil {
				return relay.NormalizedEvent{}, err
			}
			scopeResults = append(scopeResults, relay.ScopeResult{
				ID:     id,
				Status: string(status),
				Notes:  strings.TrimSpace(sr.Notes),
			})
		}
	}

	var severity relay.Severity
	reproSteps := strings.TrimSpace(in.ReproSteps)
	expected := strings.TrimSpace(in.Expected)
	actual := strings.TrimSpace(in.Actual)
	if verdict.RequiresFailureDetail() {
		severity, err = relay.ParseSeverity(strings.ToUpper(strings.TrimSpace(in.Severity)))
		if err != nil {
			return relay.NormalizedEvent{}, fmt.Errorf("severity is required for verdict %s", verdict)
		}
		if len(reproSteps) < 3 {
			return relay.NormalizedEvent{}, fmt.Errorf("repro_steps is required for verdict %s", verdict)
		}
		if len(expected) < 3 {
			return relay.NormalizedEvent{}, fmt.Errorf("expected is required for verdict %s", verdict)
		}
		if len(actual) < 3 {
			return relay.NormalizedEvent{}, fmt.Errorf("actual is required for verdict %s", verdict)
		}
	}

	return relay.NormalizedEvent{
		EventID:        eventID,
		Repo:           repo,
		IssueNumber:    in.IssueNumber,
		EventType:      eventType,
		Role:           string(role),
		Agent:          agent,
		Environment:    string(environment),
		OverallVerdict: string(verdict),
		Build:          build,
		ScopeResults:   scopeResults,
		Severity:       string(severity),
		ReproSteps:     reproSteps,
		Expected:       expected,
		Actual:         actual,
		Summary:        strings.TrimSpace(in.Summary),
		EvidenceURLs:   in.EvidenceURLs,
		Artifacts:      in.Artifacts,
		Details:        in.Details,
	}, nil
}
