package relay

import "fmt"

// Verdict is the closed set of outcomes a DEV or QA event can report.
type Verdict string

const (
	VerdictPass             Verdict = "PASS"
	VerdictFail             Verdict = "FAIL"
	VerdictBlocked          Verdict = "BLOCKED"
	VerdictPassUnverified   Verdict = "PASS_UNVERIFIED"
	VerdictFailUnconfirmed  Verdict = "FAIL_UNCONFIRMED"
)

func ParseVerdict(raw string) (Verdict, error) {
	switch Verdict(raw) {
	case VerdictPass, VerdictFail, VerdictBlocked, VerdictPassUnverified, VerdictFailUnconfirmed:
		return Verdict(raw), nil
	default:
		return "", fmt.Errorf("unsupported overall_verdict %q", raw)
	}
}

// RequiresFailureDetail reports whether a verdict carries the FAIL/BLOCKED
// conditional-required fields (severity, repro_steps, expected, actual).
func (v Verdict) RequiresFailureDetail() bool {
	return v == VerdictFail || v == VerdictBlocked
}

// EffectiveVerdict applies the provenance downgrade rule: a reported PASS
// becomes PASS_UNVERIFIED when the commit could not be confirmed against
// the PR head. Every other verdict passes through unchanged. verified is
// nil when provenance verification was not applicable (no pr/commit_sha).
func EffectiveVerdict(reported Verdict, verified *bool) Verdict {
	if verified != nil && !*verified && reported == VerdictPass {
		return VerdictPassUnverified
	}
	return reported
}

// Role is the emitting agent's role.
type Role string

const (
	RoleQA      Role = "QA"
	RoleDev     Role = "DEV"
	RolePM      Role = "PM"
	RoleMentor  Role = "MENTOR"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleQA, RoleDev, RolePM, RoleMentor:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unsupported role %q", raw)
	}
}

// Environment is optional metadata about where the reported work ran.
type Environment string

const (
	EnvironmentPreview    Environment = "preview"
	EnvironmentProduction Environment = "production"
	EnvironmentDev        Environment = "dev"
)

func ParseEnvironment(raw string) (Environment, error) {
	switch Environment(raw) {
	case EnvironmentPreview, EnvironmentProduction, EnvironmentDev:
		return Environment(raw), nil
	default:
		return "", fmt.Errorf("unsupported environment %q", raw)
	}
}

// Severity ranks how bad a FAIL/BLOCKED verdict is.
type Severity string

const (
	SeverityP0 Severity = "P0"
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"
)

func ParseSeverity(raw string) (Severity, error) {
	switch Severity(raw) {
	case SeverityP0, SeverityP1, SeverityP2, SeverityP3:
		return Severity(raw), nil
	default:
		return "", fmt.Errorf("unsupported severity %q", raw)
	}
}

// ScopeStatus is the outcome of a single named scope-result entry.
type ScopeStatus string

const (
	ScopeStatusPass    ScopeStatus = "PASS"
	ScopeStatusFail    ScopeStatus = "FAIL"
	ScopeStatusSkipped ScopeStatus = "SKIPPED"
)

func ParseScopeStatus(raw string) (ScopeStatus, error) {
	switch ScopeStatus(raw) {
	case ScopeStatusPass, ScopeStatusFail, ScopeStatusSkipped:
		return ScopeStatus(raw), nil
	default:
		return "", fmt.Errorf("unsupported scope_results status %q", raw)
	}
}
