package relay

import (
	"fmt"
	"strings"
	"text/template"
)

// Marker is the literal first line of every rolling status comment. It is
// the sole signal the upserter uses to recognize its own comment on a scan
// fallback, so it must never change shape across renders.
const Marker = "<!-- RELAY_STATUS v2 -->"

// ActivityEntry is one row of the Recent Activity section.
type ActivityEntry struct {
	Time      string // HH:MMZ
	EventType string
	Agent     string
}

// RenderInput is everything the rolling status template needs. It carries
// no forge client and no clock — Render is a pure function of its input,
// so a given input always produces the same byte-exact body.
type RenderInput struct {
	IssueNumber int

	Status       string // derived from the first "status:" label, or "" for n/a
	Labels       []string
	OwnerLogin   string // "" means unassigned

	Environment  string // "" means n/a
	PR           int    // 0 means n/a
	CommitShort  string // "" means n/a; the caller's claimed commit
	PRHeadShort  string // "" means unknown; the forge's actual PR head, shown on an UNVERIFIED downgrade
	Verified     *bool  // nil means n/a

	DevSummary string // "" means n/a

	Verdict      string // "" means n/a
	ScopeResults []ScopeResult
	EvidenceURLs []string

	RecentActivity []ActivityEntry
}

const rollingStatusTemplate = Marker + `
## Relay Status — ISSUE #{{.IssueNumber}}

**Current State**
- Status: {{.StatusOrNA}}
- Labels: {{.LabelsJoined}}
- Owner: {{.OwnerOrUnassigned}}

**Build Provenance**
- Environment: {{.EnvironmentOrNA}}
- PR: {{.PROrNA}}
- Commit: {{.CommitOrNA}}
- Provenance: {{.ProvenanceText}}

**Latest Dev Update**
{{.DevSummaryOrNA}}

**Latest QA Result**
- Verdict: {{.VerdictOrNA}}
- Scope results: {{.ScopeResultsText}}
- Evidence: {{.EvidenceText}}

**Recent Activity**
{{.ActivityText}}
`

// renderView adapts RenderInput into the string-valued fields the template
// actually substitutes, keeping all n/a-fallback and formatting logic out
// of the template itself.
type renderView struct {
	RenderInput
}

func (v renderView) StatusOrNA() string {
	return noneIfEmpty(v.Status, "n/a")
}

func (v renderView) LabelsJoined() string {
	if len(v.Labels) == 0 {
		return "n/a"
	}
	return strings.Join(v.Labels, ", ")
}

func (v renderView) OwnerOrUnassigned() string {
	if v.OwnerLogin == "" {
		return "unassigned"
	}
	return "@" + v.OwnerLogin
}

func (v renderView) EnvironmentOrNA() string {
	return noneIfEmpty(v.Environment, "n/a")
}

func (v renderView) PROrNA() string {
	if v.PR == 0 {
		return "n/a"
	}
	return fmt.Sprintf("#%d", v.PR)
}

func (v renderView) CommitOrNA() string {
	return noneIfEmpty(v.CommitShort, "n/a")
}

func (v renderView) ProvenanceText() string {
	if v.Verified == nil {
		return "n/a"
	}
	if *v.Verified {
		return "VERIFIED (matches PR head)"
	}
	return fmt.Sprintf("UNVERIFIED (PR head: `%s`)", noneIfEmpty(v.PRHeadShort, "unknown"))
}

func (v renderView) DevSummaryOrNA() string {
	return noneIfEmpty(v.DevSummary, "n/a")
}

func (v renderView) VerdictOrNA() string {
	if v.Verdict == "" {
		return "n/a"
	}
	return "`" + v.Verdict + "`"
}

func (v renderView) ScopeResultsText() string {
	if len(v.ScopeResults) == 0 {
		return "n/a"
	}
	var b strings.Builder
	for _, sr := range v.ScopeResults {
		b.WriteString("\n  - ")
		b.WriteString(sr.ID)
		b.WriteString(": ")
		b.WriteString(sr.Status)
		if sr.Notes != "" {
			b.WriteString(" — ")
			b.WriteString(sr.Notes)
		}
	}
	return b.String()
}

func (v renderView) EvidenceText() string {
	if len(v.EvidenceURLs) == 0 {
		return "n/a"
	}
	return strings.Join(v.EvidenceURLs, ", ")
}

func (v renderView) ActivityText() string {
	if len(v.RecentActivity) == 0 {
		return "n/a"
	}
	entries := v.RecentActivity
	if len(entries) > 5 {
		entries = entries[len(entries)-5:]
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("- %s — %s — %s", e.Time, e.EventType, e.Agent))
	}
	return b.String()
}

func noneIfEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

var rollingStatusTmpl = template.Must(template.New("rolling_status").Parse(rollingStatusTemplate))

// Render produces the rolling status comment body for in. It is a pure
// function: identical input always yields the identical byte-exact body.
func Render(in RenderInput) (string, error) {
	var b strings.Builder
	if err := rollingStatusTmpl.Execute(&b, renderView{in}); err != nil {
		return "", fmt.Errorf("render rolling status: %w", err)
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}
