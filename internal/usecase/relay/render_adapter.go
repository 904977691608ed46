package relay

import (
	"strings"

	"github.com/tidwall/gjson"

	"forgerelay/internal/domain/relay"
	"forgerelay/internal/ports"
)

const (
	eventTypeDevUpdate = "dev.update"
	eventTypeQAResult  = "qa.result_submitted"
)

// buildRenderInput assembles the rolling status template's input from the
// issue the forge returns, the latest dev/qa events in the store, the
// recent activity feed, and the provenance result for the event currently
// being ingested. Build provenance is always taken from the event that
// triggered this render, not from whichever event happens to be latest of
// its type, since that is the provenance check this pipeline run actually
// performed.
func buildRenderInput(
	issue *ports.Issue,
	norm relay.NormalizedEvent,
	verified *bool,
	prHeadSHA string,
	latestDev *ports.EventRecord,
	latestQA *ports.EventRecord,
	recent []ports.EventRecord,
) relay.RenderInput {
	in := relay.RenderInput{
		IssueNumber: issue.Number,
		Labels:      issue.Labels,
		Verified:    verified,
		PRHeadShort: relay.ShortSHA(prHeadSHA),
	}

	for _, l := range issue.Labels {
		if strings.HasPrefix(l, "status:") {
			in.Status = strings.TrimPrefix(l, "status:")
			break
		}
	}
	if len(issue.Assignees) > 0 {
		in.OwnerLogin = issue.Assignees[0]
	}

	in.Environment = norm.Environment
	if norm.Build != nil {
		in.PR = norm.Build.PR
		in.CommitShort = relay.ShortSHA(norm.Build.CommitSHA)
	}

	if latestDev != nil {
		in.DevSummary = gjson.Get(latestDev.PayloadJSON, "summary").String()
	}

	if latestQA != nil {
		in.Verdict = latestQA.OverallVerdict
		for _, sr := range gjson.Get(latestQA.PayloadJSON, "scope_results").Array() {
			in.ScopeResults = append(in.ScopeResults, relay.ScopeResult{
				ID:     sr.Get("id").String(),
				Status: sr.Get("status").String(),
				Notes:  sr.Get("notes").String(),
			})
		}
		for _, u := range gjson.Get(latestQA.PayloadJSON, "evidence_urls").Array() {
			in.EvidenceURLs = append(in.EvidenceURLs, u.String())
		}
	}

	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		in.RecentActivity = append(in.RecentActivity, relay.ActivityEntry{
			Time:      e.CreatedAt.UTC().Format("15:04Z"),
			EventType: e.EventType,
			Agent:     e.Agent,
		})
	}

	return in
}
