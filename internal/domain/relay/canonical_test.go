package relay

import "testing"

func TestCanonicalJSONDeterministic(t *testing.T) {
	t.Parallel()

	ev := NormalizedEvent{
		EventID:        "evt-0001",
		Repo:           "acme/widgets",
		IssueNumber:    42,
		EventType:      "qa.result_submitted",
		Role:           "QA",
		Agent:          "qa-bot",
		OverallVerdict: "PASS",
		Build:          &Build{CommitSHA: "deadbeef", PR: 7},
		ScopeResults: []ScopeResult{
			{ID: "login", Status: "PASS"},
			{ID: "checkout", Status: "FAIL", Notes: "timeout"},
		},
	}

	first, err := CanonicalJSON(ev)
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	second, err := CanonicalJSON(ev)
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	if first != second {
		t.Fatalf("CanonicalJSON() not deterministic:\n%s\nvs\n%s", first, second)
	}
}

func TestCanonicalJSONIgnoresFieldOrderOfOrigin(t *testing.T) {
	t.Parallel()

	a := NormalizedEvent{EventID: "evt-0002", Repo: "acme/widgets", IssueNumber: 1, EventType: "dev.update", Role: "DEV", Agent: "dev-bot"}
	b := NormalizedEvent{Agent: "dev-bot", Role: "DEV", EventType: "dev.update", IssueNumber: 1, Repo: "acme/widgets", EventID: "evt-0002"}

	ja, err := CanonicalJSON(a)
	if err != nil {
		t.Fatalf("CanonicalJSON(a) error = %v", err)
	}
	jb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatalf("CanonicalJSON(b) error = %v", err)
	}
	if ja != jb {
		t.Fatalf("CanonicalJSON() for identical events differs:\n%s\nvs\n%s", ja, jb)
	}
}

func TestPayloadHashStableForSameCanonicalForm(t *testing.T) {
	t.Parallel()

	ev := NormalizedEvent{EventID: "evt-0003", Repo: "acme/widgets", IssueNumber: 9, EventType: "dev.update", Role: "DEV", Agent: "dev-bot", Summary: "done"}

	canonical, err := CanonicalJSON(ev)
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	h1 := PayloadHash(canonical)
	h2 := PayloadHash(canonical)
	if h1 != h2 {
		t.Fatalf("PayloadHash() not stable: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("PayloadHash() len = %d, want 64 (sha256 hex)", len(h1))
	}
}

func TestPayloadHashChangesWithContent(t *testing.T) {
	t.Parallel()

	a := NormalizedEvent{EventID: "evt-0004", Repo: "acme/widgets", IssueNumber: 9, EventType: "dev.update", Role: "DEV", Agent: "dev-bot", Summary: "done"}
	b := a
	b.Summary = "not done"

	ja, err := CanonicalJSON(a)
	if err != nil {
		t.Fatalf("CanonicalJSON(a) error = %v", err)
	}
	jb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatalf("CanonicalJSON(b) error = %v", err)
	}
	if PayloadHash(ja) == PayloadHash(jb) {
		t.Fatal("PayloadHash() identical for differing summaries")
	}
}
