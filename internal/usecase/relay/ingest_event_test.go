package relay

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	domainrelay "forgerelay/internal/domain/relay"
	"forgerelay/internal/ports"
)

// stubEventRepository is an in-memory ports.EventRepository, hand-written
// rather than mocked.
type stubEventRepository struct {
	byID  map[string]ports.EventRecord
	order []string

	// raceWinner, when set, simulates a concurrent Insert that committed
	// first under a different caller's transaction: the first
	// FindByEventID call still sees no row (so the caller proceeds to
	// Insert), Insert then returns ports.ErrDuplicateEventID instead of
	// storing rec, and every FindByEventID call after that sees the
	// winner's row, as a real unique-index race would.
	raceWinner    *ports.EventRecord
	findByIDCalls int
}

func newStubEventRepository() *stubEventRepository {
	return &stubEventRepository{byID: map[string]ports.EventRecord{}}
}

func (s *stubEventRepository) FindByEventID(_ context.Context, eventID string) (*ports.EventRecord, error) {
	s.findByIDCalls++
	if s.raceWinner != nil && s.raceWinner.EventID == eventID && s.findByIDCalls > 1 {
		winner := *s.raceWinner
		return &winner, nil
	}
	if rec, ok := s.byID[eventID]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *stubEventRepository) Insert(_ context.Context, rec ports.EventRecord) error {
	if s.raceWinner != nil && s.raceWinner.EventID == rec.EventID {
		return ports.ErrDuplicateEventID
	}
	s.byID[rec.EventID] = rec
	s.order = append(s.order, rec.EventID)
	return nil
}

func (s *stubEventRepository) LatestByType(_ context.Context, repo string, issueNumber int, eventType string) (*ports.EventRecord, error) {
	var latest *ports.EventRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.byID[s.order[i]]
		if rec.Repo == repo && rec.IssueNumber == issueNumber && rec.EventType == eventType {
			latest = &rec
			break
		}
	}
	return latest, nil
}

func (s *stubEventRepository) RecentActivity(_ context.Context, repo string, issueNumber int, limit int) ([]ports.EventRecord, error) {
	var out []ports.EventRecord
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.byID[s.order[i]]
		if rec.Repo == repo && rec.IssueNumber == issueNumber {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubRollingCommentRepository struct {
	mapping *ports.RollingCommentMapping
}

func (s *stubRollingCommentRepository) Find(_ context.Context, repo string, issueNumber int) (*ports.RollingCommentMapping, error) {
	if s.mapping == nil {
		return nil, nil
	}
	return s.mapping, nil
}

func (s *stubRollingCommentRepository) Upsert(_ context.Context, repo string, issueNumber int, commentID int64) error {
	s.mapping = &ports.RollingCommentMapping{Repo: repo, IssueNumber: issueNumber, CommentID: commentID, UpdatedAt: time.Now().UTC()}
	return nil
}

type stubUnitOfWork struct{}

func (stubUnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubObjectStore struct{}

func (stubObjectStore) Put(context.Context, string, io.Reader, int64, string, map[string]string) error {
	return nil
}

func (stubObjectStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, nil
}

// stubForgeClient is a hand-written ports.ForgeClient double. prHeadSHAByPR
// lets a test fix what each PR's head SHA resolves to; comments/labels
// are recorded for assertions.
type stubForgeClient struct {
	prHeadSHAByPR map[int]string
	issue         ports.Issue
	comments      []ports.Comment
	nextCommentID int64
	putLabelsCall [][]string
	updateCalls   int
	updateErr     error
}

func (c *stubForgeClient) PRHeadSHA(_ context.Context, _ string, pr int) (string, error) {
	return c.prHeadSHAByPR[pr], nil
}

func (c *stubForgeClient) GetIssue(_ context.Context, _ string, _ int) (*ports.Issue, error) {
	issue := c.issue
	return &issue, nil
}

func (c *stubForgeClient) ListComments(_ context.Context, _ string, _ int, page int) ([]ports.Comment, error) {
	if page > 1 {
		return nil, nil
	}
	return c.comments, nil
}

func (c *stubForgeClient) CreateComment(_ context.Context, _ string, _ int, body string) (*ports.Comment, error) {
	c.nextCommentID++
	comment := ports.Comment{ID: c.nextCommentID, Body: body}
	c.comments = append(c.comments, comment)
	return &comment, nil
}

func (c *stubForgeClient) UpdateComment(_ context.Context, _ string, commentID int64, body string) error {
	c.updateCalls++
	if c.updateErr != nil {
		return c.updateErr
	}
	for i, existing := range c.comments {
		if existing.ID == commentID {
			c.comments[i].Body = body
			return nil
		}
	}
	return nil
}

func (c *stubForgeClient) PutLabels(_ context.Context, _ string, _ int, labels []string) error {
	c.putLabelsCall = append(c.putLabelsCall, labels)
	c.issue.Labels = labels
	return nil
}

func newTestService(t *testing.T, events *stubEventRepository, rolling *stubRollingCommentRepository, client *stubForgeClient, labelRuleJSON string) *Service {
	t.Helper()

	labelRules, err := domainrelay.ParseLabelRules([]byte(labelRuleJSON))
	if err != nil {
		t.Fatalf("ParseLabelRules() error = %v", err)
	}

	return &Service{
		events:          events,
		rollingComments: rolling,
		evidence:        nil,
		uow:             stubUnitOfWork{},
		objectStore:     nil,
		forgeFactory:    func(context.Context) (ports.ForgeClient, error) { return client, nil },
		labelRules:      domainrelay.NewLabelRuleStore(labelRules),
	}
}

func happyPathInput() IngestEventInput {
	return IngestEventInput{
		EventID:        "evt-00000001",
		Repo:           "acme/web",
		IssueNumber:    42,
		Role:           "QA",
		Agent:          "qa-bot",
		EventType:      "qa.result_submitted",
		OverallVerdict: "PASS",
		Build:          &BuildInput{PR: 7, CommitSHA: "abc1234def"},
	}
}

// Scenario 1: happy path, new event.
func TestIngestEventHappyPath(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{prHeadSHAByPR: map[int]string{7: "abc1234def"}, issue: ports.Issue{Number: 42, Labels: []string{"status:qa"}}}
	svc := newTestService(t, events, rolling, client, "{}")

	result, err := svc.IngestEvent(context.Background(), happyPathInput())
	if err != nil {
		t.Fatalf("IngestEvent() error = %v", err)
	}
	if !result.OK || !result.Stored {
		t.Fatalf("IngestEvent() result = %+v, want OK and Stored", result)
	}
	if result.Verdict != "PASS" {
		t.Fatalf("IngestEvent() verdict = %q, want PASS", result.Verdict)
	}
	if result.ProvenanceVerified == nil || !*result.ProvenanceVerified {
		t.Fatalf("IngestEvent() provenance_verified = %v, want true", result.ProvenanceVerified)
	}
	if len(client.comments) != 1 {
		t.Fatalf("rolling comment created count = %d, want 1", len(client.comments))
	}
	if !strings.HasPrefix(client.comments[0].Body, domainrelay.Marker) {
		t.Fatalf("rolling comment body does not start with marker: %s", client.comments[0].Body)
	}
}

// Scenario 2: provenance downgrade.
func TestIngestEventProvenanceDowngrade(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{prHeadSHAByPR: map[int]string{7: "ffffffffff"}, issue: ports.Issue{Number: 42, Labels: []string{"status:qa"}}}
	svc := newTestService(t, events, rolling, client, "{}")

	result, err := svc.IngestEvent(context.Background(), happyPathInput())
	if err != nil {
		t.Fatalf("IngestEvent() error = %v", err)
	}
	if result.Verdict != "PASS_UNVERIFIED" {
		t.Fatalf("IngestEvent() verdict = %q, want PASS_UNVERIFIED", result.Verdict)
	}
	if result.ProvenanceVerified == nil || *result.ProvenanceVerified {
		t.Fatalf("IngestEvent() provenance_verified = %v, want false", result.ProvenanceVerified)
	}
	if len(client.comments) != 1 {
		t.Fatalf("rolling comment created count = %d, want 1", len(client.comments))
	}
	if !strings.Contains(client.comments[0].Body, "UNVERIFIED (PR head: `fffffff`)") {
		t.Fatalf("rolling comment body missing PR head detail:\n%s", client.comments[0].Body)
	}

	stored, err := events.FindByEventID(context.Background(), "evt-00000001")
	if err != nil {
		t.Fatalf("FindByEventID() error = %v", err)
	}
	if stored.OverallVerdict != "PASS_UNVERIFIED" {
		t.Fatalf("stored overall_verdict = %q, want PASS_UNVERIFIED", stored.OverallVerdict)
	}
	if stored.ReportedVerdict != "PASS" {
		t.Fatalf("stored reported_verdict = %q, want PASS", stored.ReportedVerdict)
	}
}

// Scenario 3: idempotent replay.
func TestIngestEventIdempotentReplay(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{prHeadSHAByPR: map[int]string{7: "abc1234def"}, issue: ports.Issue{Number: 42, Labels: []string{"status:qa"}}}
	svc := newTestService(t, events, rolling, client, "{}")

	ctx := context.Background()
	if _, err := svc.IngestEvent(ctx, happyPathInput()); err != nil {
		t.Fatalf("first IngestEvent() error = %v", err)
	}
	commentsAfterFirst := len(client.comments)
	putLabelsAfterFirst := len(client.putLabelsCall)

	result, err := svc.IngestEvent(ctx, happyPathInput())
	if err != nil {
		t.Fatalf("second IngestEvent() error = %v", err)
	}
	if !result.OK || !result.Idempotent {
		t.Fatalf("second IngestEvent() result = %+v, want idempotent", result)
	}
	if len(client.comments) != commentsAfterFirst {
		t.Fatalf("comment count after replay = %d, want unchanged %d", len(client.comments), commentsAfterFirst)
	}
	if len(client.putLabelsCall) != putLabelsAfterFirst {
		t.Fatalf("label write count after replay = %d, want unchanged %d", len(client.putLabelsCall), putLabelsAfterFirst)
	}
}

// Scenario 4: payload conflict.
func TestIngestEventPayloadConflict(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{prHeadSHAByPR: map[int]string{7: "abc1234def"}, issue: ports.Issue{Number: 42, Labels: []string{"status:qa"}}}
	svc := newTestService(t, events, rolling, client, "{}")

	ctx := context.Background()
	if _, err := svc.IngestEvent(ctx, happyPathInput()); err != nil {
		t.Fatalf("first IngestEvent() error = %v", err)
	}

	conflicting := happyPathInput()
	conflicting.Role = "DEV"
	conflicting.Agent = "dev-bot"

	result, err := svc.IngestEvent(ctx, conflicting)
	if err != nil {
		t.Fatalf("second IngestEvent() error = %v", err)
	}
	if result.Conflict == nil {
		t.Fatal("IngestEvent() Conflict = nil, want non-nil")
	}
	if result.Conflict.ExistingHash == result.Conflict.NewHash {
		t.Fatal("IngestEvent() conflict hashes identical, want different")
	}

	stored, err := events.FindByEventID(ctx, "evt-00000001")
	if err != nil {
		t.Fatalf("FindByEventID() error = %v", err)
	}
	if stored.Role != "QA" {
		t.Fatalf("stored role = %q, want unchanged QA", stored.Role)
	}
}

func payloadHashFor(t *testing.T, in IngestEventInput) string {
	t.Helper()

	norm, err := ValidateAndNormalize(in)
	if err != nil {
		t.Fatalf("ValidateAndNormalize() error = %v", err)
	}
	canonicalJSON, err := domainrelay.CanonicalJSON(norm)
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	return domainrelay.PayloadHash(canonicalJSON)
}

// A concurrent Insert that loses the unique-index race on event_id must
// resolve into the same outcome a non-racing duplicate would: idempotent
// replay when the winner's payload matches, conflict when it doesn't.
func TestIngestEventConcurrentDuplicateInsertResolvesIdempotent(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{prHeadSHAByPR: map[int]string{7: "abc1234def"}, issue: ports.Issue{Number: 42, Labels: []string{"status:qa"}}}
	svc := newTestService(t, events, rolling, client, "{}")

	in := happyPathInput()
	events.raceWinner = &ports.EventRecord{EventID: in.EventID, PayloadHash: payloadHashFor(t, in)}

	result, err := svc.IngestEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("IngestEvent() error = %v", err)
	}
	if !result.OK || !result.Idempotent {
		t.Fatalf("IngestEvent() result = %+v, want idempotent replay of the race winner", result)
	}
	if result.Conflict != nil {
		t.Fatalf("IngestEvent() Conflict = %+v, want nil", result.Conflict)
	}
}

func TestIngestEventConcurrentDuplicateInsertResolvesConflict(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{prHeadSHAByPR: map[int]string{7: "abc1234def"}, issue: ports.Issue{Number: 42, Labels: []string{"status:qa"}}}
	svc := newTestService(t, events, rolling, client, "{}")

	in := happyPathInput()
	events.raceWinner = &ports.EventRecord{EventID: in.EventID, PayloadHash: "a-different-winner-hash"}

	result, err := svc.IngestEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("IngestEvent() error = %v", err)
	}
	if result.Conflict == nil {
		t.Fatal("IngestEvent() Conflict = nil, want non-nil")
	}
	if result.Conflict.ExistingHash != "a-different-winner-hash" {
		t.Fatalf("Conflict.ExistingHash = %q, want the race winner's hash", result.Conflict.ExistingHash)
	}
	if result.Idempotent {
		t.Fatal("IngestEvent() Idempotent = true, want false on conflict")
	}
}

// Scenario 5: FAIL without severity.
func TestIngestEventFailWithoutSeverityRejected(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{issue: ports.Issue{Number: 42}}
	svc := newTestService(t, events, rolling, client, "{}")

	in := happyPathInput()
	in.OverallVerdict = "FAIL"
	in.Severity = ""

	_, err := svc.IngestEvent(context.Background(), in)
	if err == nil {
		t.Fatal("IngestEvent() error = nil, want validation error for missing severity")
	}
	var validationErr *ValidationError
	if !isValidationError(err, &validationErr) {
		t.Fatalf("IngestEvent() error = %v, want *ValidationError", err)
	}
	if !strings.Contains(validationErr.Error(), "severity") {
		t.Fatalf("validation error = %q, want mention of severity", validationErr.Error())
	}
	if _, err := events.FindByEventID(context.Background(), in.EventID); err != nil {
		t.Fatalf("FindByEventID() error = %v", err)
	}
	if len(events.order) != 0 {
		t.Fatalf("events inserted = %d, want 0", len(events.order))
	}
}

// Scenario 6: label transition.
func TestIngestEventAppliesLabelTransition(t *testing.T) {
	t.Parallel()

	events := newStubEventRepository()
	rolling := &stubRollingCommentRepository{}
	client := &stubForgeClient{
		prHeadSHAByPR: map[int]string{7: "abc1234def"},
		issue:         ports.Issue{Number: 42, Labels: []string{"status:qa", "prio:P1"}},
	}
	rules := `{
		"qa.result_submitted": {
			"PASS": {"add": ["status:verified"], "remove": ["status:qa"]},
			"FAIL": {"add": ["status:rejected"], "remove": ["status:qa"]}
		}
	}`
	svc := newTestService(t, events, rolling, client, rules)

	if _, err := svc.IngestEvent(context.Background(), happyPathInput()); err != nil {
		t.Fatalf("IngestEvent() error = %v", err)
	}

	if len(client.putLabelsCall) != 1 {
		t.Fatalf("PutLabels call count = %d, want 1", len(client.putLabelsCall))
	}
	got := client.putLabelsCall[0]
	want := map[string]bool{"status:verified": true, "prio:P1": true}
	if len(got) != len(want) {
		t.Fatalf("PutLabels() = %v, want %v", got, want)
	}
	for _, l := range got {
		if !want[l] {
			t.Fatalf("PutLabels() = %v, unexpected label %q", got, l)
		}
	}
}

func isValidationError(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}
