package relay

import (
	"context"

	"forgerelay/internal/domain/relay"
	"forgerelay/internal/ports"
)

// applyLabelTransition resolves the declarative rule for (eventType,
// verdict) and, if it changes the label set, issues exactly one atomic
// replace against the forge.
func (s *Service) applyLabelTransition(ctx context.Context, client ports.ForgeClient, repo string, issueNumber int, currentLabels []string, eventType string, verdict relay.Verdict) error {
	rule, ok := s.labelRules.Current().Resolve(eventType, verdict)
	if !ok {
		return nil
	}

	next, changed := relay.NextLabels(currentLabels, rule)
	if !changed {
		return nil
	}

	return client.PutLabels(ctx, repo, issueNumber, next)
}
