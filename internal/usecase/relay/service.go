package relay

import (
	"forgerelay/internal/domain/relay"
	"forgerelay/internal/ports"
)

// Service implements the relay's core pipelines: event ingestion,
// rolling-comment upsert, label transitions, and evidence storage. One
// Service instance is shared across requests; ForgeClientFactory is the
// only per-request-scoped collaborator.
type Service struct {
	events          ports.EventRepository
	rollingComments ports.RollingCommentRepository
	evidence        ports.EvidenceRepository
	uow             ports.UnitOfWork
	objectStore     ports.ObjectStore
	forgeFactory    ForgeClientFactory
	labelRules      *relay.LabelRuleStore
}

func NewService(
	events ports.EventRepository,
	rollingComments ports.RollingCommentRepository,
	evidence ports.EvidenceRepository,
	uow ports.UnitOfWork,
	objectStore ports.ObjectStore,
	forgeFactory ForgeClientFactory,
	labelRules *relay.LabelRuleStore,
) *Service {
	return &Service{
		events:          events,
		rollingComments: rollingComments,
		evidence:        evidence,
		uow:             uow,
		objectStore:     objectStore,
		forgeFactory:    forgeFactory,
		labelRules:      labelRules,
	}
}
