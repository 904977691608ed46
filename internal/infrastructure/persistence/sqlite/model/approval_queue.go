package model

// ApprovalQueue mirrors the forward-compatible extension table named in
// the storage schema. ApprovalQueueRepository can insert rows, but nothing
// in the ingestion pipeline calls it; see DESIGN.md for why the core
// pipeline leaves it unreferenced.
type ApprovalQueue struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Repo        string `gorm:"column:repo;type:text;not null"`
	IssueNumber int    `gorm:"column:issue_number;not null"`
	EventID     string `gorm:"column:event_id;type:text;not null"`
	CreatedAt   string `gorm:"column:created_at;type:text;not null"`
}

func (ApprovalQueue) TableName() string {
	return "relay_approval_queue"
}
