package model

type Event struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	EventID         string `gorm:"column:event_id;type:text;not null;uniqueIndex"`
	Repo            string `gorm:"column:repo;type:text;not null;index:idx_events_repo_issue"`
	IssueNumber     int    `gorm:"column:issue_number;not null;index:idx_events_repo_issue"`
	EventType       string `gorm:"column:event_type;type:text;not null;index"`
	Role            string `gorm:"column:role;type:text;not null"`
	Agent           string `gorm:"column:agent;type:text;not null"`
	Environment     string `gorm:"column:environment;type:text"`
	OverallVerdict  string `gorm:"column:overall_verdict;type:text"`
	ReportedVerdict string `gorm:"column:reported_verdict;type:text"`
	PayloadHash     string `gorm:"column:payload_hash;type:text;not null"`
	PayloadJSON     string `gorm:"column:payload_json;type:text;not null"`
	CreatedAt       string `gorm:"column:created_at;type:text;not null;index"`
}

func (Event) TableName() string {
	return "relay_events"
}
