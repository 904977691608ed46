package model

type Evidence struct {
	ID          string `gorm:"column:id;primaryKey;type:text"`
	Repo        string `gorm:"column:repo;type:text;not null;index"`
	IssueNumber int    `gorm:"column:issue_number;not null"`
	EventID     string `gorm:"column:event_id;type:text"`
	Filename    string `gorm:"column:filename;type:text;not null"`
	ContentType string `gorm:"column:content_type;type:text;not null"`
	SizeBytes   int64  `gorm:"column:size_bytes;not null"`
	ObjectKey   string `gorm:"column:object_key;type:text;not null"`
	CreatedAt   string `gorm:"column:created_at;type:text;not null"`
}

func (Evidence) TableName() string {
	return "relay_evidence"
}
