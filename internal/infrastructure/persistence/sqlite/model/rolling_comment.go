package model

type RollingComment struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Repo        string `gorm:"column:repo;type:text;not null;uniqueIndex:idx_rolling_comments_repo_issue"`
	IssueNumber int    `gorm:"column:issue_number;not null;uniqueIndex:idx_rolling_comments_repo_issue"`
	CommentID   int64  `gorm:"column:comment_id;not null"`
	UpdatedAt   string `gorm:"column:updated_at;type:text;not null"`
}

func (RollingComment) TableName() string {
	return "relay_rolling_comments"
}
