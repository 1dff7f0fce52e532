package model

import (
	"errors"
	"time"
)

// SubmissionHistoryModel 提交单操作历史数据模型
// 只追加,创建后不再更新或删除,提交单逻辑删除后历史依然保留
type SubmissionHistoryModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	SubmissionID string    `gorm:"type:varchar(64);not null;index"`
	Action       string    `gorm:"type:varchar(32);not null;index"` // created/updated/sent/approved/rejected/cancelled/deleted
	ActorID      string    `gorm:"type:varchar(64);not null;index"`
	Comment      string    `gorm:"type:text"`
	FromStatus   *string   `gorm:"type:varchar(32)"`
	ToStatus     *string   `gorm:"type:varchar(32)"`
	Changes      []byte    `gorm:"type:jsonb"` // 变更前数据快照
	IP           string    `gorm:"type:varchar(45)"`
	UserAgent    string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (SubmissionHistoryModel) TableName() string {
	return "submission_history"
}

// Validate 验证历史模型
func (hm *SubmissionHistoryModel) Validate() error {
	if hm.ID == "" {
		return errors.New("history ID is required")
	}
	if hm.SubmissionID == "" {
		return errors.New("submission ID is required")
	}
	if hm.Action == "" {
		return errors.New("action is required")
	}
	if hm.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}
