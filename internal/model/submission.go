package model

import (
	"errors"
	"time"
)

// SubmissionModel 表单提交单数据模型
// version 为乐观并发计数器,payload 更新时 +1,状态迁移只校验不递增
type SubmissionModel struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)"`
	FormID        string     `gorm:"type:varchar(64);not null;index"`
	FormVersionID *string    `gorm:"type:varchar(64)"` // 为空表示使用表单当前版本
	UserID        string     `gorm:"type:varchar(64);not null;index"`
	Data          []byte     `gorm:"type:jsonb;not null"` // 提交内容,引擎不解释
	Status        string     `gorm:"type:varchar(32);not null;index"`
	Version       int        `gorm:"not null;default:1"`
	Deleted       bool       `gorm:"not null;default:false;index"` // 逻辑删除
	DeletedAt     *time.Time
	CreatedAt     time.Time  `gorm:"not null;index"`
	UpdatedAt     time.Time  `gorm:"not null"`
	SubmittedAt   *time.Time `gorm:"index"` // 首次离开草稿状态的时间,只设置一次
	ApprovedAt    *time.Time
	ReviewerID    *string `gorm:"type:varchar(64);index"` // 审批人,不允许等于 UserID
	RejectReason  string  `gorm:"type:text"`
	IP            string  `gorm:"type:varchar(45)"` // IPv4 或 IPv6,尽力采集
	UserAgent     string  `gorm:"type:text"`
}

// TableName 指定表名
func (SubmissionModel) TableName() string {
	return "submissions"
}

// Validate 验证提交单模型
func (sm *SubmissionModel) Validate() error {
	if sm.ID == "" {
		return errors.New("submission ID is required")
	}
	if sm.FormID == "" {
		return errors.New("form ID is required")
	}
	if sm.UserID == "" {
		return errors.New("user ID is required")
	}
	if sm.Status == "" {
		return errors.New("submission status is required")
	}
	if sm.Version < 1 {
		return errors.New("submission version must be at least 1")
	}
	if sm.ReviewerID != nil && *sm.ReviewerID == sm.UserID {
		return errors.New("reviewer must not be the submission owner")
	}
	return nil
}
