package model

import (
	"errors"
	"time"
)

// FormModel 表单定义数据模型
// 表单 schema 的管理不在本服务范围内,这里只保留提交流程需要的字段
type FormModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	OriginalFormID *string   `gorm:"type:varchar(64);index"` // 指向首个版本,为空表示自身即首版
	Name           string    `gorm:"type:varchar(255);not null;index"`
	Schema         []byte    `gorm:"type:jsonb;not null"`
	RolesAllowed   string    `gorm:"type:varchar(255)"` // 逗号分隔的角色列表,空表示不限制
	Version        string    `gorm:"type:varchar(32);not null;default:'1.0'"`
	IsLatest       bool      `gorm:"not null;default:true;index"`
	Deleted        bool      `gorm:"not null;default:false;index"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (FormModel) TableName() string {
	return "forms"
}

// Validate 验证表单模型
func (fm *FormModel) Validate() error {
	if fm.ID == "" {
		return errors.New("form ID is required")
	}
	if fm.Name == "" {
		return errors.New("form name is required")
	}
	if len(fm.Schema) == 0 {
		return errors.New("form schema is required")
	}
	return nil
}
