package repository

import (
	"github.com/mautops/formflow-gin/internal/model"
	"gorm.io/gorm"
)

// FormRepository 表单仓储接口
type FormRepository interface {
	Save(form *model.FormModel) error
	FindByID(id string) (*model.FormModel, error)
	FindLatest(originalID string) (*model.FormModel, error)
}

// formRepository 表单仓储实现
type formRepository struct {
	db *gorm.DB
}

// NewFormRepository 创建表单仓储
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

// Save 保存表单
func (r *formRepository) Save(form *model.FormModel) error {
	return r.db.Save(form).Error
}

// FindByID 根据 ID 查找表单
func (r *formRepository) FindByID(id string) (*model.FormModel, error) {
	var form model.FormModel
	if err := r.db.Where("id = ?", id).First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// FindLatest 查找某个表单谱系的最新版本
func (r *formRepository) FindLatest(originalID string) (*model.FormModel, error) {
	var form model.FormModel
	err := r.db.Where("(id = ? OR original_form_id = ?) AND is_latest = ?", originalID, originalID, true).
		First(&form).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}
