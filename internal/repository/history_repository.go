package repository

import (
	"github.com/mautops/formflow-gin/internal/model"
	"gorm.io/gorm"
)

// HistoryRepository 提交单历史仓储接口
// 只追加,不提供更新或删除方法
type HistoryRepository interface {
	Save(tx *gorm.DB, entry *model.SubmissionHistoryModel) error
	FindBySubmissionID(submissionID string) ([]*model.SubmissionHistoryModel, error)
}

// historyRepository 提交单历史仓储实现
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建历史仓储
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Save 追加一条历史记录,tx 为空时使用默认连接
func (r *historyRepository) Save(tx *gorm.DB, entry *model.SubmissionHistoryModel) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(entry).Error
}

// FindBySubmissionID 根据提交单 ID 查找历史,展示用倒序排列
func (r *historyRepository) FindBySubmissionID(submissionID string) ([]*model.SubmissionHistoryModel, error) {
	var entries []*model.SubmissionHistoryModel
	err := r.db.Where("submission_id = ?", submissionID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
