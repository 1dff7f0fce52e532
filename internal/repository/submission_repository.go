package repository

import (
	"errors"
	"time"

	"github.com/mautops/formflow-gin/internal/model"
	"github.com/mautops/formflow-gin/internal/workflow"
	"gorm.io/gorm"
)

// ErrVersionConflict 乐观并发冲突
// 提交单在调用方读取之后已被其他操作修改
var ErrVersionConflict = errors.New("submission version conflict")

// SubmissionRepository 提交单仓储接口
type SubmissionRepository interface {
	Create(sub *model.SubmissionModel) error
	FindByID(id string) (*model.SubmissionModel, error)
	FindByFilter(filter *SubmissionFilter) ([]*model.SubmissionModel, int64, error)
	FindPendingApproval(page, pageSize int) ([]*model.SubmissionModel, int64, error)
	// UpdateWithVersion 带版本校验的条件更新
	// 以 WHERE id = ? AND version = ? 的单条 UPDATE 实现读取-校验-写入的原子性,
	// 版本不匹配时返回 ErrVersionConflict 且不做任何修改
	UpdateWithVersion(tx *gorm.DB, id string, expectedVersion int, fields map[string]interface{}) error
	// MarkDeleted 逻辑删除,行永远不会物理移除
	MarkDeleted(tx *gorm.DB, id string, now time.Time) error
}

// SubmissionFilter 提交单查询过滤器
// OwnerID 与 OwnerOrReviewable 由查询层根据角色注入,先于业务过滤生效
type SubmissionFilter struct {
	FormID            *string
	UserID            *string
	Status            *string
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
	SubmittedFrom     *time.Time
	SubmittedTo       *time.Time
	ReviewerID        *string
	IncludeDeleted    bool
	OwnerID           *string // 仅返回该用户拥有的提交单
	OwnerOrReviewable *string // 返回该用户拥有的,外加处于待审状态的
	Page              int
	PageSize          int
	SortBy            string
	Order             string
}

// sortableFields 允许排序的字段白名单,未知字段回落到 created_at
var sortableFields = map[string]string{
	"id":           "id",
	"form_id":      "form_id",
	"user_id":      "user_id",
	"status":       "status",
	"submitted_at": "submitted_at",
	"approved_at":  "approved_at",
	"created_at":   "created_at",
}

// submissionRepository 提交单仓储实现
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建提交单仓储
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Create 保存新提交单
func (r *submissionRepository) Create(sub *model.SubmissionModel) error {
	return r.db.Create(sub).Error
}

// FindByID 根据 ID 查找提交单,包含已逻辑删除的行,由调用方判断 Deleted
func (r *submissionRepository) FindByID(id string) (*model.SubmissionModel, error) {
	var sub model.SubmissionModel
	if err := r.db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByFilter 根据过滤器分页查找提交单,返回当前页数据和总数
func (r *submissionRepository) FindByFilter(filter *SubmissionFilter) ([]*model.SubmissionModel, int64, error) {
	query := r.db.Model(&model.SubmissionModel{})

	// 可见性过滤先于业务过滤
	if filter.OwnerID != nil {
		query = query.Where("user_id = ?", *filter.OwnerID)
	}
	if filter.OwnerOrReviewable != nil {
		query = query.Where("user_id = ? OR status IN ?",
			*filter.OwnerOrReviewable,
			[]string{string(workflow.StatusSent), string(workflow.StatusUnderReview)})
	}

	if filter.FormID != nil {
		query = query.Where("form_id = ?", *filter.FormID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.SubmittedFrom != nil {
		query = query.Where("submitted_at >= ?", *filter.SubmittedFrom)
	}
	if filter.SubmittedTo != nil {
		query = query.Where("submitted_at <= ?", *filter.SubmittedTo)
	}
	if filter.ReviewerID != nil {
		query = query.Where("reviewer_id = ?", *filter.ReviewerID)
	}
	if !filter.IncludeDeleted {
		query = query.Where("deleted = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var subs []*model.SubmissionModel
	err := query.Order(buildOrderClause(filter.SortBy, filter.Order)).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&subs).Error
	return subs, total, err
}

// FindPendingApproval 查找所有待审批提交单
// 按提交时间升序,最早提交的排在最前,保证先到先审
func (r *submissionRepository) FindPendingApproval(page, pageSize int) ([]*model.SubmissionModel, int64, error) {
	query := r.db.Model(&model.SubmissionModel{}).
		Where("deleted = ?", false).
		Where("status IN ?", []string{string(workflow.StatusSent), string(workflow.StatusUnderReview)})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var subs []*model.SubmissionModel
	err := query.Order("submitted_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&subs).Error
	return subs, total, err
}

// UpdateWithVersion 带版本校验的条件更新
func (r *submissionRepository) UpdateWithVersion(tx *gorm.DB, id string, expectedVersion int, fields map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.Model(&model.SubmissionModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// MarkDeleted 逻辑删除提交单
func (r *submissionRepository) MarkDeleted(tx *gorm.DB, id string, now time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Model(&model.SubmissionModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted":    true,
			"deleted_at": now,
			"updated_at": now,
		}).Error
}

// buildOrderClause 构建排序子句,字段走白名单
func buildOrderClause(sortBy, order string) string {
	column, ok := sortableFields[sortBy]
	if !ok {
		return "created_at DESC"
	}
	if order == "asc" {
		return column + " ASC"
	}
	return column + " DESC"
}
