package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mautops/formflow-gin/internal/model"
	"github.com/mautops/formflow-gin/internal/repository"
	"github.com/mautops/formflow-gin/internal/workflow"
	"gorm.io/gorm"
)

// QueryService 提交单查询服务接口
// 所有查询服从与工作流一致的可见性规则
type QueryService interface {
	ListSubmissions(filter *ListSubmissionsFilter, actor Actor) (*PagedSubmissions, error)
	GetSubmission(id string, actor Actor) (*SubmissionDetail, error)
	ListPendingApproval(page, pageSize int, actor Actor) (*PagedSubmissions, error)
}

// ListSubmissionsFilter 提交单列表过滤器
type ListSubmissionsFilter struct {
	FormID         *string
	UserID         *string // 仅管理员生效
	Status         *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	SubmittedFrom  *time.Time
	SubmittedTo    *time.Time
	ReviewerID     *string
	IncludeDeleted bool
	Page           int
	PageSize       int
	SortBy         string
	Order          string
}

// SubmissionSummary 提交单列表条目
type SubmissionSummary struct {
	ID           string     `json:"id"`
	FormID       string     `json:"form_id"`
	FormName     string     `json:"form_name,omitempty"`
	UserID       string     `json:"user_id"`
	UserName     string     `json:"user_name,omitempty"`
	UserEmail    string     `json:"user_email,omitempty"`
	Status       string     `json:"status"`
	Version      int        `json:"version"`
	Deleted      bool       `json:"deleted"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ReviewerID   *string    `json:"reviewer_id,omitempty"`
	ReviewerName string     `json:"reviewer_name,omitempty"`
}

// SubmissionDetail 提交单完整详情,含内容和历史
type SubmissionDetail struct {
	SubmissionSummary
	FormVersionID *string         `json:"form_version_id,omitempty"`
	Data          json.RawMessage `json:"data"`
	RejectReason  string          `json:"reject_reason,omitempty"`
	IP            string          `json:"ip,omitempty"`
	UserAgent     string          `json:"user_agent,omitempty"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	History       []*HistoryEntry `json:"history"`
}

// PagedSubmissions 分页查询结果
type PagedSubmissions struct {
	Items     []*SubmissionSummary `json:"items"`
	Total     int64                `json:"total"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"page_size"`
	TotalPage int                  `json:"total_page"`
}

// queryService 查询服务实现
type queryService struct {
	subRepo  repository.SubmissionRepository
	histRepo repository.HistoryRepository
	formRepo repository.FormRepository
	userRepo repository.UserRepository
}

// NewQueryService 创建查询服务
func NewQueryService(
	subRepo repository.SubmissionRepository,
	histRepo repository.HistoryRepository,
	formRepo repository.FormRepository,
	userRepo repository.UserRepository,
) QueryService {
	return &queryService{
		subRepo:  subRepo,
		histRepo: histRepo,
		formRepo: formRepo,
		userRepo: userRepo,
	}
}

// ListSubmissions 按过滤器分页查询提交单
// 可见性预过滤先于业务过滤:普通用户只看自己的,审批人额外看到待审的,管理员看全部
// 已删除的提交单只有管理员可以显式包含
func (s *queryService) ListSubmissions(filter *ListSubmissionsFilter, actor Actor) (*PagedSubmissions, error) {
	repoFilter := &repository.SubmissionFilter{
		FormID:         filter.FormID,
		Status:         filter.Status,
		CreatedFrom:    filter.CreatedFrom,
		CreatedTo:      filter.CreatedTo,
		SubmittedFrom:  filter.SubmittedFrom,
		SubmittedTo:    filter.SubmittedTo,
		ReviewerID:     filter.ReviewerID,
		IncludeDeleted: filter.IncludeDeleted,
		Page:           filter.Page,
		PageSize:       filter.PageSize,
		SortBy:         filter.SortBy,
		Order:          filter.Order,
	}

	switch actor.Role {
	case workflow.RoleAdmin:
		// 只有管理员可以按任意用户过滤
		repoFilter.UserID = filter.UserID
	case workflow.RoleManager:
		actorID := actor.ID
		repoFilter.OwnerOrReviewable = &actorID
		repoFilter.IncludeDeleted = false
	default:
		actorID := actor.ID
		repoFilter.OwnerID = &actorID
		repoFilter.IncludeDeleted = false
	}

	subs, total, err := s.subRepo.FindByFilter(repoFilter)
	if err != nil {
		return nil, err
	}

	items, err := s.buildSummaries(subs)
	if err != nil {
		return nil, err
	}
	return pageResult(items, total, filter.Page, filter.PageSize), nil
}

// GetSubmission 获取单条提交单完整详情
// 无权限与不存在同样返回 nil,不向调用方泄露存在性
func (s *queryService) GetSubmission(id string, actor Actor) (*SubmissionDetail, error) {
	sub, err := s.subRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if sub.Deleted && actor.Role != workflow.RoleAdmin {
		return nil, nil
	}
	if !workflow.CanView(sub.UserID, actor.ID, actor.Role) {
		return nil, nil
	}

	summaries, err := s.buildSummaries([]*model.SubmissionModel{sub})
	if err != nil {
		return nil, err
	}

	detail := &SubmissionDetail{
		SubmissionSummary: *summaries[0],
		FormVersionID:     sub.FormVersionID,
		Data:              json.RawMessage(sub.Data),
		RejectReason:      sub.RejectReason,
		IP:                sub.IP,
		UserAgent:         sub.UserAgent,
		DeletedAt:         sub.DeletedAt,
	}

	records, err := s.histRepo.FindBySubmissionID(id)
	if err != nil {
		return nil, err
	}
	actorIDs := make([]string, 0, len(records))
	for _, r := range records {
		actorIDs = append(actorIDs, r.ActorID)
	}
	users, err := s.userRepo.FindByIDs(actorIDs)
	if err != nil {
		return nil, err
	}
	detail.History = make([]*HistoryEntry, 0, len(records))
	for _, r := range records {
		entry := &HistoryEntry{
			ID:         r.ID,
			Action:     r.Action,
			ActorID:    r.ActorID,
			Comment:    r.Comment,
			FromStatus: r.FromStatus,
			ToStatus:   r.ToStatus,
			IP:         r.IP,
			CreatedAt:  r.CreatedAt,
		}
		if u, ok := users[r.ActorID]; ok {
			entry.ActorName = u.Name
			entry.ActorEmail = u.Email
		}
		detail.History = append(detail.History, entry)
	}

	return detail, nil
}

// ListPendingApproval 待审批列表,与审批人自己的归属无关,最早提交的在前
func (s *queryService) ListPendingApproval(page, pageSize int, actor Actor) (*PagedSubmissions, error) {
	subs, total, err := s.subRepo.FindPendingApproval(page, pageSize)
	if err != nil {
		return nil, err
	}
	items, err := s.buildSummaries(subs)
	if err != nil {
		return nil, err
	}
	return pageResult(items, total, page, pageSize), nil
}

// buildSummaries 构建列表条目并补全表单名和用户信息
func (s *queryService) buildSummaries(subs []*model.SubmissionModel) ([]*SubmissionSummary, error) {
	userIDs := make([]string, 0, len(subs)*2)
	for _, sub := range subs {
		userIDs = append(userIDs, sub.UserID)
		if sub.ReviewerID != nil {
			userIDs = append(userIDs, *sub.ReviewerID)
		}
	}
	users, err := s.userRepo.FindByIDs(userIDs)
	if err != nil {
		return nil, err
	}

	formNames := make(map[string]string)
	items := make([]*SubmissionSummary, 0, len(subs))
	for _, sub := range subs {
		item := &SubmissionSummary{
			ID:          sub.ID,
			FormID:      sub.FormID,
			UserID:      sub.UserID,
			Status:      sub.Status,
			Version:     sub.Version,
			Deleted:     sub.Deleted,
			CreatedAt:   sub.CreatedAt,
			UpdatedAt:   sub.UpdatedAt,
			SubmittedAt: sub.SubmittedAt,
			ApprovedAt:  sub.ApprovedAt,
			ReviewerID:  sub.ReviewerID,
		}
		if name, ok := formNames[sub.FormID]; ok {
			item.FormName = name
		} else if form, err := s.formRepo.FindByID(sub.FormID); err == nil {
			formNames[sub.FormID] = form.Name
			item.FormName = form.Name
		}
		if u, ok := users[sub.UserID]; ok {
			item.UserName = u.Name
			item.UserEmail = u.Email
		}
		if sub.ReviewerID != nil {
			if u, ok := users[*sub.ReviewerID]; ok {
				item.ReviewerName = u.Name
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// pageResult 组装分页结果,计算总页数
func pageResult(items []*SubmissionSummary, total int64, page, pageSize int) *PagedSubmissions {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	totalPage := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &PagedSubmissions{
		Items:     items,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
		TotalPage: totalPage,
	}
}
