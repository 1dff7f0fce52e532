package service

import (
	"fmt"
	"math"
	"time"

	"github.com/mautops/formflow-gin/internal/model"
	"github.com/mautops/formflow-gin/internal/workflow"
	"gorm.io/gorm"
)

// StatisticsService 提交单统计服务接口
type StatisticsService interface {
	GetStatistics(scope *StatisticsScope, actor Actor) (*SubmissionStatistics, error)
}

// StatisticsScope 统计范围,两个维度都可以为空
type StatisticsScope struct {
	UserID *string
	FormID *string
}

// SubmissionStatistics 提交单统计结果
type SubmissionStatistics struct {
	Total               int64            `json:"total"`
	ByStatus            map[string]int64 `json:"by_status"`
	CreatedToday        int64            `json:"created_today"`
	CreatedThisWeek     int64            `json:"created_this_week"`
	CreatedThisMonth    int64            `json:"created_this_month"`
	PendingApproval     int64            `json:"pending_approval"`
	AvgApprovalHours    float64          `json:"avg_approval_hours"`
}

// ErrStatisticsForbidden 非管理员不能查询其他用户的统计
var ErrStatisticsForbidden = fmt.Errorf("no permission to query statistics for another user")

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics 统计提交单数量分布和审批时效
// 范围限制先于查询:普通用户和审批人只能查自己的范围
func (s *statisticsService) GetStatistics(scope *StatisticsScope, actor Actor) (*SubmissionStatistics, error) {
	if scope == nil {
		scope = &StatisticsScope{}
	}
	if actor.Role != workflow.RoleAdmin && scope.UserID != nil && *scope.UserID != actor.ID {
		return nil, ErrStatisticsForbidden
	}

	base := s.db.Model(&model.SubmissionModel{}).Where("deleted = ?", false)
	if scope.UserID != nil {
		base = base.Where("user_id = ?", *scope.UserID)
	}
	if scope.FormID != nil {
		base = base.Where("form_id = ?", *scope.FormID)
	}

	stats := &SubmissionStatistics{ByStatus: make(map[string]int64)}

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	// 按状态统计
	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := base.Session(&gorm.Session{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to count submissions by status: %w", err)
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.Status] = sc.Count
	}

	// 按创建时间统计
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	if err := base.Session(&gorm.Session{}).Where("created_at >= ?", today).Count(&stats.CreatedToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today submissions: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("created_at >= ?", weekStart).Count(&stats.CreatedThisWeek).Error; err != nil {
		return nil, fmt.Errorf("failed to count this week submissions: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("created_at >= ?", monthStart).Count(&stats.CreatedThisMonth).Error; err != nil {
		return nil, fmt.Errorf("failed to count this month submissions: %w", err)
	}

	// 待审批数量
	if err := base.Session(&gorm.Session{}).
		Where("status IN ?", []string{string(workflow.StatusSent), string(workflow.StatusUnderReview)}).
		Count(&stats.PendingApproval).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending submissions: %w", err)
	}

	// 平均审批耗时,只统计提交和批准时间都存在的记录
	var approved []struct {
		SubmittedAt time.Time
		ApprovedAt  time.Time
	}
	if err := base.Session(&gorm.Session{}).
		Select("submitted_at, approved_at").
		Where("status = ?", string(workflow.StatusApproved)).
		Where("submitted_at IS NOT NULL AND approved_at IS NOT NULL").
		Scan(&approved).Error; err != nil {
		return nil, fmt.Errorf("failed to load approved submissions: %w", err)
	}
	if len(approved) > 0 {
		var totalHours float64
		for _, a := range approved {
			totalHours += a.ApprovedAt.Sub(a.SubmittedAt).Hours()
		}
		stats.AvgApprovalHours = math.Round(totalHours/float64(len(approved))*100) / 100
	}

	return stats, nil
}
