package service_test

import (
	"testing"
	"time"

	"github.com/mautops/formflow-gin/internal/model"
	"github.com/mautops/formflow-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSubmission 直接写入一条提交单用于统计
func seedSubmission(t *testing.T, env *testEnv, id, userID, status string, createdAt time.Time, submittedAt, approvedAt *time.Time) {
	sub := &model.SubmissionModel{
		ID:          id,
		FormID:      "form-001",
		UserID:      userID,
		Data:        []byte(`{}`),
		Status:      status,
		Version:     1,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		SubmittedAt: submittedAt,
		ApprovedAt:  approvedAt,
	}
	require.NoError(t, env.db.Create(sub).Error)
}

// TestGetStatistics_Counts 测试数量统计
func TestGetStatistics_Counts(t *testing.T) {
	env := setupService(t)
	stats := service.NewStatisticsService(env.db)

	now := time.Now().UTC()
	lastYear := now.AddDate(-1, 0, 0)
	seedSubmission(t, env, "sub-001", "alice", "draft", now, nil, nil)
	seedSubmission(t, env, "sub-002", "alice", "sent", now, &now, nil)
	seedSubmission(t, env, "sub-003", "bob", "sent", lastYear, &lastYear, nil)

	result, err := stats.GetStatistics(nil, admin)
	require.NoError(t, err)

	assert.EqualValues(t, 3, result.Total)
	assert.EqualValues(t, 1, result.ByStatus["draft"])
	assert.EqualValues(t, 2, result.ByStatus["sent"])
	assert.EqualValues(t, 2, result.PendingApproval)
	assert.EqualValues(t, 2, result.CreatedToday)
	assert.EqualValues(t, 2, result.CreatedThisMonth)
	assert.Zero(t, result.AvgApprovalHours)
}

// TestGetStatistics_ScopeFilters 测试统计范围过滤
func TestGetStatistics_ScopeFilters(t *testing.T) {
	env := setupService(t)
	stats := service.NewStatisticsService(env.db)

	now := time.Now().UTC()
	seedSubmission(t, env, "sub-001", "alice", "draft", now, nil, nil)
	seedSubmission(t, env, "sub-002", "bob", "draft", now, nil, nil)

	uid := "alice"
	result, err := stats.GetStatistics(&service.StatisticsScope{UserID: &uid}, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)

	fid := "form-missing"
	result, err = stats.GetStatistics(&service.StatisticsScope{FormID: &fid}, admin)
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}

// TestGetStatistics_ExcludesDeleted 测试已删除的不计入统计
func TestGetStatistics_ExcludesDeleted(t *testing.T) {
	env := setupService(t)
	stats := service.NewStatisticsService(env.db)

	now := time.Now().UTC()
	seedSubmission(t, env, "sub-001", "alice", "draft", now, nil, nil)
	require.NoError(t, env.db.Model(&model.SubmissionModel{}).
		Where("id = ?", "sub-001").
		Updates(map[string]interface{}{"deleted": true, "deleted_at": now}).Error)

	result, err := stats.GetStatistics(nil, admin)
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}

// TestGetStatistics_AvgApprovalHours 测试平均审批耗时
func TestGetStatistics_AvgApprovalHours(t *testing.T) {
	env := setupService(t)
	stats := service.NewStatisticsService(env.db)

	now := time.Now().UTC()
	submitted1 := now.Add(-4 * time.Hour)
	submitted2 := now.Add(-2 * time.Hour)
	seedSubmission(t, env, "sub-001", "alice", "approved", now.Add(-5*time.Hour), &submitted1, &now)
	seedSubmission(t, env, "sub-002", "bob", "approved", now.Add(-3*time.Hour), &submitted2, &now)
	// 待审的不计入审批时效
	seedSubmission(t, env, "sub-003", "alice", "sent", now, &now, nil)

	result, err := stats.GetStatistics(nil, admin)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, result.AvgApprovalHours, 0.01)
}

// TestGetStatistics_Forbidden 测试非管理员查询他人范围
func TestGetStatistics_Forbidden(t *testing.T) {
	env := setupService(t)
	stats := service.NewStatisticsService(env.db)

	other := "bob"
	_, err := stats.GetStatistics(&service.StatisticsScope{UserID: &other}, owner)
	assert.ErrorIs(t, err, service.ErrStatisticsForbidden)

	// 查询自己的范围是允许的
	self := "alice"
	_, err = stats.GetStatistics(&service.StatisticsScope{UserID: &self}, owner)
	assert.NoError(t, err)

	// 审批人同样受限
	_, err = stats.GetStatistics(&service.StatisticsScope{UserID: &other}, reviewer)
	assert.ErrorIs(t, err, service.ErrStatisticsForbidden)
}
