package service_test

import (
	"context"
	"testing"

	"github.com/mautops/formflow-gin/internal/repository"
	"github.com/mautops/formflow-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupQuery 构建查询服务及配套的工作流服务
func setupQuery(t *testing.T) (*testEnv, service.QueryService) {
	env := setupService(t)
	qs := service.NewQueryService(
		env.subRepo,
		env.histRepo,
		repository.NewFormRepository(env.db),
		repository.NewUserRepository(env.db),
	)
	return env, qs
}

// TestListSubmissions_RoleVisibility 测试列表按角色过滤
func TestListSubmissions_RoleVisibility(t *testing.T) {
	env, qs := setupQuery(t)

	aliceID := createDraft(t, env, owner)
	strangerID := createDraft(t, env, stranger)
	require.True(t, env.svc.Send(context.Background(), strangerID, &service.TransitionRequest{Version: 1}, stranger, testMeta).Success)

	// 普通用户只看到自己的
	paged, err := qs.ListSubmissions(&service.ListSubmissionsFilter{Page: 1, PageSize: 10}, owner)
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, aliceID, paged.Items[0].ID)

	// 审批人看到自己的加上待审的
	paged, err = qs.ListSubmissions(&service.ListSubmissionsFilter{Page: 1, PageSize: 10}, reviewer)
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, strangerID, paged.Items[0].ID)

	// 管理员看到全部
	paged, err = qs.ListSubmissions(&service.ListSubmissionsFilter{Page: 1, PageSize: 10}, admin)
	require.NoError(t, err)
	assert.Len(t, paged.Items, 2)
	assert.EqualValues(t, 2, paged.Total)

	// 管理员可以按提交人过滤
	uid := "dave"
	paged, err = qs.ListSubmissions(&service.ListSubmissionsFilter{UserID: &uid, Page: 1, PageSize: 10}, admin)
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, strangerID, paged.Items[0].ID)

	// 非管理员的 UserID 过滤被忽略,仍然只看到自己的
	paged, err = qs.ListSubmissions(&service.ListSubmissionsFilter{UserID: &uid, Page: 1, PageSize: 10}, owner)
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, aliceID, paged.Items[0].ID)
}

// TestListSubmissions_Enrichment 测试列表条目信息补全
func TestListSubmissions_Enrichment(t *testing.T) {
	env, qs := setupQuery(t)
	createDraft(t, env, owner)

	paged, err := qs.ListSubmissions(&service.ListSubmissionsFilter{Page: 1, PageSize: 10}, owner)
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, "leave request", paged.Items[0].FormName)
	assert.Equal(t, "Alice", paged.Items[0].UserName)
}

// TestGetSubmission 测试详情查询
func TestGetSubmission(t *testing.T) {
	env, qs := setupQuery(t)
	id := createDraft(t, env, owner)

	detail, err := qs.GetSubmission(id, owner)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, id, detail.ID)
	assert.JSONEq(t, `{"days":3}`, string(detail.Data))
	require.Len(t, detail.History, 1)
	assert.Equal(t, "created", detail.History[0].Action)

	// 无权限与不存在都返回 nil
	detail, err = qs.GetSubmission(id, stranger)
	require.NoError(t, err)
	assert.Nil(t, detail)

	detail, err = qs.GetSubmission("missing", admin)
	require.NoError(t, err)
	assert.Nil(t, detail)
}

// TestGetSubmission_DeletedVisibility 测试已删除提交单的可见性
func TestGetSubmission_DeletedVisibility(t *testing.T) {
	env, qs := setupQuery(t)
	id := createDraft(t, env, owner)
	require.True(t, env.svc.Delete(context.Background(), id, "", owner, testMeta).Success)

	// 所有者自己也看不到已删除的
	detail, err := qs.GetSubmission(id, owner)
	require.NoError(t, err)
	assert.Nil(t, detail)

	// 管理员可以审计已删除的提交单
	detail, err = qs.GetSubmission(id, admin)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.True(t, detail.Deleted)
	assert.NotNil(t, detail.DeletedAt)
	// 删除动作也在历史里
	assert.Equal(t, "deleted", detail.History[0].Action)
}

// TestListSubmissions_IncludeDeletedAdminOnly 测试 include_deleted 只对管理员生效
func TestListSubmissions_IncludeDeletedAdminOnly(t *testing.T) {
	env, qs := setupQuery(t)
	id := createDraft(t, env, owner)
	require.True(t, env.svc.Delete(context.Background(), id, "", owner, testMeta).Success)

	// 所有者即使显式要求也看不到自己已删除的提交单
	paged, err := qs.ListSubmissions(&service.ListSubmissionsFilter{
		IncludeDeleted: true, Page: 1, PageSize: 20,
	}, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), paged.Total)

	// 审批角色同样不行
	paged, err = qs.ListSubmissions(&service.ListSubmissionsFilter{
		IncludeDeleted: true, Page: 1, PageSize: 20,
	}, reviewer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), paged.Total)

	// 管理员可以
	paged, err = qs.ListSubmissions(&service.ListSubmissionsFilter{
		IncludeDeleted: true, Page: 1, PageSize: 20,
	}, admin)
	require.NoError(t, err)
	require.Equal(t, int64(1), paged.Total)
	assert.Equal(t, id, paged.Items[0].ID)
}

// TestListPendingApproval 测试待审批队列
func TestListPendingApproval(t *testing.T) {
	env, qs := setupQuery(t)

	first := createDraft(t, env, owner)
	require.True(t, env.svc.Send(context.Background(), first, &service.TransitionRequest{Version: 1}, owner, testMeta).Success)
	second := createDraft(t, env, stranger)
	require.True(t, env.svc.Send(context.Background(), second, &service.TransitionRequest{Version: 1}, stranger, testMeta).Success)
	createDraft(t, env, owner) // 草稿不进入队列

	paged, err := qs.ListPendingApproval(1, 10, reviewer)
	require.NoError(t, err)
	assert.EqualValues(t, 2, paged.Total)
	require.Len(t, paged.Items, 2)

	// 最早提交的排在最前
	assert.Equal(t, first, paged.Items[0].ID)
	assert.Equal(t, second, paged.Items[1].ID)
}

// TestPagination 测试分页计算
func TestPagination(t *testing.T) {
	env, qs := setupQuery(t)
	for i := 0; i < 5; i++ {
		createDraft(t, env, owner)
	}

	paged, err := qs.ListSubmissions(&service.ListSubmissionsFilter{Page: 2, PageSize: 2}, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 5, paged.Total)
	assert.Equal(t, 2, paged.Page)
	assert.Equal(t, 2, paged.PageSize)
	assert.Equal(t, 3, paged.TotalPage)
	assert.Len(t, paged.Items, 2)
}
