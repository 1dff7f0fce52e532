package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/formflow-gin/internal/service"
	"github.com/mautops/formflow-gin/internal/utils"
	"github.com/mautops/formflow-gin/internal/workflow"
)

// SubmissionController 提交单控制器
type SubmissionController struct {
	subService   service.SubmissionService
	queryService service.QueryService
	statsService service.StatisticsService
}

// NewSubmissionController 创建提交单控制器
func NewSubmissionController(subService service.SubmissionService, queryService service.QueryService, statsService service.StatisticsService) *SubmissionController {
	return &SubmissionController{
		subService:   subService,
		queryService: queryService,
		statsService: statsService,
	}
}

// actorFrom 从请求上下文提取操作者身份
// 身份由认证中间件写入,角色非法时回退为普通用户
func actorFrom(ctx *gin.Context) service.Actor {
	role, err := workflow.ParseRole(ctx.GetString("role"))
	if err != nil {
		role = workflow.RoleUser
	}
	return service.Actor{
		ID:   ctx.GetString("user_id"),
		Role: role,
	}
}

// metaFrom 从请求上下文提取审计元数据
func metaFrom(ctx *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	}
}

// validateSubmissionID 验证提交单 ID 并返回错误响应(如果无效)
func (c *SubmissionController) validateSubmissionID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateSubmissionID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid submission ID", err.Error())
		return false
	}
	return true
}

// Create 创建提交单
// @Summary      创建提交单
// @Description  基于表单创建新的提交单,默认为草稿状态
// @Tags         提交单管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateSubmissionRequest true "提交单信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions [post]
// @Security     BearerAuth
func (c *SubmissionController) Create(ctx *gin.Context) {
	var req service.CreateSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result := c.subService.Create(ctx.Request.Context(), &req, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// List 查询提交单列表
// @Summary      查询提交单列表
// @Description  按角色可见范围分页查询提交单
// @Tags         提交单管理
// @Produce      json
// @Param        form_id query string false "表单 ID"
// @Param        user_id query string false "提交人 ID(仅管理员生效)"
// @Param        status query string false "状态"
// @Param        reviewer_id query string false "审批人 ID"
// @Param        created_from query string false "创建时间下界(RFC3339)"
// @Param        created_to query string false "创建时间上界(RFC3339)"
// @Param        include_deleted query bool false "包含已删除(仅管理员生效)"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Param        sort_by query string false "排序字段"
// @Param        order query string false "排序方向 asc/desc"
// @Success      200  {object}  PaginatedResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /submissions [get]
// @Security     BearerAuth
func (c *SubmissionController) List(ctx *gin.Context) {
	filter := &service.ListSubmissionsFilter{
		FormID:         optionalQuery(ctx, "form_id"),
		UserID:         optionalQuery(ctx, "user_id"),
		Status:         optionalQuery(ctx, "status"),
		ReviewerID:     optionalQuery(ctx, "reviewer_id"),
		CreatedFrom:    optionalTimeQuery(ctx, "created_from"),
		CreatedTo:      optionalTimeQuery(ctx, "created_to"),
		SubmittedFrom:  optionalTimeQuery(ctx, "submitted_from"),
		SubmittedTo:    optionalTimeQuery(ctx, "submitted_to"),
		IncludeDeleted: ctx.Query("include_deleted") == "true",
		Page:           intQuery(ctx, "page", 1),
		PageSize:       intQuery(ctx, "page_size", 20),
		SortBy:         ctx.Query("sort_by"),
		Order:          ctx.Query("order"),
	}

	paged, err := c.queryService.ListSubmissions(filter, actorFrom(ctx))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list submissions", err.Error())
		return
	}

	Paginated(ctx, paged.Items, PaginationInfo{
		Page:      paged.Page,
		PageSize:  paged.PageSize,
		Total:     paged.Total,
		TotalPage: paged.TotalPage,
	})
}

// Get 获取提交单详情
// @Summary      获取提交单详情
// @Description  根据 ID 获取提交单详情,含审批历史
// @Tags         提交单管理
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id} [get]
// @Security     BearerAuth
func (c *SubmissionController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	detail, err := c.queryService.GetSubmission(id, actorFrom(ctx))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get submission", err.Error())
		return
	}
	if detail == nil {
		// 不存在和无权限对调用方不可区分
		Error(ctx, http.StatusNotFound, "submission not found", "")
		return
	}

	Success(ctx, detail)
}

// Update 更新提交单内容
// @Summary      更新提交单内容
// @Description  仅提交人本人可更新,且提交单必须处于草稿状态
// @Tags         提交单管理
// @Accept       json
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Param        request body service.UpdateSubmissionRequest true "更新内容"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id} [put]
// @Security     BearerAuth
func (c *SubmissionController) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	var req service.UpdateSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result := c.subService.Update(ctx.Request.Context(), id, &req, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// deleteRequest 删除提交单请求体
type deleteRequest struct {
	Comment string `json:"comment"` // 删除备注
}

// Delete 删除提交单
// @Summary      删除提交单
// @Description  软删除,历史记录保留,后续读取对普通用户不可见
// @Tags         提交单管理
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id} [delete]
// @Security     BearerAuth
func (c *SubmissionController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	var req deleteRequest
	_ = ctx.ShouldBindJSON(&req)

	result := c.subService.Delete(ctx.Request.Context(), id, req.Comment, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// Send 发送提交单进入审批
// @Summary      发送提交单
// @Description  将草稿状态的提交单发送进入审批流程
// @Tags         工作流
// @Accept       json
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Param        request body service.TransitionRequest true "迁移参数"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/send [post]
// @Security     BearerAuth
func (c *SubmissionController) Send(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	var req service.TransitionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result := c.subService.Send(ctx.Request.Context(), id, &req, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// Approve 审批通过
// @Summary      审批通过提交单
// @Description  审批人通过待审批的提交单,不能审批自己的提交
// @Tags         工作流
// @Accept       json
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Param        request body service.ApproveSubmissionRequest true "审批参数"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/approve [post]
// @Security     BearerAuth
func (c *SubmissionController) Approve(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	var req service.ApproveSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result := c.subService.Approve(ctx.Request.Context(), id, &req, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// Reject 审批拒绝
// @Summary      审批拒绝提交单
// @Description  审批人拒绝待审批的提交单,必须提供拒绝原因
// @Tags         工作流
// @Accept       json
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Param        request body service.RejectSubmissionRequest true "拒绝参数"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/reject [post]
// @Security     BearerAuth
func (c *SubmissionController) Reject(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	var req service.RejectSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result := c.subService.Reject(ctx.Request.Context(), id, &req, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// Cancel 取消提交单
// @Summary      取消提交单
// @Description  提交人撤回尚未进入终态的提交单
// @Tags         工作流
// @Accept       json
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Param        request body service.TransitionRequest true "迁移参数"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/cancel [post]
// @Security     BearerAuth
func (c *SubmissionController) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	var req service.TransitionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result := c.subService.Cancel(ctx.Request.Context(), id, &req, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// ChangeStatus 通用状态变更
// @Summary      变更提交单状态
// @Description  按状态机规则执行任意合法的状态迁移
// @Tags         工作流
// @Accept       json
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Param        request body service.ChangeStatusRequest true "状态变更参数"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/status [post]
// @Security     BearerAuth
func (c *SubmissionController) ChangeStatus(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	var req service.ChangeStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result := c.subService.ChangeStatus(ctx.Request.Context(), id, &req, actorFrom(ctx), metaFrom(ctx))
	RenderResult(ctx, result)
}

// GetHistory 获取审批历史
// @Summary      获取提交单审批历史
// @Description  按时间倒序返回提交单的全部操作记录
// @Tags         提交单管理
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Success      200  {object}  Response
// @Router       /submissions/{id}/history [get]
// @Security     BearerAuth
func (c *SubmissionController) GetHistory(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	entries, err := c.subService.GetHistory(id, actorFrom(ctx))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get history", err.Error())
		return
	}

	Success(ctx, entries)
}

// GetPermissions 查询当前用户对提交单的操作权限
// @Summary      查询提交单操作权限
// @Description  返回当前用户能否查看、编辑、审批该提交单
// @Tags         提交单管理
// @Produce      json
// @Param        id path string true "提交单 ID"
// @Success      200  {object}  Response
// @Router       /submissions/{id}/permissions [get]
// @Security     BearerAuth
func (c *SubmissionController) GetPermissions(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSubmissionID(ctx, id) {
		return
	}

	actor := actorFrom(ctx)
	canView, err := c.subService.CanView(id, actor)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to check permissions", err.Error())
		return
	}
	canEdit, err := c.subService.CanEdit(id, actor)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to check permissions", err.Error())
		return
	}
	canApprove, err := c.subService.CanApprove(id, actor)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to check permissions", err.Error())
		return
	}

	Success(ctx, gin.H{
		"can_view":    canView,
		"can_edit":    canEdit,
		"can_approve": canApprove,
	})
}

// ListPending 查询待审批队列
// @Summary      查询待审批提交单
// @Description  按提交时间先进先出返回待审批的提交单
// @Tags         工作流
// @Produce      json
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200  {object}  PaginatedResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /submissions/pending [get]
// @Security     BearerAuth
func (c *SubmissionController) ListPending(ctx *gin.Context) {
	actor := actorFrom(ctx)
	if !actor.Role.CanReview() {
		Error(ctx, http.StatusForbidden, "no permission to list pending submissions", "")
		return
	}

	paged, err := c.queryService.ListPendingApproval(intQuery(ctx, "page", 1), intQuery(ctx, "page_size", 20), actor)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list pending submissions", err.Error())
		return
	}

	Paginated(ctx, paged.Items, PaginationInfo{
		Page:      paged.Page,
		PageSize:  paged.PageSize,
		Total:     paged.Total,
		TotalPage: paged.TotalPage,
	})
}

// GetStatistics 查询提交单统计
// @Summary      查询提交单统计
// @Description  统计数量分布、时间窗口计数和平均审批时长
// @Tags         统计
// @Produce      json
// @Param        user_id query string false "提交人 ID(非管理员只能查自己)"
// @Param        form_id query string false "表单 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /submissions/statistics [get]
// @Security     BearerAuth
func (c *SubmissionController) GetStatistics(ctx *gin.Context) {
	scope := &service.StatisticsScope{
		UserID: optionalQuery(ctx, "user_id"),
		FormID: optionalQuery(ctx, "form_id"),
	}

	stats, err := c.statsService.GetStatistics(scope, actorFrom(ctx))
	if err != nil {
		if err == service.ErrStatisticsForbidden {
			Error(ctx, http.StatusForbidden, "no permission to query statistics", "")
			return
		}
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}

	Success(ctx, stats)
}

// optionalQuery 读取可选查询参数,空值返回 nil
func optionalQuery(ctx *gin.Context, key string) *string {
	value := ctx.Query(key)
	if value == "" {
		return nil
	}
	return &value
}

// optionalTimeQuery 读取可选时间查询参数(RFC3339),解析失败按未传处理
func optionalTimeQuery(ctx *gin.Context, key string) *time.Time {
	value := ctx.Query(key)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

// intQuery 读取整型查询参数,缺省或非法时使用默认值
func intQuery(ctx *gin.Context, key string, defaultValue int) int {
	value := ctx.Query(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
