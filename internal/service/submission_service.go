package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/formflow-gin/internal/metrics"
	"github.com/mautops/formflow-gin/internal/model"
	"github.com/mautops/formflow-gin/internal/repository"
	"github.com/mautops/formflow-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ResultCode 操作结果分类,控制器据此映射 HTTP 状态码
type ResultCode string

const (
	CodeOK                ResultCode = "ok"
	CodeNotFound          ResultCode = "not_found"
	CodeForbidden         ResultCode = "forbidden"
	CodeInvalidState      ResultCode = "invalid_state"
	CodeInvalidTransition ResultCode = "invalid_transition"
	CodeConflict          ResultCode = "conflict"
	CodeValidation        ResultCode = "validation"
	CodeInternal          ResultCode = "internal"
)

// OperationResult 统一操作结果
// 业务规则失败以失败结果返回,不作为 error 向上传播
type OperationResult struct {
	Success bool        `json:"success"`
	Code    ResultCode  `json:"code"`
	Message string      `json:"message"`
	ID      string      `json:"id,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Actor 已在外部完成身份解析的操作者
type Actor struct {
	ID   string
	Role workflow.Role
}

// RequestMeta 请求元信息,尽力采集
type RequestMeta struct {
	IP        string
	UserAgent string
}

// CreateSubmissionRequest 创建提交单请求
// @Description 创建表单提交单的请求参数
type CreateSubmissionRequest struct {
	FormID        string          `json:"form_id" binding:"required"` // 表单 ID
	FormVersionID *string         `json:"form_version_id"`            // 表单版本 ID,为空使用当前版本
	Data          json.RawMessage `json:"data" swaggertype:"object"`  // 提交内容
	Status        string          `json:"status"`                     // 初始状态,默认 draft
	Comment       string          `json:"comment"`                    // 初始备注
}

// UpdateSubmissionRequest 更新提交单请求
// @Description 更新提交单内容的请求参数
type UpdateSubmissionRequest struct {
	Data    json.RawMessage `json:"data" swaggertype:"object"` // 新的提交内容
	Version int             `json:"version" binding:"required"` // 调用方读取到的版本号
	Comment string          `json:"comment"`                    // 备注
}

// TransitionRequest 状态迁移请求,send/cancel 复用
// @Description 状态迁移的请求参数
type TransitionRequest struct {
	Version int    `json:"version" binding:"required"` // 调用方读取到的版本号
	Comment string `json:"comment"`                    // 备注
}

// ApproveSubmissionRequest 审批通过请求
type ApproveSubmissionRequest struct {
	Version int    `json:"version" binding:"required"`
	Comment string `json:"comment"`
}

// RejectSubmissionRequest 审批拒绝请求
type RejectSubmissionRequest struct {
	Version int    `json:"version" binding:"required"`
	Comment string `json:"comment"`
	Reason  string `json:"reason" binding:"required"` // 拒绝原因,必填
}

// ChangeStatusRequest 通用状态变更请求
type ChangeStatusRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
	Version   int    `json:"version" binding:"required"`
	Comment   string `json:"comment"`
	Reason    string `json:"reason"` // 目标为 rejected 时的拒绝原因
}

// HistoryEntry 历史记录展示条目
type HistoryEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name,omitempty"`
	ActorEmail string    `json:"actor_email,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	FromStatus *string   `json:"from_status,omitempty"`
	ToStatus   *string   `json:"to_status,omitempty"`
	IP         string    `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// WorkflowNotifier 状态变更通知接口,由 websocket hub 实现
type WorkflowNotifier interface {
	NotifyStatusChanged(submissionID string, from, to workflow.Status, actorID string)
}

// SubmissionService 提交单工作流服务接口
// 每个操作为一个原子单元:校验、变更、写历史要么全部生效要么全部不生效
type SubmissionService interface {
	Create(ctx context.Context, req *CreateSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult
	Update(ctx context.Context, id string, req *UpdateSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult
	Delete(ctx context.Context, id string, comment string, actor Actor, meta RequestMeta) *OperationResult
	Send(ctx context.Context, id string, req *TransitionRequest, actor Actor, meta RequestMeta) *OperationResult
	Approve(ctx context.Context, id string, req *ApproveSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult
	Reject(ctx context.Context, id string, req *RejectSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult
	Cancel(ctx context.Context, id string, req *TransitionRequest, actor Actor, meta RequestMeta) *OperationResult
	ChangeStatus(ctx context.Context, id string, req *ChangeStatusRequest, actor Actor, meta RequestMeta) *OperationResult
	GetHistory(id string, actor Actor) ([]*HistoryEntry, error)
	CanView(id string, actor Actor) (bool, error)
	CanEdit(id string, actor Actor) (bool, error)
	CanApprove(id string, actor Actor) (bool, error)
}

// submissionService 提交单工作流服务实现
type submissionService struct {
	db       *gorm.DB
	subRepo  repository.SubmissionRepository
	histRepo repository.HistoryRepository
	formRepo repository.FormRepository
	userRepo repository.UserRepository
	notifier WorkflowNotifier
}

// NewSubmissionService 创建提交单工作流服务
// notifier 可以为 nil,此时不发送状态变更通知
func NewSubmissionService(
	db *gorm.DB,
	subRepo repository.SubmissionRepository,
	histRepo repository.HistoryRepository,
	formRepo repository.FormRepository,
	userRepo repository.UserRepository,
	notifier WorkflowNotifier,
) SubmissionService {
	return &submissionService{
		db:       db,
		subRepo:  subRepo,
		histRepo: histRepo,
		formRepo: formRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

// Create 创建提交单
func (s *submissionService) Create(ctx context.Context, req *CreateSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult {
	form, err := s.formRepo.FindByID(req.FormID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failure(CodeNotFound, "form not found", "the specified form does not exist")
		}
		return s.internalFailure("create submission", err)
	}
	if form.Deleted {
		return failure(CodeNotFound, "form not found", "the specified form has been removed")
	}

	if !workflow.RoleAllowedByForm(form.RolesAllowed, actor.Role) {
		return failure(CodeForbidden, "no permission to use this form",
			"the actor role is not in the form allowed roles list")
	}

	status := workflow.StatusDraft
	if req.Status != "" {
		parsed, err := workflow.ParseStatus(req.Status)
		if err != nil {
			return failure(CodeValidation, "invalid initial status", err.Error())
		}
		status = parsed
	}

	now := time.Now().UTC()
	sub := &model.SubmissionModel{
		ID:            uuid.New().String(),
		FormID:        req.FormID,
		FormVersionID: req.FormVersionID,
		UserID:        actor.ID,
		Data:          req.Data,
		Status:        string(status),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
		IP:            meta.IP,
		UserAgent:     meta.UserAgent,
	}
	// 初始状态不是草稿时立即记录提交时间
	if status != workflow.StatusDraft {
		sub.SubmittedAt = &now
	}

	toStatus := string(status)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return s.histRepo.Save(tx, s.newHistory(sub.ID, workflow.ActionCreated, actor.ID, req.Comment, nil, &toStatus, nil, meta))
	})
	if err != nil {
		return s.internalFailure("create submission", err)
	}

	metrics.RecordSubmissionCreated()
	return &OperationResult{
		Success: true,
		Code:    CodeOK,
		Message: "submission created",
		ID:      sub.ID,
	}
}

// Update 更新提交单内容
// 只有所有者可以更新,且仅限草稿状态,版本号必须匹配
func (s *submissionService) Update(ctx context.Context, id string, req *UpdateSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult {
	sub, res := s.loadSubmission(id, "update submission")
	if res != nil {
		return res
	}

	if sub.UserID != actor.ID {
		return failure(CodeForbidden, "no permission to edit this submission",
			"only the owner can edit a submission")
	}
	if sub.Version != req.Version {
		return failure(CodeConflict, "version conflict",
			"the submission was modified by another operation")
	}
	if workflow.Status(sub.Status) != workflow.StatusDraft {
		return failure(CodeInvalidState, "submission cannot be edited",
			"only draft submissions can be edited")
	}

	// 变更前内容快照,进入历史供审计
	prior, err := json.Marshal(map[string]json.RawMessage{"data": sub.Data})
	if err != nil {
		return s.internalFailure("update submission", err)
	}

	now := time.Now().UTC()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"data":       []byte(req.Data),
			"version":    sub.Version + 1,
			"updated_at": now,
			"ip":         meta.IP,
			"user_agent": meta.UserAgent,
		}
		if err := s.subRepo.UpdateWithVersion(tx, id, req.Version, fields); err != nil {
			return err
		}
		return s.histRepo.Save(tx, s.newHistory(id, workflow.ActionUpdated, actor.ID, req.Comment, nil, nil, prior, meta))
	})
	if errors.Is(err, repository.ErrVersionConflict) {
		return failure(CodeConflict, "version conflict",
			"the submission was modified by another operation")
	}
	if err != nil {
		return s.internalFailure("update submission", err)
	}

	return &OperationResult{Success: true, Code: CodeOK, Message: "submission updated", ID: id}
}

// Delete 逻辑删除提交单
// 所有者或管理员可以删除,不要求草稿状态,历史记录保留
func (s *submissionService) Delete(ctx context.Context, id string, comment string, actor Actor, meta RequestMeta) *OperationResult {
	sub, res := s.loadSubmission(id, "delete submission")
	if res != nil {
		return res
	}

	if sub.UserID != actor.ID && actor.Role != workflow.RoleAdmin {
		return failure(CodeForbidden, "no permission to delete this submission",
			"only the owner or an admin can delete a submission")
	}

	now := time.Now().UTC()
	status := sub.Status
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.subRepo.MarkDeleted(tx, id, now); err != nil {
			return err
		}
		// 删除不改变状态,历史里前后状态相同
		return s.histRepo.Save(tx, s.newHistory(id, workflow.ActionDeleted, actor.ID, comment, &status, &status, nil, meta))
	})
	if err != nil {
		return s.internalFailure("delete submission", err)
	}

	metrics.RecordWorkflowAction(string(workflow.ActionDeleted))
	return &OperationResult{Success: true, Code: CodeOK, Message: "submission deleted", ID: id}
}

// Send 提交草稿进入审核流程
func (s *submissionService) Send(ctx context.Context, id string, req *TransitionRequest, actor Actor, meta RequestMeta) *OperationResult {
	comment := req.Comment
	if comment == "" {
		comment = "submission sent for review"
	}
	return s.executeTransition(id, workflow.StatusSent, req.Version, comment, "", actor, meta)
}

// Approve 审批通过
func (s *submissionService) Approve(ctx context.Context, id string, req *ApproveSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult {
	sub, res := s.loadSubmission(id, "approve submission")
	if res != nil {
		return res
	}

	status := workflow.Status(sub.Status)
	if !actor.Role.CanReview() || sub.UserID == actor.ID {
		return failure(CodeForbidden, "no permission to approve this submission",
			"approval requires a reviewer role and self-approval is not allowed")
	}
	if status != workflow.StatusSent && status != workflow.StatusUnderReview {
		return failure(CodeInvalidState, "submission is not awaiting approval",
			"only sent or under-review submissions can be approved")
	}

	return s.executeTransition(id, workflow.StatusApproved, req.Version, req.Comment, "", actor, meta)
}

// Reject 审批拒绝,拒绝原因必填
func (s *submissionService) Reject(ctx context.Context, id string, req *RejectSubmissionRequest, actor Actor, meta RequestMeta) *OperationResult {
	sub, res := s.loadSubmission(id, "reject submission")
	if res != nil {
		return res
	}

	status := workflow.Status(sub.Status)
	if !actor.Role.CanReview() || sub.UserID == actor.ID {
		return failure(CodeForbidden, "no permission to reject this submission",
			"rejection requires a reviewer role and self-review is not allowed")
	}
	if status != workflow.StatusSent && status != workflow.StatusUnderReview {
		return failure(CodeInvalidState, "submission is not awaiting review",
			"only sent or under-review submissions can be rejected")
	}

	return s.executeTransition(id, workflow.StatusRejected, req.Version, req.Comment, req.Reason, actor, meta)
}

// Cancel 取消提交单
func (s *submissionService) Cancel(ctx context.Context, id string, req *TransitionRequest, actor Actor, meta RequestMeta) *OperationResult {
	return s.executeTransition(id, workflow.StatusCancelled, req.Version, req.Comment, "", actor, meta)
}

// ChangeStatus 通用状态变更入口
func (s *submissionService) ChangeStatus(ctx context.Context, id string, req *ChangeStatusRequest, actor Actor, meta RequestMeta) *OperationResult {
	target, err := workflow.ParseStatus(req.NewStatus)
	if err != nil {
		return failure(CodeValidation, "invalid target status", err.Error())
	}
	return s.executeTransition(id, target, req.Version, req.Comment, req.Reason, actor, meta)
}

// executeTransition 统一的状态迁移执行路径
// send/approve/reject/cancel 和通用变更全部汇聚到这里,避免分叉实现漂移:
// 迁移表校验、乐观并发校验、状态副作用、历史写入在一个事务里完成
func (s *submissionService) executeTransition(id string, target workflow.Status, version int, comment, rejectReason string, actor Actor, meta RequestMeta) *OperationResult {
	sub, res := s.loadSubmission(id, "change submission status")
	if res != nil {
		return res
	}
	current := workflow.Status(sub.Status)

	if !workflow.CanTransition(current, target, actor.Role) {
		return failure(CodeInvalidTransition, "status transition not allowed",
			"cannot change status from "+string(current)+" to "+string(target)+" with role "+string(actor.Role))
	}

	// 迁移表里的 anyRole 指提交人本人:非审批角色只能操作自己的提交单
	if !actor.Role.CanReview() && sub.UserID != actor.ID {
		return failure(CodeForbidden, "no permission to change this submission",
			"only the submission owner may perform this action")
	}

	// 审批人不能等于所有者,通用入口也要挡住
	if (target == workflow.StatusApproved || target == workflow.StatusRejected) && sub.UserID == actor.ID {
		return failure(CodeForbidden, "self-review is not allowed",
			"the reviewer must not be the submission owner")
	}
	if target == workflow.StatusRejected && strings.TrimSpace(rejectReason) == "" {
		return failure(CodeValidation, "rejection reason is required",
			"a non-empty rejection reason must be provided")
	}

	if sub.Version != version {
		return failure(CodeConflict, "version conflict",
			"the submission was modified by another operation")
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"status":     string(target),
		"updated_at": now,
	}
	switch target {
	case workflow.StatusSent:
		// 提交时间只在首次离开草稿时设置
		if sub.SubmittedAt == nil {
			fields["submitted_at"] = now
		}
	case workflow.StatusApproved:
		fields["approved_at"] = now
		fields["reviewer_id"] = actor.ID
	case workflow.StatusRejected:
		fields["reject_reason"] = rejectReason
		fields["reviewer_id"] = actor.ID
	}

	from := string(current)
	to := string(target)
	action := workflow.ActionForStatus(target)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.subRepo.UpdateWithVersion(tx, id, version, fields); err != nil {
			return err
		}
		return s.histRepo.Save(tx, s.newHistory(id, action, actor.ID, comment, &from, &to, nil, meta))
	})
	if errors.Is(err, repository.ErrVersionConflict) {
		return failure(CodeConflict, "version conflict",
			"the submission was modified by another operation")
	}
	if err != nil {
		return s.internalFailure("change submission status", err)
	}

	metrics.RecordWorkflowAction(string(action))
	if s.notifier != nil {
		s.notifier.NotifyStatusChanged(id, current, target, actor.ID)
	}

	return &OperationResult{
		Success: true,
		Code:    CodeOK,
		Message: "status changed to " + string(target),
		ID:      id,
	}
}

// GetHistory 获取提交单历史
// 无权限或提交单不存在时返回空列表,不区分两种情况
func (s *submissionService) GetHistory(id string, actor Actor) ([]*HistoryEntry, error) {
	sub, err := s.subRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []*HistoryEntry{}, nil
		}
		return nil, err
	}
	if !workflow.CanView(sub.UserID, actor.ID, actor.Role) {
		return []*HistoryEntry{}, nil
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

	entries := make([]*HistoryEntry, 0, len(records))
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
		entries = append(entries, entry)
	}
	return entries, nil
}

// CanView 查看权限探测
func (s *submissionService) CanView(id string, actor Actor) (bool, error) {
	sub, err := s.subRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return workflow.CanView(sub.UserID, actor.ID, actor.Role), nil
}

// CanEdit 编辑权限探测
func (s *submissionService) CanEdit(id string, actor Actor) (bool, error) {
	sub, err := s.subRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return workflow.CanEdit(sub.UserID, workflow.Status(sub.Status), actor.ID), nil
}

// CanApprove 审批权限探测
func (s *submissionService) CanApprove(id string, actor Actor) (bool, error) {
	sub, err := s.subRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return workflow.CanApprove(sub.UserID, workflow.Status(sub.Status), actor.ID, actor.Role), nil
}

// loadSubmission 加载提交单,缺失或已删除时返回失败结果
func (s *submissionService) loadSubmission(id, operation string) (*model.SubmissionModel, *OperationResult) {
	sub, err := s.subRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, failure(CodeNotFound, "submission not found", "the specified submission does not exist")
		}
		return nil, s.internalFailure(operation, err)
	}
	if sub.Deleted {
		return nil, failure(CodeNotFound, "submission not found", "the specified submission does not exist")
	}
	return sub, nil
}

// newHistory 构造一条历史记录
func (s *submissionService) newHistory(submissionID string, action workflow.Action, actorID, comment string, from, to *string, changes []byte, meta RequestMeta) *model.SubmissionHistoryModel {
	return &model.SubmissionHistoryModel{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		Action:       string(action),
		ActorID:      actorID,
		Comment:      comment,
		FromStatus:   from,
		ToStatus:     to,
		Changes:      changes,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}
}

// failure 构造业务失败结果
func failure(code ResultCode, message string, errs ...string) *OperationResult {
	return &OperationResult{
		Success: false,
		Code:    code,
		Message: message,
		Errors:  errs,
	}
}

// internalFailure 存储层意外失败,记录日志但不向调用方泄露细节
func (s *submissionService) internalFailure(operation string, err error) *OperationResult {
	logrus.WithError(err).WithField("operation", operation).Error("submission store failure")
	return &OperationResult{
		Success: false,
		Code:    CodeInternal,
		Message: "internal server error",
	}
}
