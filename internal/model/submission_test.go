package model_test

import (
	"testing"

	"github.com/mautops/formflow-gin/internal/model"
	"github.com/stretchr/testify/assert"
)

// validSubmission 构造一个通过验证的提交单
func validSubmission() *model.SubmissionModel {
	return &model.SubmissionModel{
		ID:      "sub-001",
		FormID:  "form-001",
		UserID:  "user-001",
		Data:    []byte(`{"field":"value"}`),
		Status:  "draft",
		Version: 1,
	}
}

// TestSubmissionValidate 测试提交单验证
func TestSubmissionValidate(t *testing.T) {
	assert.NoError(t, validSubmission().Validate())

	sub := validSubmission()
	sub.ID = ""
	assert.Error(t, sub.Validate())

	sub = validSubmission()
	sub.FormID = ""
	assert.Error(t, sub.Validate())

	sub = validSubmission()
	sub.UserID = ""
	assert.Error(t, sub.Validate())

	sub = validSubmission()
	sub.Status = ""
	assert.Error(t, sub.Validate())

	sub = validSubmission()
	sub.Version = 0
	assert.Error(t, sub.Validate())
}

// TestSubmissionValidate_SelfReview 测试审批人不能是所有者
func TestSubmissionValidate_SelfReview(t *testing.T) {
	sub := validSubmission()
	owner := sub.UserID
	sub.ReviewerID = &owner
	assert.Error(t, sub.Validate())

	reviewer := "reviewer-001"
	sub.ReviewerID = &reviewer
	assert.NoError(t, sub.Validate())
}

// TestHistoryValidate 测试历史记录验证
func TestHistoryValidate(t *testing.T) {
	hist := &model.SubmissionHistoryModel{
		ID:           "hist-001",
		SubmissionID: "sub-001",
		Action:       "created",
		ActorID:      "user-001",
	}
	assert.NoError(t, hist.Validate())

	hist.Action = ""
	assert.Error(t, hist.Validate())
}

// TestFormValidate 测试表单验证
func TestFormValidate(t *testing.T) {
	form := &model.FormModel{
		ID:     "form-001",
		Name:   "leave request",
		Schema: []byte(`{"fields":[]}`),
	}
	assert.NoError(t, form.Validate())

	form.Schema = nil
	assert.Error(t, form.Validate())
}
