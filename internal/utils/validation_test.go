package utils_test

import (
	"strings"
	"testing"

	"github.com/mautops/formflow-gin/internal/utils"
	"github.com/stretchr/testify/assert"
)

// TestValidateSubmissionID 测试提交单 ID 格式校验
func TestValidateSubmissionID(t *testing.T) {
	valid := []string{
		"sub-001",
		"a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		"SUB_2026_0001",
		"x",
	}
	for _, id := range valid {
		assert.NoError(t, utils.ValidateSubmissionID(id), "id %q", id)
	}

	assert.Equal(t, utils.ErrEmptyID, utils.ValidateSubmissionID(""))
	assert.Equal(t, utils.ErrInvalidIDFormat, utils.ValidateSubmissionID("sub 001"))
	assert.Equal(t, utils.ErrInvalidIDFormat, utils.ValidateSubmissionID("sub;drop"))
	assert.Equal(t, utils.ErrInvalidIDFormat, utils.ValidateSubmissionID("sub/../etc"))
	assert.Equal(t, utils.ErrIDTooLong, utils.ValidateSubmissionID(strings.Repeat("a", 65)))
}

// TestValidateFormID 测试表单 ID 与提交单 ID 使用同一规则
func TestValidateFormID(t *testing.T) {
	assert.NoError(t, utils.ValidateFormID("form-001"))
	assert.Equal(t, utils.ErrInvalidIDFormat, utils.ValidateFormID("form'001"))
}

// TestValidateFormName 测试表单名称校验
func TestValidateFormName(t *testing.T) {
	assert.NoError(t, utils.ValidateFormName("leave request"))
	assert.NoError(t, utils.ValidateFormName("  expense report  "))

	assert.Equal(t, utils.ErrEmptyName, utils.ValidateFormName(""))
	assert.Equal(t, utils.ErrEmptyName, utils.ValidateFormName("   "))
	assert.Equal(t, utils.ErrNameTooLong, utils.ValidateFormName(strings.Repeat("n", 256)))

	dangerous := []string{
		"<script>alert(1)</script>",
		"form'; DROP TABLE submissions",
		"a UNION SELECT password",
		"<img src=x onerror=alert(1)>",
	}
	for _, name := range dangerous {
		assert.Equal(t, utils.ErrDangerousChars, utils.ValidateFormName(name), "name %q", name)
	}
}

// TestSanitizeString 测试字符串清理
func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", utils.SanitizeString("<b>bold</b>"))

	// 控制字符被移除,换行和制表符保留
	assert.Equal(t, "line1\nline2\tend", utils.SanitizeString("line1\nline2\tend\x00\x07"))
}

// TestTrimAndValidate 测试清理加校验组合
func TestTrimAndValidate(t *testing.T) {
	result, err := utils.TrimAndValidate("  hello  ", 10)
	assert.NoError(t, err)
	assert.Equal(t, "hello", result)

	_, err = utils.TrimAndValidate("   ", 10)
	assert.Equal(t, utils.ErrEmptyString, err)

	_, err = utils.TrimAndValidate("toolongvalue", 5)
	assert.Equal(t, utils.ErrStringTooLong, err)

	// maxLen 为 0 表示不限制长度
	result, err = utils.TrimAndValidate("unbounded value", 0)
	assert.NoError(t, err)
	assert.Equal(t, "unbounded value", result)
}
