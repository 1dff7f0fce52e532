package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/formflow-gin/internal/api"
	"github.com/mautops/formflow-gin/internal/service"
	"github.com/stretchr/testify/assert"
)

// TestResponseFormat 测试统一响应格式
func TestResponseFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		api.Success(c, gin.H{"message": "test"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response api.Response
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 0, response.Code)
	assert.Equal(t, "success", response.Message)
	assert.NotNil(t, response.Data)
}

// TestErrorResponseFormat 测试错误响应格式
func TestErrorResponseFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		api.Error(c, 400, "invalid request", "missing required field")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response api.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 400, response.Code)
	assert.Equal(t, "invalid request", response.Message)
	assert.Equal(t, "missing required field", response.Detail)
}

// TestRenderResult_StatusMapping 测试业务结果到状态码的映射
func TestRenderResult_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		code     service.ResultCode
		expected int
	}{
		{service.CodeNotFound, http.StatusNotFound},
		{service.CodeForbidden, http.StatusForbidden},
		{service.CodeInvalidState, http.StatusConflict},
		{service.CodeInvalidTransition, http.StatusConflict},
		{service.CodeConflict, http.StatusConflict},
		{service.CodeValidation, http.StatusBadRequest},
		{service.CodeInternal, http.StatusInternalServerError},
		{service.ResultCode("unknown"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		router := gin.New()
		router.GET("/test", func(c *gin.Context) {
			api.RenderResult(c, &service.OperationResult{
				Success: false,
				Code:    tc.code,
				Message: "failed",
			})
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.expected, w.Code, "code %s", tc.code)
	}
}

// TestRenderResult_Success 测试成功结果渲染
func TestRenderResult_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		api.RenderResult(c, &service.OperationResult{
			Success: true,
			Code:    service.CodeOK,
			Message: "submission created",
			ID:      "sub-001",
		})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sub-001"`)
}
