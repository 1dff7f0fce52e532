package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/formflow-gin/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "formflow"
)

// signToken 签发测试令牌
func signToken(t *testing.T, secret, issuer, subject, role string, expiresIn time.Duration) string {
	claims := &auth.Claims{
		Name:  "Alice",
		Email: "alice@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// TestValidateToken 测试令牌验证
func TestValidateToken(t *testing.T) {
	validator := auth.NewTokenValidator(testSecret, testIssuer)

	token := signToken(t, testSecret, testIssuer, "alice", "user", time.Hour)
	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "alice@example.com", claims.Email)
}

// TestValidateToken_Failures 测试令牌验证失败分支
func TestValidateToken_Failures(t *testing.T) {
	validator := auth.NewTokenValidator(testSecret, testIssuer)

	// 密钥不匹配
	token := signToken(t, "other-secret", testIssuer, "alice", "user", time.Hour)
	_, err := validator.ValidateToken(token)
	assert.Error(t, err)

	// 已过期
	token = signToken(t, testSecret, testIssuer, "alice", "user", -time.Hour)
	_, err = validator.ValidateToken(token)
	assert.Error(t, err)

	// 签发方不匹配
	token = signToken(t, testSecret, "someone-else", "alice", "user", time.Hour)
	_, err = validator.ValidateToken(token)
	assert.Error(t, err)

	// 缺少 subject
	token = signToken(t, testSecret, testIssuer, "", "user", time.Hour)
	_, err = validator.ValidateToken(token)
	assert.Error(t, err)

	// 未知角色
	token = signToken(t, testSecret, testIssuer, "alice", "superuser", time.Hour)
	_, err = validator.ValidateToken(token)
	assert.Error(t, err)

	// 完全不是令牌
	_, err = validator.ValidateToken("not-a-token")
	assert.Error(t, err)
}

// TestAuthMiddleware 测试认证中间件
func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := auth.NewTokenValidator(testSecret, testIssuer)

	router := gin.New()
	router.Use(auth.AuthMiddleware(validator))
	router.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"role":    c.GetString("role"),
		})
	})

	// 缺少 Authorization 头
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/probe", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 非法令牌
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 合法令牌,身份写入上下文
	token := signToken(t, testSecret, testIssuer, "alice", "MANAGER", time.Hour)
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"alice"`)
	// 角色规范化为小写枚举值
	assert.Contains(t, w.Body.String(), `"role":"manager"`)
}
