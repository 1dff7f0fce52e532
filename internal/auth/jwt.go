package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/formflow-gin/internal/workflow"
)

// Claims 访问令牌声明
// 令牌由外部身份系统签发,本服务只验证并提取操作者身份和角色
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator 访问令牌验证器,HMAC 对称密钥
type TokenValidator struct {
	secret []byte
	issuer string
}

// NewTokenValidator 创建令牌验证器
func NewTokenValidator(secret, issuer string) *TokenValidator {
	return &TokenValidator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// ValidateToken 验证令牌并返回声明
func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("unexpected token issuer: %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject is required")
	}
	if _, err := workflow.ParseRole(claims.Role); err != nil {
		return nil, err
	}

	return claims, nil
}

// AuthMiddleware JWT 认证中间件
// 验证通过后将操作者身份和角色写入请求上下文,供控制器取用
func AuthMiddleware(validator *TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			c.Abort()
			return
		}

		if strings.HasPrefix(token, "Bearer ") {
			token = token[7:]
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
				"detail":  err.Error(),
			})
			c.Abort()
			return
		}

		role, _ := workflow.ParseRole(claims.Role)
		c.Set("user_id", claims.Subject)
		c.Set("name", claims.Name)
		c.Set("email", claims.Email)
		c.Set("role", string(role))

		c.Next()
	}
}
