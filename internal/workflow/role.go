package workflow

import (
	"fmt"
	"strings"
)

// Role 操作者角色,封闭枚举
// 避免散落在业务代码里的字符串比较,所有角色判断集中在本包
type Role string

const (
	RoleUser    Role = "user"    // 普通用户,只操作自己的提交单
	RoleManager Role = "manager" // 审批人
	RoleAdmin   Role = "admin"   // 管理员
)

// AllRoles 所有合法角色
var AllRoles = []Role{RoleUser, RoleManager, RoleAdmin}

// ParseRole 解析角色字符串,大小写不敏感
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "manager", "gestor":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// IsValid 判断角色是否合法
func (r Role) IsValid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// CanReview 判断角色是否具有审批能力
func (r Role) CanReview() bool {
	return r == RoleManager || r == RoleAdmin
}

// RoleAllowedByForm 判断角色是否允许使用某个表单
// allowedRoles 为逗号分隔列表,空列表表示不限制,比较大小写不敏感
func RoleAllowedByForm(allowedRoles string, role Role) bool {
	trimmed := strings.TrimSpace(allowedRoles)
	if trimmed == "" {
		return true
	}
	for _, part := range strings.Split(trimmed, ",") {
		if parsed, err := ParseRole(part); err == nil && parsed == role {
			return true
		}
	}
	return false
}
