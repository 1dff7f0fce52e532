package workflow

// 权限判定均为纯函数,只依赖已取出的提交单字段
// 没有副作用,UI 探测接口可以重复调用

// CanView 判断操作者是否可以查看提交单
// 管理员和审批人可以查看全部,普通用户只能查看自己的
func CanView(ownerID string, actorID string, role Role) bool {
	switch role {
	case RoleAdmin, RoleManager:
		return true
	case RoleUser:
		return ownerID == actorID
	default:
		return false
	}
}

// CanEdit 判断操作者是否可以编辑提交单
// 只有所有者本人可以编辑,且仅限草稿状态
// 这是有意为之的限制:管理员可以查看他人的草稿,但不能替他人编辑
func CanEdit(ownerID string, status Status, actorID string) bool {
	return ownerID == actorID && status == StatusDraft
}

// CanApprove 判断操作者是否可以审批提交单
// 要求审批角色,禁止审批自己的提交单,且状态必须处于待审
func CanApprove(ownerID string, status Status, actorID string, role Role) bool {
	if !role.CanReview() {
		return false
	}
	if ownerID == actorID {
		return false
	}
	return status == StatusSent || status == StatusUnderReview
}
