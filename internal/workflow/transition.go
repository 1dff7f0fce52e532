package workflow

// roleSet 角色集合
type roleSet map[Role]bool

func roles(rs ...Role) roleSet {
	set := make(roleSet, len(rs))
	for _, r := range rs {
		set[r] = true
	}
	return set
}

var anyRole = roles(RoleUser, RoleManager, RoleAdmin)

// transitionTable 状态迁移表,纯数据
// from -> to -> 允许触发该迁移的角色集合
// approved/cancelled 为终态,以及 rejected 的任意迁移,由 adminOverride 单独放行
var transitionTable = map[Status]map[Status]roleSet{
	StatusDraft: {
		StatusSent:      anyRole,
		StatusCancelled: anyRole,
	},
	StatusSent: {
		StatusUnderReview: roles(RoleManager, RoleAdmin),
		StatusApproved:    roles(RoleManager, RoleAdmin),
		StatusRejected:    roles(RoleManager, RoleAdmin),
		StatusCancelled:   anyRole,
	},
	StatusUnderReview: {
		StatusApproved:  roles(RoleManager, RoleAdmin),
		StatusRejected:  roles(RoleManager, RoleAdmin),
		StatusCancelled: roles(RoleManager, RoleAdmin),
	},
	StatusRejected: {
		// 被拒绝的提交单可以重新打开为草稿继续编辑
		StatusDraft: anyRole,
	},
	// approved 和 cancelled 没有普通迁移
	StatusApproved:  {},
	StatusCancelled: {},
}

// adminOverride 管理员可以从这些状态迁移到任意其他状态
var adminOverride = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// CanTransition 判断角色是否允许将提交单从 from 迁移到 to
// 对任意 (from, to, role) 组合都有定义,未在表中的迁移一律拒绝
func CanTransition(from, to Status, role Role) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	if targets, ok := transitionTable[from]; ok {
		if allowed, ok := targets[to]; ok && allowed[role] {
			return true
		}
	}
	if role == RoleAdmin && adminOverride[from] {
		return true
	}
	return false
}

// AllowedTargets 枚举角色在某状态下允许的目标状态
func AllowedTargets(from Status, role Role) []Status {
	var out []Status
	for _, to := range AllStatuses {
		if CanTransition(from, to, role) {
			out = append(out, to)
		}
	}
	return out
}
