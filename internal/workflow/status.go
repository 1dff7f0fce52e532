package workflow

import "fmt"

// Status 提交单生命周期状态
type Status string

const (
	StatusDraft       Status = "draft"        // 草稿,尚未提交
	StatusSent        Status = "sent"         // 已提交,等待审核
	StatusUnderReview Status = "under_review" // 审核中
	StatusApproved    Status = "approved"     // 已批准
	StatusRejected    Status = "rejected"     // 已拒绝
	StatusCancelled   Status = "cancelled"    // 已取消
)

// AllStatuses 所有合法状态,顺序与生命周期一致
var AllStatuses = []Status{
	StatusDraft,
	StatusSent,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
}

// ParseStatus 解析状态字符串
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown submission status: %q", s)
}

// IsValid 判断状态是否合法
func (s Status) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// IsTerminal 判断状态对普通用户是否为终态
// approved 和 cancelled 只有管理员可以继续变更
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusCancelled
}

// Action 提交单历史记录动作
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionSent      Action = "sent"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionCancelled Action = "cancelled"
	ActionDeleted   Action = "deleted"
)

// ActionForStatus 将目标状态映射为对应的历史动作
// 状态变更写历史时使用,未知状态记为 updated
func ActionForStatus(s Status) Action {
	switch s {
	case StatusSent:
		return ActionSent
	case StatusApproved:
		return ActionApproved
	case StatusRejected:
		return ActionRejected
	case StatusCancelled:
		return ActionCancelled
	default:
		return ActionUpdated
	}
}
