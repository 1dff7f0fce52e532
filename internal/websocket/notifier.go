package websocket

import (
	"encoding/json"
	"time"

	"github.com/mautops/formflow-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// StatusEvent 提交单状态变更事件
type StatusEvent struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submission_id"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
	ActorID      string    `json:"actor_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// Notifier 将工作流状态变更推送到订阅该提交单的 WebSocket 连接
type Notifier struct {
	hub *Hub
}

// NewNotifier 创建状态变更推送器
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// NotifyStatusChanged 推送状态变更事件
// 推送失败只记录日志,不影响工作流操作本身
func (n *Notifier) NotifyStatusChanged(submissionID string, from, to workflow.Status, actorID string) {
	event := StatusEvent{
		Type:         "status_changed",
		SubmissionID: submissionID,
		FromStatus:   string(from),
		ToStatus:     string(to),
		ActorID:      actorID,
		Timestamp:    time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal status event")
		return
	}

	n.hub.BroadcastToSubmission(submissionID, payload)
}
