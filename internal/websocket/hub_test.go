package websocket_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/mautops/formflow-gin/internal/websocket"
	"github.com/mautops/formflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient 创建不带真实连接的测试客户端
func newTestClient(id, userID, submissionID string, hub *websocket.Hub) *websocket.Client {
	return &websocket.Client{
		ID:           id,
		UserID:       userID,
		SubmissionID: submissionID,
		Hub:          hub,
		Send:         make(chan []byte, 256),
	}
}

// TestHub_RegisterUnregister 测试 Hub 注册和注销客户端
func TestHub_RegisterUnregister(t *testing.T) {
	hub := websocket.NewHub()

	// 在后台运行 Hub
	go hub.Run()

	client := newTestClient("client-001", "alice", "sub-001", hub)

	// 注册客户端
	hub.Register <- client
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())

	// 注销客户端
	hub.Unregister <- client
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, hub.GetClientCount())
}

// TestHub_BroadcastToSubmission 测试按提交单订阅推送
func TestHub_BroadcastToSubmission(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	// 两个客户端订阅不同的提交单
	subscriber := newTestClient("client-001", "alice", "sub-001", hub)
	other := newTestClient("client-002", "bob", "sub-002", hub)

	hub.Register <- subscriber
	hub.Register <- other
	time.Sleep(100 * time.Millisecond)

	hub.BroadcastToSubmission("sub-001", []byte("status update"))

	// 订阅者收到消息
	select {
	case msg := <-subscriber.Send:
		assert.Equal(t, "status update", string(msg))
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive message")
	}

	// 其他提交单的订阅者收不到
	select {
	case msg := <-other.Send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestHub_BroadcastToUser 测试按用户推送
func TestHub_BroadcastToUser(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	client1 := newTestClient("client-001", "alice", "sub-001", hub)
	client2 := newTestClient("client-002", "alice", "sub-002", hub)
	client3 := newTestClient("client-003", "bob", "sub-001", hub)

	hub.Register <- client1
	hub.Register <- client2
	hub.Register <- client3
	time.Sleep(100 * time.Millisecond)

	hub.BroadcastToUser("alice", []byte("hello"))

	// alice 的两条连接都收到
	for _, c := range []*websocket.Client{client1, client2} {
		select {
		case msg := <-c.Send:
			assert.Equal(t, "hello", string(msg))
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive message", c.ID)
		}
	}

	select {
	case msg := <-client3.Send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestHub_ConcurrentBroadcastDropsSlowClients 测试并发推送下慢客户端被安全剔除
// 慢客户端的剔除会修改客户端表,并发推送必须串行化这一写入
func TestHub_ConcurrentBroadcastDropsSlowClients(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	// Send 无缓冲且无人消费,首条消息即触发剔除
	slow1 := &websocket.Client{ID: "client-001", UserID: "alice", SubmissionID: "sub-001", Hub: hub, Send: make(chan []byte)}
	slow2 := &websocket.Client{ID: "client-002", UserID: "bob", SubmissionID: "sub-001", Hub: hub, Send: make(chan []byte)}

	hub.Register <- slow1
	hub.Register <- slow2
	time.Sleep(100 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.BroadcastToSubmission("sub-001", []byte("update"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.GetClientCount())

	// 剔除后 Hub 仍可正常服务新客户端
	healthy := newTestClient("client-003", "carol", "sub-001", hub)
	hub.Register <- healthy
	time.Sleep(100 * time.Millisecond)

	hub.BroadcastToSubmission("sub-001", []byte("still alive"))
	select {
	case msg := <-healthy.Send:
		assert.Equal(t, "still alive", string(msg))
	case <-time.After(time.Second):
		t.Fatal("healthy client did not receive message")
	}
}

// TestNotifier_StatusEvent 测试状态变更事件推送与格式
func TestNotifier_StatusEvent(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	subscriber := newTestClient("client-001", "alice", "sub-001", hub)
	hub.Register <- subscriber
	time.Sleep(100 * time.Millisecond)

	notifier := websocket.NewNotifier(hub)
	notifier.NotifyStatusChanged("sub-001", workflow.StatusDraft, workflow.StatusSent, "alice")

	select {
	case payload := <-subscriber.Send:
		var event websocket.StatusEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.Equal(t, "status_changed", event.Type)
		assert.Equal(t, "sub-001", event.SubmissionID)
		assert.Equal(t, "draft", event.FromStatus)
		assert.Equal(t, "sent", event.ToStatus)
		assert.Equal(t, "alice", event.ActorID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive status event")
	}
}
