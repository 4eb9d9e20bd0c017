package auth

import "sync"

// EventType はセッション変化イベントの種別を表す。
type EventType string

const (
	// EventSignedIn はサインイン（サインアップ含む）イベント。
	EventSignedIn EventType = "signed_in"
	// EventSignedOut はサインアウトイベント。
	EventSignedOut EventType = "signed_out"
)

// Event はセッション変化の通知を表す。
type Event struct {
	Type   EventType
	UserID string
	Email  string
}

// Notifier はセッション変化通知の購読を管理する。
// プッシュ駆動の唯一の更新経路であり、ポーリングは行わない。
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	callbacks map[int]func(Event)
}

// NewNotifier はNotifierを生成する。
func NewNotifier() *Notifier {
	return &Notifier{
		callbacks: make(map[int]func(Event)),
	}
}

// Subscribe はセッション変化イベントの購読を開始する。
// 返される関数を呼ぶと購読を解除する。アプリケーション終了時に
// 必ず解除すること。
func (n *Notifier) Subscribe(fn func(Event)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.callbacks[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.callbacks, id)
	}
}

// Publish は全購読者にイベントを同期的に配信する。
// セッション状態の変更が完了した後に呼ぶこと。
func (n *Notifier) Publish(event Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.callbacks))
	for _, fn := range n.callbacks {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// SubscriberCount は現在の購読者数を返す。テストおよびメトリクス用。
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.callbacks)
}
