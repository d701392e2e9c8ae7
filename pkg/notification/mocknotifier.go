package notification

import (
	"log/slog"
	"sync"
)

// MockNotifier records notices instead of delivering them. Used in
// tests and when no SMTP server is configured.
type MockNotifier struct {
	mutex sync.Mutex
	Sent  []SentNotice
}

// SentNotice is one recorded notice
type SentNotice struct {
	Type NoticeType
	Data NotificationData
}

// NewMockNotifier creates an empty mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the notice
func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Sent = append(m.Sent, SentNotice{Type: noticeType, Data: notification})
	slog.Info("Mock notifier recorded notice", "noticeType", noticeType, "to", notification.To)
	return nil
}

// Count returns the number of recorded notices
func (m *MockNotifier) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.Sent)
}
