package notification

// NoticeType identifies the kind of notice being sent
type NoticeType string

const (
	NoticeDelegationGranted NoticeType = "delegation_granted"
	NoticeDelegationRevoked NoticeType = "delegation_revoked"
)

// NotificationData carries one notice to one recipient
type NotificationData struct {
	To      string            // Recipient email address
	Subject string            // Subject line
	Body    string            // The content or message to send
	Data    map[string]string // Additional metadata rendered into templates
}

// Notifier delivers notices. Delivery failures are the caller's to
// handle; the delegation engine logs them and moves on, it never fails
// an operation because a notice could not be sent.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData) error
}
