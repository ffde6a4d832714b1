package notification

// NoticeType identifies a kind of notification (e.g. password reset)
type NoticeType string

const (
	PasswordResetInit NoticeType = "password_reset_init"
)

// NoticeTemplate holds the subject and body templates for a notice
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData carries the recipient and template data for one send
type NotificationData struct {
	To   string            // Recipient identifier (e.g. email address)
	Data map[string]string // Template data (e.g. the reset link)
}

// Notifier sends a rendered notice to a recipient
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
