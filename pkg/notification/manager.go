package notification

import (
	"fmt"
)

// NotificationManager holds the registered notifier and notice templates.
// BaseUrl is the public origin used to build links embedded in notices.
type NotificationManager struct {
	BaseUrl   string
	notifier  Notifier
	templates map[NoticeType]NoticeTemplate
}

// NewNotificationManager creates and returns a new NotificationManager
func NewNotificationManager(baseUrl string, notifier Notifier) *NotificationManager {
	nm := &NotificationManager{
		BaseUrl:   baseUrl,
		notifier:  notifier,
		templates: make(map[NoticeType]NoticeTemplate),
	}
	nm.RegisterNotification(PasswordResetInit, NoticeTemplate{
		Subject: "Password reset",
		Text:    "Open the following link to choose a new password: {{.Link}}",
		Html:    `<p>Open the following link to choose a new password:</p><p><a href="{{.Link}}">{{.Link}}</a></p>`,
	})
	return nm
}

// RegisterNotification adds or replaces a notice template
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, template NoticeTemplate) {
	nm.templates[noticeType] = template
}

// Send sends a notification of the given type
func (nm *NotificationManager) Send(noticeType NoticeType, notification NotificationData) error {
	template, exists := nm.templates[noticeType]
	if !exists {
		return fmt.Errorf("no template registered for notice type: %s", noticeType)
	}
	return nm.notifier.Send(noticeType, notification, template)
}
