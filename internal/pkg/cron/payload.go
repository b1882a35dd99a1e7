package cron

const (
	JobSendEmail        = "send_email"
	JobPushNotification = "push_notification"
)

// EmailPayload send_email 任务参数
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// NotificationPayload push_notification 任务参数
type NotificationPayload struct {
	ReceiverID  uint64 `json:"receiverId"`
	EmitterID   uint64 `json:"emitterId"`
	CharacterID uint64 `json:"characterId,omitempty"`
	Type        string `json:"type"`
	Message     string `json:"message"`
}
