package types

import "time"

// AlarmMessage is the SQS envelope carrying one AlarmEvent from the webhook
// receiver to the alarm worker.
type AlarmMessage struct {
	Event      AlarmEvent `json:"event"`
	TraceID    string     `json:"trace_id"`
	ReceivedAt time.Time  `json:"received_at"`
}

// SendInput defines the contract for email transmission. Content is
// pre-rendered; providers never apply templates.
type SendInput struct {
	To          string
	From        SenderIdentity
	Subject     string
	BodyHTML    string
	BodyText    string
	ReferenceID string
}

// SenderIdentity defines the sender for outgoing emails.
type SenderIdentity struct {
	Name    string
	Address string
}
