package validators

import "time"

// PushMessage is the message half of a Pub/Sub push request.
type PushMessage struct {
	Data        string            `json:"data" validate:"omitempty,base64"`
	Attributes  map[string]string `json:"attributes"`
	MessageID   string            `json:"messageId" validate:"required"`
	PublishTime time.Time         `json:"publishTime"`
}

// PushRequest is the body Pub/Sub POSTs to a push endpoint.
type PushRequest struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}
