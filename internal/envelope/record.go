package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/angelmondragon/workbooks-backend/internal/commands"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
)

const maxMessageNesting = 3

// Record is a raw channel message before its metadata has been checked.
type Record struct {
	MessageID  string
	Topic      string
	Subject    string
	Timestamp  string
	Message    json.RawMessage
	Attributes map[string]string
}

// FromDelivery adapts a transport delivery; Data is taken as the message verbatim.
func FromDelivery(d commands.Delivery) Record {
	r := Record{
		MessageID:  d.ID,
		Topic:      d.Topic,
		Message:    d.Data,
		Attributes: d.Attributes,
	}
	if !d.PublishedAt.IsZero() {
		r.Timestamp = d.PublishedAt.UTC().Format(time.RFC3339Nano)
	}
	return r
}

// notification is the SNS-style record used on queue transports.
type notification struct {
	Type              string                     `json:"Type,omitempty"`
	MessageID         string                     `json:"MessageId"`
	TopicArn          string                     `json:"TopicArn,omitempty"`
	Subject           string                     `json:"Subject,omitempty"`
	Timestamp         string                     `json:"Timestamp,omitempty"`
	Message           json.RawMessage            `json:"Message,omitempty"`
	MessageAttributes map[string]json.RawMessage `json:"MessageAttributes,omitempty"`
}

type typedAttribute struct {
	Type        string `json:"Type,omitempty"`
	Value       string `json:"Value,omitempty"`
	DataType    string `json:"DataType,omitempty"`
	StringValue string `json:"StringValue,omitempty"`
}

// DecodeRecord parses an SNS-style notification. Attribute values may be
// {"Type","Value"}, {"DataType","StringValue"} or plain strings.
func DecodeRecord(data []byte) (Record, error) {
	var n notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodeMalformedMessage, err, "notification record is not valid JSON")
	}
	r := Record{
		MessageID:  n.MessageID,
		Topic:      n.TopicArn,
		Subject:    n.Subject,
		Timestamp:  n.Timestamp,
		Message:    n.Message,
		Attributes: make(map[string]string, len(n.MessageAttributes)),
	}
	for key, raw := range n.MessageAttributes {
		value, ok := attributeValue(raw)
		if !ok {
			return Record{}, pkgerrors.New(pkgerrors.CodeMalformedMessage, "notification attribute could not be decoded").
				WithDetails(map[string]any{"attribute": key, "message_id": n.MessageID})
		}
		r.Attributes[key] = value
	}
	return r, nil
}

func attributeValue(raw json.RawMessage) (string, bool) {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, true
	}
	var typed typedAttribute
	if err := json.Unmarshal(raw, &typed); err != nil {
		return "", false
	}
	if typed.Value != "" {
		return typed.Value, true
	}
	return typed.StringValue, true
}

// EncodeRecord renders r as an SNS-style notification with a string Message.
func EncodeRecord(r Record) ([]byte, error) {
	message, err := json.Marshal(string(r.Message))
	if err != nil {
		return nil, err
	}
	n := notification{
		Type:              "Notification",
		MessageID:         r.MessageID,
		TopicArn:          r.Topic,
		Subject:           r.Subject,
		Timestamp:         r.Timestamp,
		Message:           message,
		MessageAttributes: make(map[string]json.RawMessage, len(r.Attributes)),
	}
	for key, value := range r.Attributes {
		attr, err := json.Marshal(typedAttribute{Type: "String", Value: value})
		if err != nil {
			return nil, err
		}
		n.MessageAttributes[key] = attr
	}
	return json.Marshal(n)
}

// decodeMessage unwraps a message sent as structured JSON, as JSON text inside
// a string, or as base64 text, and returns the structured payload.
func decodeMessage(raw json.RawMessage, depth int) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, pkgerrors.New(pkgerrors.CodeMissingMessage, "notification does not contain a message")
	}
	if depth > maxMessageNesting {
		return nil, pkgerrors.New(pkgerrors.CodeMalformedMessage, "notification message is nested too deeply")
	}

	switch trimmed[0] {
	case '{', '[':
		if !json.Valid(trimmed) {
			return nil, pkgerrors.New(pkgerrors.CodeMalformedMessage, "notification message is not valid JSON")
		}
		return json.RawMessage(trimmed), nil
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeMalformedMessage, err, "notification message is not valid JSON")
		}
		return decodeMessage(json.RawMessage(text), depth+1)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(trimmed)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeMalformedMessage, err, "notification message is neither JSON nor base64")
	}
	return decodeMessage(decoded, depth+1)
}
