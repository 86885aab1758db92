package envelope

import (
	"encoding/json"
	"strings"

	"github.com/angelmondragon/workbooks-backend/internal/commands"
	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
)

// Envelope is a command message whose mandatory metadata has been checked.
type Envelope struct {
	MessageID     string
	Topic         string
	Subject       string
	Timestamp     string
	SchemaVersion string
	OriginSource  string
	CommandName   commands.Name
	OwnerID       string
	Payload       json.RawMessage
}

// Workbook reconstructs the payload as carried; no defaults are applied.
func (e Envelope) Workbook() (workbooks.Workbook, error) {
	return workbooks.Decode(e.Payload)
}

// Validate checks the payload against the workbook schema and requires the
// payload owner to match the RecordOwner attribute.
func (e Envelope) Validate() workbooks.ValidationResult {
	result := workbooks.ValidateDocument(e.Payload)
	for _, field := range result.Fields() {
		if field == "ownerId" || field == workbooks.RootField {
			return result
		}
	}
	var owner struct {
		OwnerID string `json:"ownerId"`
	}
	if err := json.Unmarshal(e.Payload, &owner); err == nil && owner.OwnerID != e.OwnerID {
		result.Add("ownerId", "must match the record owner")
	}
	return result
}

// Parser turns raw records into envelopes, accepting only known schema versions.
type Parser struct {
	versions map[string]struct{}
}

// NewParser accepts the given schema versions; none means the current version only.
func NewParser(versions ...string) *Parser {
	p := &Parser{versions: map[string]struct{}{}}
	for _, v := range versions {
		if v = strings.TrimSpace(v); v != "" {
			p.versions[v] = struct{}{}
		}
	}
	if len(p.versions) == 0 {
		p.versions[commands.SchemaVersion] = struct{}{}
	}
	return p
}

var missingAttributeCodes = map[string]pkgerrors.Code{
	commands.AttrVersion:       pkgerrors.CodeMissingSchemaVersion,
	commands.AttrSource:        pkgerrors.CodeMissingOriginSource,
	commands.AttrDomainCommand: pkgerrors.CodeMissingCommandName,
	commands.AttrRecordOwner:   pkgerrors.CodeMissingOwner,
}

// Parse checks the message first, then each mandatory attribute in a fixed order.
func (p *Parser) Parse(r Record) (Envelope, error) {
	payload, err := decodeMessage(r.Message, 0)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			typed.WithDetails(map[string]any{"message_id": r.MessageID})
		}
		return Envelope{}, err
	}

	values := make(map[string]string, len(commands.AttributeKeys))
	for _, key := range commands.AttributeKeys {
		value := strings.TrimSpace(r.Attributes[key])
		if value == "" {
			return Envelope{}, pkgerrors.New(missingAttributeCodes[key], "notification is missing the "+key+" attribute").
				WithDetails(map[string]any{"attribute": key, "message_id": r.MessageID})
		}
		values[key] = value
	}

	version := values[commands.AttrVersion]
	if _, ok := p.versions[version]; !ok {
		return Envelope{}, pkgerrors.New(pkgerrors.CodeUnsupportedSchemaVersion, "notification schema version is not supported").
			WithDetails(map[string]any{"version": version, "message_id": r.MessageID})
	}

	return Envelope{
		MessageID:     r.MessageID,
		Topic:         r.Topic,
		Subject:       r.Subject,
		Timestamp:     r.Timestamp,
		SchemaVersion: version,
		OriginSource:  values[commands.AttrSource],
		CommandName:   commands.Name(values[commands.AttrDomainCommand]),
		OwnerID:       values[commands.AttrRecordOwner],
		Payload:       payload,
	}, nil
}
