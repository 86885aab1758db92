package commands

import (
	"context"
	"time"
)

// Name identifies a business command carried over the event channel.
type Name string

const (
	CreateWorkbook Name = "create-workbook"
)

// SchemaVersion identifies the current payload shape published by the ingress.
const SchemaVersion = "2020-04-23"

// Attribute keys stamped on every published command message.
const (
	AttrVersion       = "Version"
	AttrSource        = "Source"
	AttrDomainCommand = "DomainCommand"
	AttrRecordOwner   = "RecordOwner"
)

// AttributeKeys lists the mandatory attributes in the order consumers check them.
var AttributeKeys = []string{AttrVersion, AttrSource, AttrDomainCommand, AttrRecordOwner}

var known = map[Name]struct{}{
	CreateWorkbook: {},
}

// Names lists every command the pipeline can route.
func Names() []Name {
	return []Name{CreateWorkbook}
}

// Parse returns the command for value, or false when no handler owns it.
// Matching is exact.
func Parse(value string) (Name, bool) {
	n := Name(value)
	_, ok := known[n]
	return n, ok
}

func (n Name) String() string {
	return string(n)
}

// Message is a command ready to hand to a channel.
type Message struct {
	Subject    string
	Data       []byte
	Attributes map[string]string
}

// Publisher hands command messages to the event channel and returns the
// channel-assigned message id.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// Delivery is one inbound message as seen by a worker transport.
type Delivery struct {
	ID          string
	Topic       string
	PublishedAt time.Time
	Data        []byte
	Attributes  map[string]string
}
