package enums

import (
	"fmt"
	"strings"
)

// StoreBackend selects where workbooks are materialized.
type StoreBackend string

const (
	StoreBackendSQL      StoreBackend = "sql"
	StoreBackendAzTables StoreBackend = "aztables"
)

var validStoreBackends = []StoreBackend{StoreBackendSQL, StoreBackendAzTables}

func (s StoreBackend) IsValid() bool {
	for _, candidate := range validStoreBackends {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreBackend converts raw input into StoreBackend, case-insensitively.
func ParseStoreBackend(value string) (StoreBackend, error) {
	normalized := StoreBackend(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid store backend %q", value)
}

// Transport selects the event channel between ingress and worker.
type Transport string

const (
	TransportPubSub  Transport = "pubsub"
	TransportAzQueue Transport = "azqueue"
)

var validTransports = []Transport{TransportPubSub, TransportAzQueue}

func (t Transport) IsValid() bool {
	for _, candidate := range validTransports {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransport converts raw input into Transport, case-insensitively.
func ParseTransport(value string) (Transport, error) {
	normalized := Transport(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid transport %q", value)
}
