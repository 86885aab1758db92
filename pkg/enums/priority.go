package enums

import "fmt"

// Priority ranks a workbook.
type Priority string

const (
	PriorityNone     Priority = "None"
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var validPriorities = []Priority{
	PriorityNone,
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityCritical,
}

// Priorities returns the accepted values in rank order.
func Priorities() []Priority {
	out := make([]Priority, len(validPriorities))
	copy(out, validPriorities)
	return out
}

// IsValid reports whether the value is a known priority.
func (p Priority) IsValid() bool {
	for _, candidate := range validPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriority converts raw input into Priority.
func ParsePriority(value string) (Priority, error) {
	for _, candidate := range validPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q", value)
}
