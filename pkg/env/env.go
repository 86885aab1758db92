package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// InstanceID identifies the running process for logs and the Source attribute.
func InstanceID() string {
	for _, key := range []string{"WORKER_ID", "K_REVISION", "HOSTNAME"} {
		if id := Get(key, ""); id != "" {
			return id
		}
	}
	return "local"
}
