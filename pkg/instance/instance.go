package instance

import (
	"os"

	"github.com/angelmondragon/plaidbridge/pkg/env"
)

// ID names the running process in logs and lock values. It prefers an
// explicit PLAIDBRIDGE_INSTANCE_ID, then the platform dyno name, then the host.
func ID() string {
	if id := env.First("PLAIDBRIDGE_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
