// Package version carries build metadata injected at link time plus runtime
// instance identity, used for the -version flag, log fields, and telemetry
// resource attributes.
package version

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Populated at build time, for example:
//
//	go build -ldflags "-X gatekeeper/internal/version.Version=v1.2.0 \
//	  -X gatekeeper/internal/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X gatekeeper/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "unknown"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info holds build metadata and runtime identity for one process.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns build and instance metadata. The instance id is generated
// once per process so telemetry can tell replicas of the same build apart.
func GetInfo() Info {
	once.Do(func() {
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			InstanceID: uuid.New().String(),
			Hostname:   hostname(),
		}
	})
	return info
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// String formats version info for CLI display.
func (i Info) String() string {
	return fmt.Sprintf("gatekeeper version %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildDate)
}
