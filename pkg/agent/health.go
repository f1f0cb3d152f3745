package agent

import (
	"os"
	"runtime"
	"strings"
)

const envPrefix = "AGENT_"

var secretMarkers = []string{"KEY", "SECRET", "TOKEN", "PASSWORD"}

// HealthInfo is the diagnostic snapshot returned by the agent health
// endpoint. Env carries the AGENT_* environment with secret-looking values
// redacted.
type HealthInfo struct {
	Version      string            `json:"version"`
	Build        string            `json:"build"`
	Platform     string            `json:"platform"`
	Env          map[string]string `json:"env"`
	Capabilities []string          `json:"capabilities"`
	TraceID      string            `json:"trace_id,omitempty"`
}

// HealthInformation reports version, build, platform and capability
// information for troubleshooting.
func (a *Agent) HealthInformation(traceID string) HealthInfo {
	env := map[string]string{
		"go_version": runtime.Version(),
	}
	for _, entry := range os.Environ() {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		if isSecretName(name) {
			value = "****"
		}
		env[name] = value
	}
	return HealthInfo{
		Version:      a.version,
		Build:        a.build,
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
		Env:          env,
		Capabilities: a.factory.ConnectionTypes(),
		TraceID:      traceID,
	}
}

func isSecretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
