package registry

import (
	"fmt"
	"strings"
)

const (
	EnvLocal  = "local"
	EnvDocker = "docker"

	DefaultOllamaPort = 11434
)

// EndpointResolver composes the base URL of a local model.
type EndpointResolver struct {
	// Environment is "local" or "docker".
	Environment string
	// Host, when set, overrides every composed endpoint.
	Host string
	// LocalHost is used outside docker. Defaults to localhost.
	LocalHost string
	// DefaultPort applies when no port is given.
	DefaultPort int
}

// Resolve returns endpoint when given, else the composed URL. Inside docker
// every model runs in its own service named after the model, with ':'
// replaced by '-'.
func (r EndpointResolver) Resolve(providerName, endpoint string, port int) string {
	if e := strings.TrimSpace(endpoint); e != "" {
		return strings.TrimRight(e, "/")
	}
	if h := strings.TrimSpace(r.Host); h != "" {
		return strings.TrimRight(h, "/")
	}
	if port <= 0 {
		port = r.DefaultPort
	}
	if port <= 0 {
		port = DefaultOllamaPort
	}
	if r.Environment == EnvDocker {
		return fmt.Sprintf("http://%s:%d", strings.ReplaceAll(providerName, ":", "-"), port)
	}
	host := r.LocalHost
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
