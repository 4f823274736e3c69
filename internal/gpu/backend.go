package gpu

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/metrics"
	"go.uber.org/zap"
)

const BackendCPU = "cpu"

// DeviceInfo contains information about the device behind a server
type DeviceInfo struct {
	Name              string `json:"name"`
	Backend           string `json:"backend"`
	TotalMemory       uint64 `json:"totalMemory"` // in bytes, 0 when unlimited
	ComputeCapability int    `json:"computeCapability"`
	DriverVersion     string `json:"driverVersion"`
}

// Device is implemented by servers that can describe their device.
type Device interface {
	DeviceInfo() DeviceInfo
}

// BackendFactory creates a server for one backend kind.
type BackendFactory func(cfg config.ServerConfig, logger *zap.Logger, m *metrics.Metrics) (compute.Server, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]BackendFactory{
		BackendCPU: func(cfg config.ServerConfig, logger *zap.Logger, m *metrics.Metrics) (compute.Server, error) {
			return NewCPUServer(cfg, logger, m), nil
		},
	}
)

// RegisterBackend makes a backend available to NewServer. Registering a
// name twice replaces the previous factory.
func RegisterBackend(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewServer creates the server selected by cfg.Backend.
func NewServer(cfg config.ServerConfig, logger *zap.Logger, m *metrics.Metrics) (compute.Server, error) {
	backendsMu.RLock()
	factory, ok := backends[cfg.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, cfg.Backend, Backends())
	}

	server, err := factory(cfg, logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", cfg.Backend, err)
	}
	if logger != nil {
		logger.Info("Compute backend initialized", zap.String("backend", cfg.Backend))
	}
	return server, nil
}
