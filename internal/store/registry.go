package store

import (
	"fmt"
	"sort"
	"sync"
)

// DriverConfig selects and parameterizes a persistence driver.
type DriverConfig struct {
	// Driver is the registered driver name: memory, sqlite.
	Driver string `json:"driver"`

	// Options carries driver-specific settings, decoded by the driver
	// itself. The sqlite driver reads "path" from here.
	Options map[string]any `json:"options"`
}

// DriverFactory constructs a Driver from its config.
type DriverFactory func(cfg *DriverConfig) (Driver, error)

var registry = struct {
	sync.RWMutex
	factories map[string]DriverFactory
}{factories: make(map[string]DriverFactory)}

// Register makes a driver available by name. Driver packages call this from
// init(); importing the package for side effects is enough to wire it in.
func Register(name string, factory DriverFactory) {
	registry.Lock()
	defer registry.Unlock()
	registry.factories[name] = factory
}

// New instantiates the driver named in cfg.
func New(cfg *DriverConfig) (Driver, error) {
	registry.RLock()
	factory, ok := registry.factories[cfg.Driver]
	registry.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
	return factory(cfg)
}

// AvailableDrivers lists the registered driver names, sorted.
func AvailableDrivers() []string {
	registry.RLock()
	defer registry.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
