package volume

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Driver opens a backend from a volume's decoded JSON configuration.
type Driver func(ctx context.Context, config map[string]any) (Backend, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a backend driver available under the given type key.
// Volume rows reference drivers by this key in their backend column.
func Register(name string, driver Driver) error {
	driversMu.Lock()
	defer driversMu.Unlock()

	if name == "" {
		return fmt.Errorf("volume driver name cannot be empty")
	}
	if driver == nil {
		return fmt.Errorf("volume driver %q is nil", name)
	}
	if _, exists := drivers[name]; exists {
		return fmt.Errorf("volume driver %q already registered", name)
	}

	drivers[name] = driver
	return nil
}

// MustRegister is Register for init-time registration; it panics on error.
func MustRegister(name string, driver Driver) {
	if err := Register(name, driver); err != nil {
		panic(err)
	}
}

// Open creates a backend of the given type from its configuration.
func Open(ctx context.Context, backend string, config map[string]any) (Backend, error) {
	driversMu.RLock()
	driver, ok := drivers[backend]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown volume backend %q (registered: %v)", backend, Backends())
	}
	return driver(ctx, config)
}

// Backends returns the registered backend type keys, sorted.
func Backends() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
