package chipapi

import (
	"errors"
	"sync"
)

// APIVersion is the chip API version implemented by this package.
const APIVersion = 1

// VersionSymbol is the exported function the host calls to check the API
// version before it loads the chip.
const VersionSymbol = "__wokwi_api_version_1"

// InitSymbol is the exported function the host calls to set up the chip.
const InitSymbol = "chip_init"

var (
	// ErrorNoSetup is returned by Start when no setup function was registered
	ErrorNoSetup = errors.New("No chip setup function registered")
)

var exports = map[string]func() uint32{
	VersionSymbol: apiVersion,
}

func apiVersion() uint32 {
	return APIVersion
}

// LookupExport resolves a version-check symbol the way the host does.
func LookupExport(name string) (func() uint32, bool) {
	fn, ok := exports[name]
	return fn, ok
}

var setup struct {
	sync.Mutex
	fn func(c *Chip)
}

// Register sets the function that initializes the chip. It is typically
// called from an init function of the chip's main package; the host backend
// runs it when the simulator calls chip_init.
func Register(fn func(c *Chip)) {
	setup.Lock()
	setup.fn = fn
	setup.Unlock()
}

// Start creates a Chip bound to host and runs the registered setup function
// on it. Callbacks are dispatched through the package registry.
func Start(host Host) (*Chip, error) {
	setup.Lock()
	fn := setup.fn
	setup.Unlock()

	if fn == nil {
		return nil, ErrorNoSetup
	}

	c := New(host, defaultRegistry)
	fn(c)
	return c, nil
}
