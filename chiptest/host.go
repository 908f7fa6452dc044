// Package chiptest implements chipapi.Host in memory so chips can be run and
// tested without the simulator.
//
// Every configuration record is stored the way the simulator sees it: as raw
// bytes in the wasm32 layout. Callbacks are fired by decoding the stored
// record and dispatching its user data through the chip's registry. Time only
// moves when the test calls Advance.
package chiptest

import (
	"fmt"
	"io"
	"sync"

	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
	"github.com/BertoldVdb/go-chipapi/logrusconfig"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SupportedVersion is the chip API version the mock host loads.
const SupportedVersion = 1

const invalidHandle = chipapi.InvalidHandle

var (
	// ErrorVersion is returned by Load when the chip does not export a supported API version
	ErrorVersion = errors.New("Chip does not export a supported API version")
	// ErrorLoaded is returned when Load is called a second time
	ErrorLoaded = errors.New("A chip was already loaded into this host")
)

// Options configures a Host.
type Options struct {
	// Attributes overrides attribute defaults by name
	Attributes map[string]float64

	FramebufferWidth  uint32
	FramebufferHeight uint32

	// Logger receives the host's own log; nil discards it
	Logger *logrus.Entry
}

// Host is an in-memory chip host. It is safe for concurrent use, but callbacks
// are only fired from Advance and the test-side helpers.
type Host struct {
	mutex sync.Mutex

	reg    *chipapi.Registry
	loaded bool
	setup  bool

	logger     *logrus.Entry
	violations []string
	debugLog   []string

	pins    []*pin
	clock   clock
	timers  []*timer
	uarts   []*uart
	i2cs    []*i2cDevice
	spis    []*spiDevice
	attrs   []*attr
	attrSet map[string]float64

	fbWidth  uint32
	fbHeight uint32
	fb       []byte
	fbInit   bool
}

var _ chipapi.Host = (*Host)(nil)

// New creates an empty host.
func New(opts *Options) *Host {
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrusconfig.GetLogger(io.Discard, logrus.InfoLevel)
	}
	logger = logrusconfig.WithPrefix(logger.WithField("run", uuid.New().String()), "host")

	h := &Host{
		logger:   logger,
		attrSet:  make(map[string]float64),
		fbWidth:  opts.FramebufferWidth,
		fbHeight: opts.FramebufferHeight,
	}
	for k, v := range opts.Attributes {
		h.attrSet[k] = v
	}
	h.clock.init()

	return h
}

// Load checks the version export and runs setup against a new Chip bound to
// this host. Init functions are only accepted while setup runs.
func (h *Host) Load(setup func(c *chipapi.Chip)) (*chipapi.Chip, error) {
	if err := h.beginLoad(); err != nil {
		return nil, err
	}

	c := chipapi.New(h, nil)
	h.mutex.Lock()
	h.reg = c.Registry()
	h.mutex.Unlock()

	setup(c)
	h.endLoad()

	return c, nil
}

// LoadRegistered loads the chip registered with chipapi.Register, the same
// way the simulator does through chip_init.
func (h *Host) LoadRegistered() (*chipapi.Chip, error) {
	if err := h.beginLoad(); err != nil {
		return nil, err
	}

	c, err := chipapi.Start(h)
	if c != nil {
		h.mutex.Lock()
		h.reg = c.Registry()
		h.mutex.Unlock()
	}
	h.endLoad()

	if err != nil {
		return nil, errors.Wrap(err, "chip_init failed")
	}
	return c, nil
}

func (h *Host) beginLoad() error {
	version, ok := chipapi.LookupExport(chipapi.VersionSymbol)
	if !ok || version() != SupportedVersion {
		return ErrorVersion
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.loaded {
		return ErrorLoaded
	}
	h.loaded = true
	h.setup = true

	h.logger.Debug("Running chip setup")
	return nil
}

func (h *Host) endLoad() {
	h.mutex.Lock()
	h.setup = false
	h.mutex.Unlock()

	h.logger.Debug("Chip setup done")
}

// violation records a misuse of the API by the chip. Must be called with the
// mutex held.
func (h *Host) violation(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	h.violations = append(h.violations, msg)
	h.logger.Warn(msg)
}

// checkSetup records a violation if an init function is called after setup.
// Must be called with the mutex held.
func (h *Host) checkSetup(fn string) bool {
	if !h.setup {
		h.violation("%s called outside chip setup", fn)
		return false
	}
	return true
}

// Violations returns the API misuses seen so far.
func (h *Host) Violations() []string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return append([]string(nil), h.violations...)
}

// Trampoline returns a small per-kind constant. Records are only dispatched
// if they carry the constant of the matching kind.
func (h *Host) Trampoline(cb chipapi.Callback) abi.Ptr {
	return abi.Ptr(cb)
}

// encode stores rec in the simulator's layout. Must be called with the mutex held.
func (h *Host) encode(fn string, rec abi.Record) []byte {
	buf, err := abi.Wasm32.Marshal(rec)
	if err != nil {
		h.violation("%s: %v", fn, err)
		return nil
	}
	return buf
}

// callable reports whether a callback pointer read from a record may be
// invoked as kind cb. Must be called with the mutex held.
func (h *Host) callable(ptr abi.Ptr, cb chipapi.Callback) bool {
	if ptr == 0 {
		return false
	}
	if ptr != h.Trampoline(cb) {
		h.violation("Record holds unknown %s callback %#x", cb, uint64(ptr))
		return false
	}
	if h.reg == nil {
		h.logger.WithField("callback", cb.String()).Warn("Dropping callback fired before the chip was loaded")
		return false
	}
	return true
}

func decode(buf []byte, rec abi.Record) bool {
	return buf != nil && abi.Wasm32.Unmarshal(buf, rec) == nil
}

func (h *Host) DebugPrint(message string) {
	h.mutex.Lock()
	h.debugLog = append(h.debugLog, message)
	h.mutex.Unlock()

	h.logger.WithField("prefix", "chip").Info(message)
}

// DebugLog returns the messages printed by the chip.
func (h *Host) DebugLog() []string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return append([]string(nil), h.debugLog...)
}
