package chipapi

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
	"github.com/BertoldVdb/go-chipapi/logrusconfig"
	"github.com/sirupsen/logrus"
)

// Chip is the chip-side view of a host. It builds the configuration records,
// keeps the registered closures reachable for the registry and otherwise
// passes every call and its result through unchanged.
//
// Init functions (PinInit, TimerInit, ...) may only be called while the chip
// is being set up. The host enforces this, not the Chip.
type Chip struct {
	host Host
	reg  *Registry

	mutex   sync.Mutex
	watches map[PinID]abi.Ptr
	spi     map[SPIDevID]abi.Ptr
	logger  *logrus.Entry
}

// New creates a Chip that talks to host and dispatches callbacks through reg.
// A nil reg gets a private registry.
func New(host Host, reg *Registry) *Chip {
	if reg == nil {
		reg = NewRegistry(nil)
	}

	return &Chip{
		host:    host,
		reg:     reg,
		watches: make(map[PinID]abi.Ptr),
		spi:     make(map[SPIDevID]abi.Ptr),
	}
}

// Host returns the host the chip was created with.
func (c *Chip) Host() Host {
	return c.host
}

// Registry returns the registry callbacks are dispatched through.
func (c *Chip) Registry() *Registry {
	return c.reg
}

func (c *Chip) trampoline(set bool, cb Callback) abi.Ptr {
	if !set {
		return 0
	}
	return c.host.Trampoline(cb)
}

func (c *Chip) PinInit(name string, mode PinMode) PinID {
	return c.host.PinInit(name, mode)
}

func (c *Chip) PinMode(pin PinID, mode PinMode) {
	c.host.PinMode(pin, mode)
}

func (c *Chip) PinRead(pin PinID) PinValue {
	return c.host.PinRead(pin)
}

func (c *Chip) PinWrite(pin PinID, value PinValue) {
	c.host.PinWrite(pin, value)
}

// PinWatch starts watching pin. Only one watch per pin is allowed; if the
// host refuses the watch, false is returned and nothing is retained. Like the
// init functions below, a nil config is treated as the zero configuration.
func (c *Chip) PinWatch(pin PinID, config *WatchConfig) bool {
	var cfg WatchConfig
	if config != nil {
		cfg = *config
	}
	userData := c.reg.get(&cfg)

	rec := &abi.WatchConfig{
		UserData:  userData,
		Edge:      uint32(cfg.Edge),
		PinChange: c.trampoline(cfg.PinChange != nil, CallbackPinChange),
	}

	if !c.host.PinWatch(pin, rec) {
		c.reg.put(userData)
		return false
	}

	c.mutex.Lock()
	old, found := c.watches[pin]
	c.watches[pin] = userData
	c.mutex.Unlock()

	if found {
		c.reg.put(old)
	}

	return true
}

func (c *Chip) PinWatchStop(pin PinID) {
	c.host.PinWatchStop(pin)

	c.mutex.Lock()
	userData, found := c.watches[pin]
	delete(c.watches, pin)
	c.mutex.Unlock()

	if found {
		c.reg.put(userData)
	}
}

func (c *Chip) PinADCRead(pin PinID) float32 {
	return c.host.PinADCRead(pin)
}

func (c *Chip) PinDACWrite(pin PinID, voltage float32) {
	c.host.PinDACWrite(pin, voltage)
}

// GetSimNanos returns the simulation time in nanoseconds.
func (c *Chip) GetSimNanos() float64 {
	return c.host.GetSimNanos()
}

// TimerInit returns InvalidHandle if the host could not create the timer.
func (c *Chip) TimerInit(config *TimerConfig) TimerID {
	var cfg TimerConfig
	if config != nil {
		cfg = *config
	}
	rec := &abi.TimerConfig{
		UserData: c.reg.get(&cfg),
		Callback: c.trampoline(cfg.Callback != nil, CallbackTimer),
	}
	timer := c.host.TimerInit(rec)
	if timer == InvalidHandle {
		c.reg.put(rec.UserData)
	}
	return timer
}

func (c *Chip) TimerStart(timer TimerID, micros uint32, repeat bool) {
	c.host.TimerStart(timer, micros, repeat)
}

func (c *Chip) TimerStartNanos(timer TimerID, nanos float64, repeat bool) {
	c.host.TimerStartNanos(timer, nanos, repeat)
}

// TimerStartDuration arms timer to fire after d of simulation time.
func (c *Chip) TimerStartDuration(timer TimerID, d time.Duration, repeat bool) {
	c.host.TimerStartNanos(timer, float64(d.Nanoseconds()), repeat)
}

func (c *Chip) TimerStop(timer TimerID) {
	c.host.TimerStop(timer)
}

func (c *Chip) UARTInit(config *UARTConfig) UARTDevID {
	var cfg UARTConfig
	if config != nil {
		cfg = *config
	}
	rec := &abi.UARTConfig{
		UserData:  c.reg.get(&cfg),
		RX:        int32(cfg.RX),
		TX:        int32(cfg.TX),
		BaudRate:  cfg.BaudRate,
		RXData:    c.trampoline(cfg.RXData != nil, CallbackUARTRxData),
		WriteDone: c.trampoline(cfg.WriteDone != nil, CallbackUARTWriteDone),
	}
	dev := c.host.UARTInit(rec)
	if dev == InvalidHandle {
		c.reg.put(rec.UserData)
	}
	return dev
}

// UARTWrite submits data for transmission. It returns false if the host did
// not accept it, usually because a previous write is still in progress.
func (c *Chip) UARTWrite(dev UARTDevID, data []byte) bool {
	return c.host.UARTWrite(dev, data)
}

func (c *Chip) I2CInit(config *I2CConfig) I2CDevID {
	var cfg I2CConfig
	if config != nil {
		cfg = *config
	}
	rec := &abi.I2CConfig{
		UserData:   c.reg.get(&cfg),
		Address:    cfg.Address,
		SCL:        int32(cfg.SCL),
		SDA:        int32(cfg.SDA),
		Connect:    c.trampoline(cfg.Connect != nil, CallbackI2CConnect),
		Read:       c.trampoline(cfg.Read != nil, CallbackI2CRead),
		Write:      c.trampoline(cfg.Write != nil, CallbackI2CWrite),
		Disconnect: c.trampoline(cfg.Disconnect != nil, CallbackI2CDisconnect),
	}
	dev := c.host.I2CInit(rec)
	if dev == InvalidHandle {
		c.reg.put(rec.UserData)
	}
	return dev
}

func (c *Chip) SPIInit(config *SPIConfig) SPIDevID {
	var cfg SPIConfig
	if config != nil {
		cfg = *config
	}
	userData := c.reg.get(&spiSlot{config: &cfg})
	rec := &abi.SPIConfig{
		UserData: userData,
		SCK:      int32(cfg.SCK),
		MOSI:     int32(cfg.MOSI),
		MISO:     int32(cfg.MISO),
		Mode:     cfg.Mode,
		Done:     c.trampoline(true, CallbackSPIDone),
	}

	dev := c.host.SPIInit(rec)
	if dev == InvalidHandle {
		c.reg.put(userData)
		return dev
	}

	c.mutex.Lock()
	c.spi[dev] = userData
	c.mutex.Unlock()

	return dev
}

// SPIStart starts a transfer: buffer is shifted out and overwritten with the
// received bytes. buffer belongs to the transfer until Done is called.
func (c *Chip) SPIStart(dev SPIDevID, buffer []byte) {
	c.mutex.Lock()
	userData, found := c.spi[dev]
	c.mutex.Unlock()

	if found {
		c.reg.setSPIBuffer(userData, buffer)
	}
	c.host.SPIStart(dev, buffer)
}

func (c *Chip) SPIStop(dev SPIDevID) {
	c.host.SPIStop(dev)
}

func (c *Chip) AttrInit(name string, defaultValue float64) AttrID {
	return c.host.AttrInit(name, defaultValue)
}

func (c *Chip) AttrRead(attr AttrID) uint32 {
	return c.host.AttrRead(attr)
}

func (c *Chip) AttrReadFloat(attr AttrID) float64 {
	return c.host.AttrReadFloat(attr)
}

// FramebufferInit creates the chip's framebuffer and returns its size in pixels.
func (c *Chip) FramebufferInit() (BufferID, uint32, uint32) {
	return c.host.FramebufferInit()
}

// BufferRead copies framebuffer bytes starting at offset into data. The
// return value is the number of bytes copied, which may be less than len(data).
func (c *Chip) BufferRead(buffer BufferID, offset uint32, data []byte) uint32 {
	return c.host.BufferRead(buffer, offset, data)
}

// BufferWrite copies data into the framebuffer at offset. The return value is
// the number of bytes copied, which may be less than len(data).
func (c *Chip) BufferWrite(buffer BufferID, offset uint32, data []byte) uint32 {
	return c.host.BufferWrite(buffer, offset, data)
}

func (c *Chip) DebugPrint(message string) {
	c.host.DebugPrint(message)
}

type debugWriter struct {
	c *Chip
}

func (w debugWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.c.host.DebugPrint(line)
	}
	return len(p), nil
}

// DebugWriter returns a writer that sends every line written to it to the
// host's debug log.
func (c *Chip) DebugWriter() io.Writer {
	return debugWriter{c}
}

// SetupLogger creates the chip logger. The level is read from the attribute
// named attrName (a logrus level number, Info if the attribute is not set),
// so it must be called during setup. An empty attrName skips the attribute.
func (c *Chip) SetupLogger(attrName string) *logrus.Entry {
	level := logrus.InfoLevel
	if attrName != "" {
		attr := c.host.AttrInit(attrName, float64(logrus.InfoLevel))
		level = logrus.Level(c.host.AttrRead(attr))
	}

	logger := logrusconfig.GetLogger(c.DebugWriter(), level)

	c.mutex.Lock()
	c.logger = logger
	c.mutex.Unlock()

	c.reg.SetLogger(logger)
	return logger
}

// Logger returns the chip logger, creating one at Info level if SetupLogger
// was not called.
func (c *Chip) Logger() *logrus.Entry {
	c.mutex.Lock()
	logger := c.logger
	c.mutex.Unlock()

	if logger != nil {
		return logger
	}
	return c.SetupLogger("")
}
