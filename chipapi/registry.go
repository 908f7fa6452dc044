package chipapi

import (
	"fmt"
	"sync"

	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
	"github.com/sirupsen/logrus"
)

// Registry maps the user data the host passes back to callbacks onto the Go
// closures of the configuration that was registered. Each registered
// configuration owns one slot; the slot number plus one is its user data, so
// a NULL user data never matches a slot.
//
// Dispatch methods may be called from any goroutine. The registry lock is not
// held while a closure runs, so closures may call back into the host.
type Registry struct {
	sync.Mutex

	slotSlice []*slot
	freeSlots []int
	logger    *logrus.Entry
}

type slot struct {
	id   int
	used bool
	data interface{}
}

type spiSlot struct {
	config *SPIConfig
	buffer []byte
}

var defaultRegistry = NewRegistry(nil)

// NewRegistry creates an empty registry. Panics raised by closures are
// reported to logger; if it is nil the standard logrus logger is used.
func NewRegistry(logger *logrus.Entry) *Registry {
	r := &Registry{}
	r.SetLogger(logger)
	return r
}

// SetLogger changes the logger used to report panicking callbacks.
func (r *Registry) SetLogger(logger *logrus.Entry) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r.Lock()
	r.logger = logger
	r.Unlock()
}

func (r *Registry) get(data interface{}) abi.Ptr {
	assert(data != nil, "Cannot register nil configuration")

	r.Lock()
	defer r.Unlock()

	var s *slot
	if n := len(r.freeSlots); n > 0 {
		s = r.slotSlice[r.freeSlots[n-1]]
		r.freeSlots = r.freeSlots[:n-1]
	} else {
		s = &slot{id: len(r.slotSlice)}
		r.slotSlice = append(r.slotSlice, s)
	}

	assert(!s.used, "Slot was already given out!")
	s.used = true
	s.data = data

	return abi.Ptr(s.id + 1)
}

func (r *Registry) put(userData abi.Ptr) {
	r.Lock()
	defer r.Unlock()

	s := r.slotInternal(userData)
	assert(s != nil, "Slot was not yet given out!")

	s.used = false
	s.data = nil
	r.freeSlots = append(r.freeSlots, s.id)
}

func (r *Registry) slotInternal(userData abi.Ptr) *slot {
	if userData == 0 || userData > abi.Ptr(len(r.slotSlice)) {
		return nil
	}
	s := r.slotSlice[userData-1]
	if !s.used {
		return nil
	}
	return s
}

func (r *Registry) lookup(userData abi.Ptr) (interface{}, *logrus.Entry) {
	r.Lock()
	defer r.Unlock()

	s := r.slotInternal(userData)
	if s == nil {
		return nil, r.logger
	}
	return s.data, r.logger
}

func (r *Registry) setSPIBuffer(userData abi.Ptr, buffer []byte) {
	r.Lock()
	defer r.Unlock()

	if s := r.slotInternal(userData); s != nil {
		if spi, ok := s.data.(*spiSlot); ok {
			spi.buffer = buffer
		}
	}
}

// Active returns the number of slots that are in use.
func (r *Registry) Active() int {
	r.Lock()
	defer r.Unlock()

	return len(r.slotSlice) - len(r.freeSlots)
}

func guard(logger *logrus.Entry, cb Callback) {
	if v := recover(); v != nil {
		logger.WithField("callback", cb.String()).Errorf("Chip callback panicked: %v", v)
	}
}

// PinChange dispatches a pin_change callback.
func (r *Registry) PinChange(userData abi.Ptr, pin PinID, value PinValue) {
	data, logger := r.lookup(userData)
	c, ok := data.(*WatchConfig)
	if !ok || c.PinChange == nil {
		return
	}

	defer guard(logger, CallbackPinChange)
	c.PinChange(pin, value)
}

// Timer dispatches a timer callback.
func (r *Registry) Timer(userData abi.Ptr) {
	data, logger := r.lookup(userData)
	c, ok := data.(*TimerConfig)
	if !ok || c.Callback == nil {
		return
	}

	defer guard(logger, CallbackTimer)
	c.Callback()
}

// UARTRxData dispatches a rx_data callback.
func (r *Registry) UARTRxData(userData abi.Ptr, b byte) {
	data, logger := r.lookup(userData)
	c, ok := data.(*UARTConfig)
	if !ok || c.RXData == nil {
		return
	}

	defer guard(logger, CallbackUARTRxData)
	c.RXData(b)
}

// UARTWriteDone dispatches a write_done callback.
func (r *Registry) UARTWriteDone(userData abi.Ptr) {
	data, logger := r.lookup(userData)
	c, ok := data.(*UARTConfig)
	if !ok || c.WriteDone == nil {
		return
	}

	defer guard(logger, CallbackUARTWriteDone)
	c.WriteDone()
}

// I2CConnect dispatches an I2C connect callback. Unknown devices NACK.
func (r *Registry) I2CConnect(userData abi.Ptr, address uint32, read bool) (ack bool) {
	data, logger := r.lookup(userData)
	c, ok := data.(*I2CConfig)
	if !ok || c.Connect == nil {
		return false
	}

	defer guard(logger, CallbackI2CConnect)
	return c.Connect(address, read)
}

// I2CRead dispatches an I2C read callback.
func (r *Registry) I2CRead(userData abi.Ptr) (value uint8) {
	data, logger := r.lookup(userData)
	c, ok := data.(*I2CConfig)
	if !ok || c.Read == nil {
		return 0
	}

	defer guard(logger, CallbackI2CRead)
	return c.Read()
}

// I2CWrite dispatches an I2C write callback. Unknown devices NACK.
func (r *Registry) I2CWrite(userData abi.Ptr, value uint8) (ack bool) {
	data, logger := r.lookup(userData)
	c, ok := data.(*I2CConfig)
	if !ok || c.Write == nil {
		return false
	}

	defer guard(logger, CallbackI2CWrite)
	return c.Write(value)
}

// I2CDisconnect dispatches an I2C disconnect callback.
func (r *Registry) I2CDisconnect(userData abi.Ptr) {
	data, logger := r.lookup(userData)
	c, ok := data.(*I2CConfig)
	if !ok || c.Disconnect == nil {
		return
	}

	defer guard(logger, CallbackI2CDisconnect)
	c.Disconnect()
}

// SPIDone dispatches a SPI done callback. received is the host's view of the
// transfer buffer; it is copied into the buffer given to SPIStart when the
// two differ.
func (r *Registry) SPIDone(userData abi.Ptr, received []byte) {
	data, logger := r.lookup(userData)
	s, ok := data.(*spiSlot)
	if !ok {
		return
	}

	r.Lock()
	buffer := s.buffer
	r.Unlock()

	n := copy(buffer, received)
	if s.config.Done == nil {
		return
	}

	defer guard(logger, CallbackSPIDone)
	s.config.Done(buffer[:n])
}

var callbackNames = map[Callback]string{
	CallbackPinChange:     "pin_change",
	CallbackTimer:         "timer",
	CallbackUARTRxData:    "rx_data",
	CallbackUARTWriteDone: "write_done",
	CallbackI2CConnect:    "i2c_connect",
	CallbackI2CRead:       "i2c_read",
	CallbackI2CWrite:      "i2c_write",
	CallbackI2CDisconnect: "i2c_disconnect",
	CallbackSPIDone:       "spi_done",
}

func (cb Callback) String() string {
	if name, ok := callbackNames[cb]; ok {
		return name
	}
	return fmt.Sprintf("Callback(%d)", int(cb))
}

func assert(condition bool, reason string) {
	if !condition {
		panic(reason)
	}
}
