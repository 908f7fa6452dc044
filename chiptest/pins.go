package chiptest

import (
	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
)

type pin struct {
	name string
	mode chipapi.PinMode

	// driven is the level the chip writes, external the level applied by
	// the test. external is only meaningful if connected is set.
	driven    chipapi.PinValue
	external  chipapi.PinValue
	connected bool

	voltage float32
	dac     float32

	watch []byte
}

// value returns the level seen on the pin. Must be called with the mutex held.
func (p *pin) value() chipapi.PinValue {
	if p.mode.IsOutput() {
		return p.driven
	}
	if p.connected {
		return p.external
	}
	if p.mode == chipapi.InputPullup {
		return chipapi.High
	}
	return chipapi.Low
}

func (p *pin) setMode(mode chipapi.PinMode) {
	p.mode = mode
	switch mode {
	case chipapi.OutputLow:
		p.driven = chipapi.Low
	case chipapi.OutputHigh:
		p.driven = chipapi.High
	}
}

// pin returns the pin with the given id. Must be called with the mutex held.
func (h *Host) pin(id chipapi.PinID) *pin {
	if id < 0 || int(id) >= len(h.pins) {
		return nil
	}
	return h.pins[id]
}

func (h *Host) PinInit(name string, mode chipapi.PinMode) chipapi.PinID {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.checkSetup("pinInit") {
		return chipapi.NoPin
	}

	p := &pin{name: name}
	p.setMode(mode)
	h.pins = append(h.pins, p)

	h.logger.WithField("pin", name).WithField("mode", mode.String()).Debug("Pin created")
	return chipapi.PinID(len(h.pins) - 1)
}

func (h *Host) PinMode(id chipapi.PinID, mode chipapi.PinMode) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		p.setMode(mode)
	}
}

func (h *Host) PinRead(id chipapi.PinID) chipapi.PinValue {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		return p.value()
	}
	return chipapi.Low
}

func (h *Host) PinWrite(id chipapi.PinID, value chipapi.PinValue) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		p.driven = value
	}
}

func (h *Host) PinWatch(id chipapi.PinID, config *abi.WatchConfig) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	p := h.pin(id)
	if p == nil || p.watch != nil {
		return false
	}

	rec := h.encode("pinWatch", config)
	if rec == nil {
		return false
	}
	p.watch = rec
	return true
}

func (h *Host) PinWatchStop(id chipapi.PinID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		p.watch = nil
	}
}

func (h *Host) PinADCRead(id chipapi.PinID) float32 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		return p.voltage
	}
	return 0
}

func (h *Host) PinDACWrite(id chipapi.PinID, voltage float32) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		p.dac = voltage
	}
}

// SetPin drives pin from outside the chip. A watch on the pin fires if the
// level seen by the chip changes in a direction it selected.
func (h *Host) SetPin(id chipapi.PinID, value chipapi.PinValue) {
	h.mutex.Lock()
	p := h.pin(id)
	if p == nil {
		h.mutex.Unlock()
		return
	}

	old := p.value()
	p.external = value
	p.connected = true
	now := p.value()

	var rec abi.WatchConfig
	fire := decode(p.watch, &rec) && chipapi.Edge(rec.Edge).Matches(old, now) &&
		h.callable(rec.PinChange, chipapi.CallbackPinChange)
	reg := h.reg
	h.mutex.Unlock()

	if fire {
		reg.PinChange(rec.UserData, id, now)
	}
}

// ReleasePin disconnects the external driver, leaving the pin floating.
func (h *Host) ReleasePin(id chipapi.PinID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		p.connected = false
	}
}

// Pin returns the level on pin as seen from outside the chip.
func (h *Host) Pin(id chipapi.PinID) chipapi.PinValue {
	return h.PinRead(id)
}

// Mode returns the current mode of pin.
func (h *Host) Mode(id chipapi.PinID) chipapi.PinMode {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		return p.mode
	}
	return 0
}

// LookupPin returns the pin created with name.
func (h *Host) LookupPin(name string) (chipapi.PinID, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for i, p := range h.pins {
		if p.name == name {
			return chipapi.PinID(i), true
		}
	}
	return chipapi.NoPin, false
}

// Watched reports whether the chip is watching pin.
func (h *Host) Watched(id chipapi.PinID) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	p := h.pin(id)
	return p != nil && p.watch != nil
}

// SetVoltage sets the voltage returned by PinADCRead.
func (h *Host) SetVoltage(id chipapi.PinID, voltage float32) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		p.voltage = voltage
	}
}

// DAC returns the voltage last written with PinDACWrite.
func (h *Host) DAC(id chipapi.PinID) float32 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p := h.pin(id); p != nil {
		return p.dac
	}
	return 0
}
