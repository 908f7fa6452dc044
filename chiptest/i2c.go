package chiptest

import (
	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
	"github.com/pkg/errors"
	"tinygo.org/x/drivers"
)

var (
	// ErrorNACK is returned by the I2C controller when a device does not acknowledge
	ErrorNACK = errors.New("I2C device did not acknowledge")
)

type i2cDevice struct {
	rec []byte
}

func (h *Host) I2CInit(config *abi.I2CConfig) chipapi.I2CDevID {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.checkSetup("i2cInit") {
		return invalidHandle
	}

	h.i2cs = append(h.i2cs, &i2cDevice{rec: h.encode("i2cInit", config)})
	return chipapi.I2CDevID(len(h.i2cs) - 1)
}

// I2CBus is an I2C controller whose only targets are the chip's I2C devices.
type I2CBus struct {
	h *Host
}

var _ drivers.I2C = (*I2CBus)(nil)

// I2CBus returns a controller for the chip's I2C devices. It can be handed to
// any driver written against tinygo.org/x/drivers.
func (h *Host) I2CBus() *I2CBus {
	return &I2CBus{h: h}
}

// transaction holds the decoded record of the addressed device. Callbacks
// whose pointer is NULL behave like a device that always ACKs and reads 0xFF.
type transaction struct {
	reg *chipapi.Registry
	rec abi.I2CConfig

	connect, read, write, disconnect bool
}

func (b *I2CBus) find(addr uint16) (*transaction, bool) {
	h := b.h
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, dev := range h.i2cs {
		t := &transaction{reg: h.reg}
		if !decode(dev.rec, &t.rec) || t.rec.Address != uint32(addr) {
			continue
		}

		t.connect = h.callable(t.rec.Connect, chipapi.CallbackI2CConnect)
		t.read = h.callable(t.rec.Read, chipapi.CallbackI2CRead)
		t.write = h.callable(t.rec.Write, chipapi.CallbackI2CWrite)
		t.disconnect = h.callable(t.rec.Disconnect, chipapi.CallbackI2CDisconnect)
		return t, true
	}
	return nil, false
}

func (t *transaction) start(addr uint16, read bool) bool {
	if !t.connect {
		return true
	}
	return t.reg.I2CConnect(t.rec.UserData, uint32(addr), read)
}

func (t *transaction) writeByte(data byte) bool {
	if !t.write {
		return true
	}
	return t.reg.I2CWrite(t.rec.UserData, data)
}

func (t *transaction) readByte() byte {
	if !t.read {
		return 0xFF
	}
	return t.reg.I2CRead(t.rec.UserData)
}

func (t *transaction) stop() {
	if t.disconnect {
		t.reg.I2CDisconnect(t.rec.UserData)
	}
}

// Tx writes w and then, after a repeated start, reads len(r) bytes from the
// device at addr. With both empty it only probes the address.
func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	t, ok := b.find(addr)
	if !ok {
		return errors.Wrapf(ErrorNACK, "address 0x%02x", addr)
	}

	err := t.run(addr, w, r)
	t.stop()
	return err
}

func (t *transaction) run(addr uint16, w, r []byte) error {
	if len(w) > 0 || len(r) == 0 {
		if !t.start(addr, false) {
			return errors.Wrapf(ErrorNACK, "address 0x%02x (write)", addr)
		}
		for i, data := range w {
			if !t.writeByte(data) {
				return errors.Wrapf(ErrorNACK, "address 0x%02x, byte %d", addr, i)
			}
		}
	}

	if len(r) > 0 {
		if !t.start(addr, true) {
			return errors.Wrapf(ErrorNACK, "address 0x%02x (read)", addr)
		}
		for i := range r {
			r[i] = t.readByte()
		}
	}

	return nil
}

// ReadRegister reads len(data) bytes starting at register reg.
func (b *I2CBus) ReadRegister(addr uint8, reg uint8, data []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, data)
}

// WriteRegister writes data starting at register reg.
func (b *I2CBus) WriteRegister(addr uint8, reg uint8, data []byte) error {
	return b.Tx(uint16(addr), append([]byte{reg}, data...), nil)
}
