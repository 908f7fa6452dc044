package chiptest

import (
	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
	"github.com/pkg/errors"
)

// bitsPerByte is start bit, 8 data bits and stop bit.
const bitsPerByte = 10

var (
	// ErrorNoDevice is returned when a test-side helper is given an unknown device
	ErrorNoDevice = errors.New("No such device")
	// ErrorNoRX is returned by UARTSend for a UART without RX pin
	ErrorNoRX = errors.New("UART has no RX pin")
)

type uart struct {
	rec  []byte
	busy bool
	sent []byte
}

func (h *Host) uart(id chipapi.UARTDevID) *uart {
	if int64(id) >= int64(len(h.uarts)) {
		return nil
	}
	return h.uarts[id]
}

func (h *Host) UARTInit(config *abi.UARTConfig) chipapi.UARTDevID {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.checkSetup("uartInit") {
		return invalidHandle
	}

	h.uarts = append(h.uarts, &uart{rec: h.encode("uartInit", config)})
	return chipapi.UARTDevID(len(h.uarts) - 1)
}

// UARTWrite accepts one write at a time. The data is transmitted at the
// configured baud rate and write_done fires when the last stop bit is out.
func (h *Host) UARTWrite(id chipapi.UARTDevID, buffer []byte) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	u := h.uart(id)
	if u == nil || u.busy {
		return false
	}

	var rec abi.UARTConfig
	if !decode(u.rec, &rec) {
		return false
	}

	data := append([]byte(nil), buffer...)
	u.busy = true

	var delay uint64
	if rec.BaudRate > 0 {
		delay = uint64(len(data)) * bitsPerByte * 1000000000 / uint64(rec.BaudRate)
	}

	h.clock.schedule(delay, func() {
		h.mutex.Lock()
		u.busy = false
		u.sent = append(u.sent, data...)
		ok := h.callable(rec.WriteDone, chipapi.CallbackUARTWriteDone)
		reg := h.reg
		h.mutex.Unlock()

		if ok {
			reg.UARTWriteDone(rec.UserData)
		}
	})

	return true
}

// UARTSend delivers data to the chip's rx_data callback, one call per byte.
func (h *Host) UARTSend(id chipapi.UARTDevID, data []byte) error {
	h.mutex.Lock()
	u := h.uart(id)
	if u == nil {
		h.mutex.Unlock()
		return errors.Wrapf(ErrorNoDevice, "uart %d", id)
	}

	var rec abi.UARTConfig
	ok := decode(u.rec, &rec)
	if ok && chipapi.PinID(rec.RX) == chipapi.NoPin {
		h.mutex.Unlock()
		return errors.Wrapf(ErrorNoRX, "uart %d", id)
	}
	ok = ok && h.callable(rec.RXData, chipapi.CallbackUARTRxData)
	reg := h.reg
	h.mutex.Unlock()

	if !ok {
		return nil
	}
	for _, b := range data {
		reg.UARTRxData(rec.UserData, b)
	}
	return nil
}

// UARTOutput returns and clears the bytes the chip has finished sending.
func (h *Host) UARTOutput(id chipapi.UARTDevID) []byte {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	u := h.uart(id)
	if u == nil {
		return nil
	}

	out := u.sent
	u.sent = nil
	return out
}

// UARTBusy reports whether a write is in progress.
func (h *Host) UARTBusy(id chipapi.UARTDevID) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	u := h.uart(id)
	return u != nil && u.busy
}
