package chiptest

import (
	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
	"github.com/pkg/errors"
)

var (
	// ErrorSPIIdle is returned by SPITransfer when the chip has no transfer running
	ErrorSPIIdle = errors.New("SPI device has no transfer in progress")
)

type spiDevice struct {
	rec []byte

	// mem is the host's copy of the transfer buffer
	mem    []byte
	pos    int
	active bool
}

func (h *Host) spi(id chipapi.SPIDevID) *spiDevice {
	if int64(id) >= int64(len(h.spis)) {
		return nil
	}
	return h.spis[id]
}

func (h *Host) SPIInit(config *abi.SPIConfig) chipapi.SPIDevID {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.checkSetup("spiInit") {
		return invalidHandle
	}

	h.spis = append(h.spis, &spiDevice{rec: h.encode("spiInit", config)})
	return chipapi.SPIDevID(len(h.spis) - 1)
}

// SPIStart copies buffer. An empty transfer completes immediately.
func (h *Host) SPIStart(id chipapi.SPIDevID, buffer []byte) {
	h.mutex.Lock()
	s := h.spi(id)
	if s == nil {
		h.mutex.Unlock()
		return
	}

	s.mem = append([]byte(nil), buffer...)
	s.pos = 0
	s.active = len(buffer) > 0
	h.mutex.Unlock()

	if len(buffer) == 0 {
		h.spiDone(s)
	}
}

// spiDone ends the transfer of s and reports the bytes exchanged so far.
func (h *Host) spiDone(s *spiDevice) {
	h.mutex.Lock()
	s.active = false
	received := append([]byte(nil), s.mem[:s.pos]...)

	var rec abi.SPIConfig
	ok := decode(s.rec, &rec) && h.callable(rec.Done, chipapi.CallbackSPIDone)
	reg := h.reg
	h.mutex.Unlock()

	if ok {
		reg.SPIDone(rec.UserData, received)
	}
}

// SPIStop ends a running transfer early; done reports the partial count.
func (h *Host) SPIStop(id chipapi.SPIDevID) {
	h.mutex.Lock()
	s := h.spi(id)
	active := s != nil && s.active
	h.mutex.Unlock()

	if active {
		h.spiDone(s)
	}
}

// SPITransfer clocks mosi into the chip and returns the bytes it shifted out.
// Each filled buffer fires done; if the chip starts a new transfer from done
// the exchange continues, otherwise ErrorSPIIdle is returned with the bytes
// exchanged until then.
func (h *Host) SPITransfer(id chipapi.SPIDevID, mosi []byte) ([]byte, error) {
	h.mutex.Lock()
	s := h.spi(id)
	h.mutex.Unlock()

	if s == nil {
		return nil, errors.Wrapf(ErrorNoDevice, "spi %d", id)
	}

	miso := make([]byte, 0, len(mosi))
	for i, data := range mosi {
		h.mutex.Lock()
		if !s.active {
			h.mutex.Unlock()
			return miso, errors.Wrapf(ErrorSPIIdle, "spi %d after %d bytes", id, i)
		}

		miso = append(miso, s.mem[s.pos])
		s.mem[s.pos] = data
		s.pos++
		full := s.pos == len(s.mem)
		h.mutex.Unlock()

		if full {
			h.spiDone(s)
		}
	}

	return miso, nil
}

// SPIActive reports whether the chip has a transfer in progress.
func (h *Host) SPIActive(id chipapi.SPIDevID) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	s := h.spi(id)
	return s != nil && s.active
}
