package chiptest

import (
	"github.com/BertoldVdb/go-chipapi/chipapi"
)

// framebufferID is the handle of the only framebuffer.
const framebufferID chipapi.BufferID = 1

// FramebufferInit allocates the framebuffer with the size given in Options.
// Calling it again returns the same buffer.
func (h *Host) FramebufferInit() (chipapi.BufferID, uint32, uint32) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.checkSetup("framebufferInit") {
		return invalidHandle, 0, 0
	}

	if !h.fbInit {
		h.fb = make([]byte, int(h.fbWidth)*int(h.fbHeight)*chipapi.BytesPerPixel)
		h.fbInit = true
	}
	return framebufferID, h.fbWidth, h.fbHeight
}

// span returns the part of the framebuffer from offset that overlaps a
// transfer of n bytes. Must be called with the mutex held.
func (h *Host) span(buffer chipapi.BufferID, offset uint32, n int) []byte {
	if buffer != framebufferID || !h.fbInit || uint64(offset) >= uint64(len(h.fb)) {
		return nil
	}

	mem := h.fb[offset:]
	if len(mem) > n {
		mem = mem[:n]
	}
	return mem
}

func (h *Host) BufferRead(buffer chipapi.BufferID, offset uint32, data []byte) uint32 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return uint32(copy(data, h.span(buffer, offset, len(data))))
}

func (h *Host) BufferWrite(buffer chipapi.BufferID, offset uint32, data []byte) uint32 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return uint32(copy(h.span(buffer, offset, len(data)), data))
}

// FramebufferBytes returns a copy of the framebuffer contents.
func (h *Host) FramebufferBytes() []byte {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return append([]byte(nil), h.fb...)
}
