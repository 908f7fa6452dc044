package chipapi

import (
	"errors"
	"image/color"
	"io"
	"math"
)

// BytesPerPixel is the size of one framebuffer pixel (R, G, B, A).
const BytesPerPixel = 4

var (
	// ErrorShortTransfer is returned when the host copied fewer bytes than requested
	ErrorShortTransfer = errors.New("Framebuffer transfer was cut short")
	// ErrorOffsetRange is returned for offsets or coordinates outside the framebuffer
	ErrorOffsetRange = errors.New("Offset is outside the framebuffer")
)

// Framebuffer gives io.ReaderAt and io.WriterAt access to the chip's
// framebuffer. Partial transfers are always reported as errors.
type Framebuffer struct {
	chip *Chip

	ID     BufferID
	Width  uint32
	Height uint32
}

// NewFramebuffer calls FramebufferInit, so it may only be used during setup.
func (c *Chip) NewFramebuffer() *Framebuffer {
	id, width, height := c.FramebufferInit()
	return &Framebuffer{
		chip:   c,
		ID:     id,
		Width:  width,
		Height: height,
	}
}

// Size returns the size of the framebuffer in bytes.
func (f *Framebuffer) Size() int64 {
	return int64(f.Width) * int64(f.Height) * BytesPerPixel
}

func checkOffset(off int64) error {
	if off < 0 || off > math.MaxUint32 {
		return ErrorOffsetRange
	}
	return nil
}

func (f *Framebuffer) ReadAt(p []byte, off int64) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}

	n := int(f.chip.BufferRead(f.ID, uint32(off), p))
	if n < len(p) {
		if off+int64(n) >= f.Size() {
			return n, io.EOF
		}
		return n, ErrorShortTransfer
	}
	return n, nil
}

func (f *Framebuffer) WriteAt(p []byte, off int64) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}

	n := int(f.chip.BufferWrite(f.ID, uint32(off), p))
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (f *Framebuffer) pixelOffset(x, y uint32) (int64, error) {
	if x >= f.Width || y >= f.Height {
		return 0, ErrorOffsetRange
	}
	return (int64(y)*int64(f.Width) + int64(x)) * BytesPerPixel, nil
}

// SetPixel writes a single pixel.
func (f *Framebuffer) SetPixel(x, y uint32, c color.RGBA) error {
	off, err := f.pixelOffset(x, y)
	if err != nil {
		return err
	}

	_, err = f.WriteAt([]byte{c.R, c.G, c.B, c.A}, off)
	return err
}

// Pixel reads a single pixel.
func (f *Framebuffer) Pixel(x, y uint32) (color.RGBA, error) {
	off, err := f.pixelOffset(x, y)
	if err != nil {
		return color.RGBA{}, err
	}

	var buf [BytesPerPixel]byte
	if _, err := f.ReadAt(buf[:], off); err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: buf[0], G: buf[1], B: buf[2], A: buf[3]}, nil
}

// Fill sets every pixel to c, one row per host call.
func (f *Framebuffer) Fill(c color.RGBA) error {
	row := make([]byte, int(f.Width)*BytesPerPixel)
	for i := 0; i < len(row); i += BytesPerPixel {
		row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
	}

	for y := uint32(0); y < f.Height; y++ {
		if _, err := f.WriteAt(row, int64(y)*int64(len(row))); err != nil {
			return err
		}
	}
	return nil
}
