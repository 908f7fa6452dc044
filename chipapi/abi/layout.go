// Package abi describes the configuration records exchanged with the simulator
// host and converts them to and from the host's raw memory layout.
//
// The host reads these records by address, not by name, so field order, width
// and padding must match the C declarations exactly. Layouts follow the usual
// C rules: every field is aligned to its own size and the record is padded to
// a multiple of its largest field.
package abi

import (
	"encoding/binary"
	"errors"
	"math"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Ptr is an address as seen by the host: a data pointer or a function pointer.
type Ptr uint64

// ByteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Layout selects the pointer width and byte order of the host.
type Layout struct {
	PtrSize int
	Order   ByteOrder
}

var (
	// ErrorShortRecord is returned when decoding from a buffer that is too small
	ErrorShortRecord = errors.New("Buffer too short for record")
	// ErrorPointerRange is returned when a pointer does not fit the layout's pointer width
	ErrorPointerRange = errors.New("Pointer does not fit in layout")
)

// Wasm32 is the layout of chips compiled to WebAssembly.
var Wasm32 = Layout{PtrSize: 4, Order: binary.LittleEndian}

// Native returns the layout of the machine the package was built for.
func Native() Layout {
	l := Layout{
		PtrSize: int(unsafe.Sizeof(uintptr(0))),
		Order:   binary.LittleEndian,
	}
	if cpu.IsBigEndian {
		l.Order = binary.BigEndian
	}
	return l
}

// Record is implemented by all configuration records.
type Record interface {
	encode(w *writer)
	decode(r *reader)
}

// Marshal serializes rec in layout l.
func (l Layout) Marshal(rec Record) ([]byte, error) {
	w := &writer{l: l, maxAlign: 1}
	rec.encode(w)
	w.align(w.maxAlign)
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// Unmarshal fills rec from buf, which must hold a record in layout l.
func (l Layout) Unmarshal(buf []byte, rec Record) error {
	r := &reader{l: l, buf: buf}
	rec.decode(r)
	return r.err
}

// Sizeof returns the size in bytes of rec in layout l.
func (l Layout) Sizeof(rec Record) int {
	w := &writer{l: l, maxAlign: 1, sizeOnly: true}
	rec.encode(w)
	w.align(w.maxAlign)
	return len(w.buf)
}

type writer struct {
	l        Layout
	buf      []byte
	maxAlign int
	sizeOnly bool
	err      error
}

func (w *writer) align(n int) {
	if n > w.maxAlign {
		w.maxAlign = n
	}
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) u32(v uint32) {
	w.align(4)
	w.buf = w.l.Order.AppendUint32(w.buf, v)
}

func (w *writer) i32(v int32) {
	w.u32(uint32(v))
}

func (w *writer) ptr(p Ptr) {
	w.align(w.l.PtrSize)
	if w.l.PtrSize == 4 {
		if p > math.MaxUint32 && !w.sizeOnly {
			w.err = ErrorPointerRange
		}
		w.buf = w.l.Order.AppendUint32(w.buf, uint32(p))
		return
	}
	w.buf = w.l.Order.AppendUint64(w.buf, uint64(p))
}

type reader struct {
	l   Layout
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	for r.off%n != 0 {
		r.off++
	}
	if r.err != nil || r.off+n > len(r.buf) {
		r.err = ErrorShortRecord
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return r.l.Order.Uint32(b)
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) ptr() Ptr {
	b := r.take(r.l.PtrSize)
	if b == nil {
		return 0
	}
	if r.l.PtrSize == 4 {
		return Ptr(r.l.Order.Uint32(b))
	}
	return Ptr(r.l.Order.Uint64(b))
}
