package abi

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var lp64 = Layout{PtrSize: 8, Order: binary.LittleEndian}

func check(t *testing.T, condition bool, reason ...interface{}) {
	if !condition {
		t.Error(reason...)
		t.FailNow()
	}
}

func sampleRecords() []Record {
	return []Record{
		&WatchConfig{UserData: 0x11, Edge: 3, PinChange: 0x22},
		&TimerConfig{UserData: 0x33, Callback: 0x44},
		&UARTConfig{UserData: 0x55, RX: 4, TX: -1, BaudRate: 115200, RXData: 0x66, WriteDone: 0x77},
		&I2CConfig{UserData: 0x88, Address: 0x70, SCL: 1, SDA: 2, Connect: 0x99, Read: 0xaa, Write: 0xbb, Disconnect: 0xcc},
		&SPIConfig{UserData: 0xdd, SCK: 5, MOSI: 6, MISO: -1, Mode: 3, Done: 0xee},
	}
}

func emptyLike(rec Record) Record {
	switch rec.(type) {
	case *WatchConfig:
		return &WatchConfig{}
	case *TimerConfig:
		return &TimerConfig{}
	case *UARTConfig:
		return &UARTConfig{}
	case *I2CConfig:
		return &I2CConfig{}
	case *SPIConfig:
		return &SPIConfig{}
	}
	panic("unknown record")
}

func TestRoundTrip(t *testing.T) {
	for _, l := range []Layout{Wasm32, lp64, Native(), {PtrSize: 8, Order: binary.BigEndian}} {
		for _, rec := range sampleRecords() {
			buf, err := l.Marshal(rec)
			check(t, err == nil, "Marshal failed", err)
			check(t, len(buf) == l.Sizeof(rec), "Marshal length does not match Sizeof", len(buf), l.Sizeof(rec))

			out := emptyLike(rec)
			err = l.Unmarshal(buf, out)
			check(t, err == nil, "Unmarshal failed", err)

			if diff := cmp.Diff(rec, out); diff != "" {
				t.Errorf("round trip (ptr %d) mismatch (-want +got):\n%s", l.PtrSize, diff)
			}
		}
	}
}

func TestSizes(t *testing.T) {
	tests := []struct {
		rec    Record
		wasm32 int
		lp64   int
	}{
		{&WatchConfig{}, 12, 24},
		{&TimerConfig{}, 8, 16},
		{&UARTConfig{}, 24, 40},
		{&I2CConfig{}, 32, 56},
		{&SPIConfig{}, 24, 32},
	}

	for _, tt := range tests {
		check(t, Wasm32.Sizeof(tt.rec) == tt.wasm32, "wasm32 size", tt.rec, Wasm32.Sizeof(tt.rec))
		check(t, lp64.Sizeof(tt.rec) == tt.lp64, "lp64 size", tt.rec, lp64.Sizeof(tt.rec))
	}
}

func TestFieldOffsets(t *testing.T) {
	buf, err := Wasm32.Marshal(&WatchConfig{UserData: 1, Edge: 2, PinChange: 3})
	check(t, err == nil, err)
	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("wasm32 WatchConfig bytes (-want +got):\n%s", diff)
	}

	/* On LP64 the edge field is followed by 4 bytes of padding */
	buf, err = lp64.Marshal(&WatchConfig{UserData: 1, Edge: 2, PinChange: 3})
	check(t, err == nil, err)
	check(t, binary.LittleEndian.Uint32(buf[8:]) == 2, "edge not at offset 8")
	check(t, binary.LittleEndian.Uint32(buf[12:]) == 0, "padding not zero")
	check(t, binary.LittleEndian.Uint64(buf[16:]) == 3, "pin_change not at offset 16")

	buf, err = lp64.Marshal(&UARTConfig{BaudRate: 9600, RXData: 7})
	check(t, err == nil, err)
	check(t, binary.LittleEndian.Uint32(buf[16:]) == 9600, "baud_rate not at offset 16")
	check(t, binary.LittleEndian.Uint64(buf[24:]) == 7, "rx_data not at offset 24")

	buf, err = Wasm32.Marshal(&I2CConfig{Address: 0x70, Disconnect: 9})
	check(t, err == nil, err)
	check(t, binary.LittleEndian.Uint32(buf[4:]) == 0x70, "address not at offset 4")
	check(t, binary.LittleEndian.Uint32(buf[28:]) == 9, "disconnect not at offset 28")
}

func TestNegativePins(t *testing.T) {
	buf, err := Wasm32.Marshal(&SPIConfig{MISO: -1})
	check(t, err == nil, err)
	check(t, binary.LittleEndian.Uint32(buf[12:]) == 0xFFFFFFFF, "miso not encoded as two's complement")
}

func TestShortBuffer(t *testing.T) {
	buf, err := Wasm32.Marshal(&I2CConfig{Address: 1})
	check(t, err == nil, err)

	var c I2CConfig
	err = Wasm32.Unmarshal(buf[:len(buf)-1], &c)
	check(t, err == ErrorShortRecord, "Expected short record error", err)
}

func TestPointerRange(t *testing.T) {
	_, err := Wasm32.Marshal(&TimerConfig{Callback: 1 << 40})
	check(t, err == ErrorPointerRange, "Expected pointer range error", err)

	_, err = lp64.Marshal(&TimerConfig{Callback: 1 << 40})
	check(t, err == nil, "LP64 should hold 64 bit pointers", err)
}

func TestBigEndianBytes(t *testing.T) {
	be := Layout{PtrSize: 8, Order: binary.BigEndian}
	buf, err := be.Marshal(&TimerConfig{UserData: 0x0102030405060708, Callback: 0x11})
	check(t, err == nil, err)

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0, 0, 0, 0, 0x11}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("big endian TimerConfig bytes (-want +got):\n%s", diff)
	}

	be32 := Layout{PtrSize: 4, Order: binary.BigEndian}
	buf, err = be32.Marshal(&WatchConfig{UserData: 1, Edge: 2, PinChange: 3})
	check(t, err == nil, err)
	check(t, cmp.Equal(buf, []byte{0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3}), "big endian wasm32-sized WatchConfig", buf)
}
