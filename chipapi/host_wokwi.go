//go:build wokwi && cgo

package chipapi

/*
#include <stdint.h>
#include <stdbool.h>
#include <stdlib.h>

typedef struct {
	uintptr_t user_data;
	uint32_t edge;
	uintptr_t pin_change;
} chipapi_watch_config_t;

typedef struct {
	uintptr_t user_data;
	uintptr_t callback;
} chipapi_timer_config_t;

typedef struct {
	uintptr_t user_data;
	int32_t rx;
	int32_t tx;
	uint32_t baud_rate;
	uintptr_t rx_data;
	uintptr_t write_done;
} chipapi_uart_config_t;

typedef struct {
	uintptr_t user_data;
	uint32_t address;
	int32_t scl;
	int32_t sda;
	uintptr_t connect;
	uintptr_t read;
	uintptr_t write;
	uintptr_t disconnect;
} chipapi_i2c_config_t;

typedef struct {
	uintptr_t user_data;
	int32_t sck;
	int32_t mosi;
	int32_t miso;
	uint32_t mode;
	uintptr_t done;
} chipapi_spi_config_t;

extern int32_t pinInit(const char *name, uint32_t mode);
extern void pinMode(int32_t pin, uint32_t mode);
extern uint32_t pinRead(int32_t pin);
extern void pinWrite(int32_t pin, uint32_t value);
extern bool pinWatch(int32_t pin, const chipapi_watch_config_t *watch_config);
extern void pinWatchStop(int32_t pin);
extern float pinADCRead(int32_t pin);
extern void pinDACWrite(int32_t pin, float voltage);
extern double getSimNanos(void);
extern uint32_t timerInit(const chipapi_timer_config_t *config);
extern void timerStart(uint32_t timer_id, uint32_t micros, bool repeat);
extern void timerStartNanos(uint32_t timer_id, double nanos, bool repeat);
extern void timerStop(uint32_t timer_id);
extern uint32_t uartInit(const chipapi_uart_config_t *config);
extern bool uartWrite(uint32_t uart, const uint8_t *buffer, uint32_t count);
extern uint32_t i2cInit(const chipapi_i2c_config_t *config);
extern uint32_t spiInit(const chipapi_spi_config_t *config);
extern void spiStart(uint32_t spi, const uint8_t *buffer, uint32_t count);
extern void spiStop(uint32_t spi);
extern uint32_t attrInit(const char *name, double default_value);
extern uint32_t attrRead(uint32_t attr);
extern double attrReadFloat(uint32_t attr);
extern uint32_t framebufferInit(uint32_t *width, uint32_t *height);
extern uint32_t bufferRead(uint32_t buffer, uint32_t offset, uint8_t *data, uint32_t data_len);
extern uint32_t bufferWrite(uint32_t buffer, uint32_t offset, const uint8_t *data, uint32_t data_len);
extern void debugPrint(const char *message);

// Implemented in Go, see host_wokwi_export.go.
extern void chipapiPinChange(uintptr_t user_data, int32_t pin, uint32_t value);
extern void chipapiTimer(uintptr_t user_data);
extern void chipapiRxData(uintptr_t user_data, uint8_t value);
extern void chipapiWriteDone(uintptr_t user_data);
extern bool chipapiI2CConnect(uintptr_t user_data, uint32_t address, bool read);
extern uint8_t chipapiI2CRead(uintptr_t user_data);
extern bool chipapiI2CWrite(uintptr_t user_data, uint8_t data);
extern void chipapiI2CDisconnect(uintptr_t user_data);
extern void chipapiSPIDone(uintptr_t user_data, uint8_t *buffer, uint32_t count);

// The host calls these with the user_data pointer from the record.
static void chipapi_pin_change(void *user_data, int32_t pin, uint32_t value) {
	chipapiPinChange((uintptr_t)user_data, pin, value);
}
static void chipapi_timer(void *user_data) {
	chipapiTimer((uintptr_t)user_data);
}
static void chipapi_rx_data(void *user_data, uint8_t value) {
	chipapiRxData((uintptr_t)user_data, value);
}
static void chipapi_write_done(void *user_data) {
	chipapiWriteDone((uintptr_t)user_data);
}
static bool chipapi_i2c_connect(void *user_data, uint32_t address, bool read) {
	return chipapiI2CConnect((uintptr_t)user_data, address, read);
}
static uint8_t chipapi_i2c_read(void *user_data) {
	return chipapiI2CRead((uintptr_t)user_data);
}
static bool chipapi_i2c_write(void *user_data, uint8_t data) {
	return chipapiI2CWrite((uintptr_t)user_data, data);
}
static void chipapi_i2c_disconnect(void *user_data) {
	chipapiI2CDisconnect((uintptr_t)user_data);
}
static void chipapi_spi_done(void *user_data, uint8_t *buffer, uint32_t count) {
	chipapiSPIDone((uintptr_t)user_data, buffer, count);
}

// Values match the Callback constants.
static uintptr_t chipapi_trampoline(int cb) {
	switch (cb) {
	case 1: return (uintptr_t)chipapi_pin_change;
	case 2: return (uintptr_t)chipapi_timer;
	case 3: return (uintptr_t)chipapi_rx_data;
	case 4: return (uintptr_t)chipapi_write_done;
	case 5: return (uintptr_t)chipapi_i2c_connect;
	case 6: return (uintptr_t)chipapi_i2c_read;
	case 7: return (uintptr_t)chipapi_i2c_write;
	case 8: return (uintptr_t)chipapi_i2c_disconnect;
	case 9: return (uintptr_t)chipapi_spi_done;
	}
	return 0;
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
)

var (
	// ErrorLayoutMismatch is returned by Open if the C records do not have the expected layout
	ErrorLayoutMismatch = errors.New("C record layout does not match abi layout")
)

// wokwiHost calls the functions imported from the simulator. Records handed
// to the host are allocated with C.malloc: the host keeps the pointers after
// the call returns, which Go memory may not be used for.
type wokwiHost struct {
	mutex   sync.Mutex
	watches map[PinID]*C.chipapi_watch_config_t
	spi     map[SPIDevID]*spiTransfer
	spiBufs map[unsafe.Pointer]*spiTransfer
}

type spiTransfer struct {
	dev  SPIDevID
	buf  unsafe.Pointer
	done bool
}

var native = &wokwiHost{
	watches: make(map[PinID]*C.chipapi_watch_config_t),
	spi:     make(map[SPIDevID]*spiTransfer),
	spiBufs: make(map[unsafe.Pointer]*spiTransfer),
}

func checkLayout() error {
	l := abi.Native()
	sizes := []struct {
		c   int
		rec abi.Record
	}{
		{int(C.sizeof_chipapi_watch_config_t), &abi.WatchConfig{}},
		{int(C.sizeof_chipapi_timer_config_t), &abi.TimerConfig{}},
		{int(C.sizeof_chipapi_uart_config_t), &abi.UARTConfig{}},
		{int(C.sizeof_chipapi_i2c_config_t), &abi.I2CConfig{}},
		{int(C.sizeof_chipapi_spi_config_t), &abi.SPIConfig{}},
	}

	for _, s := range sizes {
		if s.c != l.Sizeof(s.rec) {
			return ErrorLayoutMismatch
		}
	}
	return nil
}

func openHostOs() (Host, error) {
	if err := checkLayout(); err != nil {
		return nil, err
	}
	return native, nil
}

func cAlloc(size C.size_t) unsafe.Pointer {
	p := C.malloc(size)
	if p == nil {
		panic("C.malloc failed")
	}
	return p
}

func bytesPtr(b []byte) *C.uint8_t {
	if len(b) == 0 {
		return nil
	}
	return (*C.uint8_t)(unsafe.Pointer(&b[0]))
}

func (h *wokwiHost) Trampoline(cb Callback) abi.Ptr {
	return abi.Ptr(C.chipapi_trampoline(C.int(cb)))
}

func (h *wokwiHost) PinInit(name string, mode PinMode) PinID {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	return PinID(C.pinInit(cs, C.uint32_t(mode)))
}

func (h *wokwiHost) PinMode(pin PinID, mode PinMode) {
	C.pinMode(C.int32_t(pin), C.uint32_t(mode))
}

func (h *wokwiHost) PinRead(pin PinID) PinValue {
	return PinValue(C.pinRead(C.int32_t(pin)))
}

func (h *wokwiHost) PinWrite(pin PinID, value PinValue) {
	C.pinWrite(C.int32_t(pin), C.uint32_t(value))
}

func (h *wokwiHost) PinWatch(pin PinID, config *abi.WatchConfig) bool {
	rec := (*C.chipapi_watch_config_t)(cAlloc(C.size_t(C.sizeof_chipapi_watch_config_t)))
	rec.user_data = C.uintptr_t(config.UserData)
	rec.edge = C.uint32_t(config.Edge)
	rec.pin_change = C.uintptr_t(config.PinChange)

	if !bool(C.pinWatch(C.int32_t(pin), rec)) {
		C.free(unsafe.Pointer(rec))
		return false
	}

	h.mutex.Lock()
	if old := h.watches[pin]; old != nil {
		C.free(unsafe.Pointer(old))
	}
	h.watches[pin] = rec
	h.mutex.Unlock()

	return true
}

func (h *wokwiHost) PinWatchStop(pin PinID) {
	C.pinWatchStop(C.int32_t(pin))

	h.mutex.Lock()
	if old := h.watches[pin]; old != nil {
		C.free(unsafe.Pointer(old))
		delete(h.watches, pin)
	}
	h.mutex.Unlock()
}

func (h *wokwiHost) PinADCRead(pin PinID) float32 {
	return float32(C.pinADCRead(C.int32_t(pin)))
}

func (h *wokwiHost) PinDACWrite(pin PinID, voltage float32) {
	C.pinDACWrite(C.int32_t(pin), C.float(voltage))
}

func (h *wokwiHost) GetSimNanos() float64 {
	return float64(C.getSimNanos())
}

func (h *wokwiHost) TimerInit(config *abi.TimerConfig) TimerID {
	rec := (*C.chipapi_timer_config_t)(cAlloc(C.size_t(C.sizeof_chipapi_timer_config_t)))
	rec.user_data = C.uintptr_t(config.UserData)
	rec.callback = C.uintptr_t(config.Callback)
	return TimerID(C.timerInit(rec))
}

func (h *wokwiHost) TimerStart(timer TimerID, micros uint32, repeat bool) {
	C.timerStart(C.uint32_t(timer), C.uint32_t(micros), C.bool(repeat))
}

func (h *wokwiHost) TimerStartNanos(timer TimerID, nanos float64, repeat bool) {
	C.timerStartNanos(C.uint32_t(timer), C.double(nanos), C.bool(repeat))
}

func (h *wokwiHost) TimerStop(timer TimerID) {
	C.timerStop(C.uint32_t(timer))
}

func (h *wokwiHost) UARTInit(config *abi.UARTConfig) UARTDevID {
	rec := (*C.chipapi_uart_config_t)(cAlloc(C.size_t(C.sizeof_chipapi_uart_config_t)))
	rec.user_data = C.uintptr_t(config.UserData)
	rec.rx = C.int32_t(config.RX)
	rec.tx = C.int32_t(config.TX)
	rec.baud_rate = C.uint32_t(config.BaudRate)
	rec.rx_data = C.uintptr_t(config.RXData)
	rec.write_done = C.uintptr_t(config.WriteDone)
	return UARTDevID(C.uartInit(rec))
}

func (h *wokwiHost) UARTWrite(dev UARTDevID, buffer []byte) bool {
	return bool(C.uartWrite(C.uint32_t(dev), bytesPtr(buffer), C.uint32_t(len(buffer))))
}

func (h *wokwiHost) I2CInit(config *abi.I2CConfig) I2CDevID {
	rec := (*C.chipapi_i2c_config_t)(cAlloc(C.size_t(C.sizeof_chipapi_i2c_config_t)))
	rec.user_data = C.uintptr_t(config.UserData)
	rec.address = C.uint32_t(config.Address)
	rec.scl = C.int32_t(config.SCL)
	rec.sda = C.int32_t(config.SDA)
	rec.connect = C.uintptr_t(config.Connect)
	rec.read = C.uintptr_t(config.Read)
	rec.write = C.uintptr_t(config.Write)
	rec.disconnect = C.uintptr_t(config.Disconnect)
	return I2CDevID(C.i2cInit(rec))
}

func (h *wokwiHost) SPIInit(config *abi.SPIConfig) SPIDevID {
	rec := (*C.chipapi_spi_config_t)(cAlloc(C.size_t(C.sizeof_chipapi_spi_config_t)))
	rec.user_data = C.uintptr_t(config.UserData)
	rec.sck = C.int32_t(config.SCK)
	rec.mosi = C.int32_t(config.MOSI)
	rec.miso = C.int32_t(config.MISO)
	rec.mode = C.uint32_t(config.Mode)
	rec.done = C.uintptr_t(config.Done)
	return SPIDevID(C.spiInit(rec))
}

// SPIStart hands the host a C copy of buffer; the registry copies the
// received bytes back into buffer when the transfer is done.
func (h *wokwiHost) SPIStart(dev SPIDevID, buffer []byte) {
	size := len(buffer)
	if size == 0 {
		size = 1
	}
	cbuf := cAlloc(C.size_t(size))
	copy(unsafe.Slice((*byte)(cbuf), size), buffer)

	t := &spiTransfer{dev: dev, buf: cbuf}

	h.mutex.Lock()
	if old := h.spi[dev]; old != nil && old.done {
		C.free(old.buf)
		delete(h.spiBufs, old.buf)
	}
	h.spi[dev] = t
	h.spiBufs[cbuf] = t
	h.mutex.Unlock()

	C.spiStart(C.uint32_t(dev), (*C.uint8_t)(cbuf), C.uint32_t(len(buffer)))
}

// spiFinished releases the C buffer of a completed transfer unless it is
// still the current one of its device.
func (h *wokwiHost) spiFinished(buf unsafe.Pointer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	t := h.spiBufs[buf]
	if t == nil {
		return
	}

	t.done = true
	if h.spi[t.dev] != t {
		C.free(t.buf)
		delete(h.spiBufs, t.buf)
	}
}

func (h *wokwiHost) SPIStop(dev SPIDevID) {
	C.spiStop(C.uint32_t(dev))
}

func (h *wokwiHost) AttrInit(name string, defaultValue float64) AttrID {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	return AttrID(C.attrInit(cs, C.double(defaultValue)))
}

func (h *wokwiHost) AttrRead(attr AttrID) uint32 {
	return uint32(C.attrRead(C.uint32_t(attr)))
}

func (h *wokwiHost) AttrReadFloat(attr AttrID) float64 {
	return float64(C.attrReadFloat(C.uint32_t(attr)))
}

func (h *wokwiHost) FramebufferInit() (BufferID, uint32, uint32) {
	var width, height C.uint32_t
	id := C.framebufferInit(&width, &height)
	return BufferID(id), uint32(width), uint32(height)
}

func (h *wokwiHost) BufferRead(buffer BufferID, offset uint32, data []byte) uint32 {
	return uint32(C.bufferRead(C.uint32_t(buffer), C.uint32_t(offset), bytesPtr(data), C.uint32_t(len(data))))
}

func (h *wokwiHost) BufferWrite(buffer BufferID, offset uint32, data []byte) uint32 {
	return uint32(C.bufferWrite(C.uint32_t(buffer), C.uint32_t(offset), bytesPtr(data), C.uint32_t(len(data))))
}

func (h *wokwiHost) DebugPrint(message string) {
	cs := C.CString(message)
	defer C.free(unsafe.Pointer(cs))
	C.debugPrint(cs)
}
