package chipapi

import (
	"errors"

	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
)

// Host is the set of entry points the simulator provides to a chip. Each
// method maps to one host function and reports failure only through its
// return value.
//
// Records passed to the Init and Watch methods are retained by the host until
// the corresponding handle is no longer active.
type Host interface {
	PinInit(name string, mode PinMode) PinID
	PinMode(pin PinID, mode PinMode)
	PinRead(pin PinID) PinValue
	PinWrite(pin PinID, value PinValue)
	PinWatch(pin PinID, config *abi.WatchConfig) bool
	PinWatchStop(pin PinID)

	PinADCRead(pin PinID) float32
	PinDACWrite(pin PinID, voltage float32)

	GetSimNanos() float64
	TimerInit(config *abi.TimerConfig) TimerID
	TimerStart(timer TimerID, micros uint32, repeat bool)
	TimerStartNanos(timer TimerID, nanos float64, repeat bool)
	TimerStop(timer TimerID)

	UARTInit(config *abi.UARTConfig) UARTDevID
	UARTWrite(dev UARTDevID, buffer []byte) bool

	I2CInit(config *abi.I2CConfig) I2CDevID

	SPIInit(config *abi.SPIConfig) SPIDevID
	SPIStart(dev SPIDevID, buffer []byte)
	SPIStop(dev SPIDevID)

	AttrInit(name string, defaultValue float64) AttrID
	AttrRead(attr AttrID) uint32
	AttrReadFloat(attr AttrID) float64

	FramebufferInit() (buffer BufferID, width uint32, height uint32)
	BufferRead(buffer BufferID, offset uint32, data []byte) uint32
	BufferWrite(buffer BufferID, offset uint32, data []byte) uint32

	DebugPrint(message string)

	// Trampoline returns the address the host must call for callbacks of
	// kind cb. The returned address is stored in the records.
	Trampoline(cb Callback) abi.Ptr
}

// Callback enumerates the callback slots found in the configuration records.
type Callback int

const (
	CallbackPinChange Callback = iota + 1
	CallbackTimer
	CallbackUARTRxData
	CallbackUARTWriteDone
	CallbackI2CConnect
	CallbackI2CRead
	CallbackI2CWrite
	CallbackI2CDisconnect
	CallbackSPIDone
)

var (
	// ErrorNoHost is returned by Open when the package was built without a host backend
	ErrorNoHost = errors.New("Chip API host is not available in this build")
)

// Open returns the host the chip module has been loaded into.
func Open() (Host, error) {
	return openHostOs()
}
