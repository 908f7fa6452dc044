package chipapi

// PinID identifies a pin. It is returned by PinInit.
type PinID int32

// NoPin is used in device configurations for pins that are not connected.
const NoPin PinID = -1

// InvalidHandle is returned by the init functions when the host could not
// create the object.
const InvalidHandle = 0xFFFFFFFF

type TimerID uint32
type UARTDevID uint32
type I2CDevID uint32
type SPIDevID uint32
type AttrID uint32
type BufferID uint32
