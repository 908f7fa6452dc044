package chipapi

// WatchConfig is the parameter struct for PinWatch.
type WatchConfig struct {
	// Edge selects the transitions that are reported
	Edge Edge
	// PinChange is called with the pin and its new value
	PinChange func(pin PinID, value PinValue)
}

// TimerConfig is the parameter struct for TimerInit.
type TimerConfig struct {
	Callback func()
}

// UARTConfig is the parameter struct for UARTInit. Use NoPin for an unused RX or TX.
type UARTConfig struct {
	RX       PinID
	TX       PinID
	BaudRate uint32

	// RXData is called for every received byte
	RXData func(b byte)
	// WriteDone is called when the data passed to UARTWrite has been sent
	WriteDone func()
}

// I2CConfig is the parameter struct for I2CInit. The device only takes part in
// transfers through its callbacks.
type I2CConfig struct {
	Address uint32
	SCL     PinID
	SDA     PinID

	// Connect is called when the controller addresses the device. Returning
	// false NACKs the address.
	Connect func(address uint32, read bool) bool
	// Read returns the next byte sent to the controller
	Read func() uint8
	// Write receives a byte from the controller and returns whether to ACK it
	Write func(data uint8) bool
	// Disconnect is called on a STOP condition
	Disconnect func()
}

// SPIConfig is the parameter struct for SPIInit.
type SPIConfig struct {
	SCK  PinID
	MOSI PinID
	MISO PinID
	Mode uint32

	// Done is called when a transfer started with SPIStart completes or is
	// stopped. buffer holds the bytes received so far.
	Done func(buffer []byte)
}
