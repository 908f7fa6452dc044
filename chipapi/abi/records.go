package abi

// WatchConfig is passed to pinWatch.
type WatchConfig struct {
	UserData  Ptr
	Edge      uint32
	PinChange Ptr
}

func (c *WatchConfig) encode(w *writer) {
	w.ptr(c.UserData)
	w.u32(c.Edge)
	w.ptr(c.PinChange)
}

func (c *WatchConfig) decode(r *reader) {
	c.UserData = r.ptr()
	c.Edge = r.u32()
	c.PinChange = r.ptr()
}

// TimerConfig is passed to timerInit.
type TimerConfig struct {
	UserData Ptr
	Callback Ptr
}

func (c *TimerConfig) encode(w *writer) {
	w.ptr(c.UserData)
	w.ptr(c.Callback)
}

func (c *TimerConfig) decode(r *reader) {
	c.UserData = r.ptr()
	c.Callback = r.ptr()
}

// UARTConfig is passed to uartInit.
type UARTConfig struct {
	UserData  Ptr
	RX        int32
	TX        int32
	BaudRate  uint32
	RXData    Ptr
	WriteDone Ptr
}

func (c *UARTConfig) encode(w *writer) {
	w.ptr(c.UserData)
	w.i32(c.RX)
	w.i32(c.TX)
	w.u32(c.BaudRate)
	w.ptr(c.RXData)
	w.ptr(c.WriteDone)
}

func (c *UARTConfig) decode(r *reader) {
	c.UserData = r.ptr()
	c.RX = r.i32()
	c.TX = r.i32()
	c.BaudRate = r.u32()
	c.RXData = r.ptr()
	c.WriteDone = r.ptr()
}

// I2CConfig is passed to i2cInit.
type I2CConfig struct {
	UserData   Ptr
	Address    uint32
	SCL        int32
	SDA        int32
	Connect    Ptr
	Read       Ptr
	Write      Ptr
	Disconnect Ptr
}

func (c *I2CConfig) encode(w *writer) {
	w.ptr(c.UserData)
	w.u32(c.Address)
	w.i32(c.SCL)
	w.i32(c.SDA)
	w.ptr(c.Connect)
	w.ptr(c.Read)
	w.ptr(c.Write)
	w.ptr(c.Disconnect)
}

func (c *I2CConfig) decode(r *reader) {
	c.UserData = r.ptr()
	c.Address = r.u32()
	c.SCL = r.i32()
	c.SDA = r.i32()
	c.Connect = r.ptr()
	c.Read = r.ptr()
	c.Write = r.ptr()
	c.Disconnect = r.ptr()
}

// SPIConfig is passed to spiInit.
type SPIConfig struct {
	UserData Ptr
	SCK      int32
	MOSI     int32
	MISO     int32
	Mode     uint32
	Done     Ptr
}

func (c *SPIConfig) encode(w *writer) {
	w.ptr(c.UserData)
	w.i32(c.SCK)
	w.i32(c.MOSI)
	w.i32(c.MISO)
	w.u32(c.Mode)
	w.ptr(c.Done)
}

func (c *SPIConfig) decode(r *reader) {
	c.UserData = r.ptr()
	c.SCK = r.i32()
	c.MOSI = r.i32()
	c.MISO = r.i32()
	c.Mode = r.u32()
	c.Done = r.ptr()
}
