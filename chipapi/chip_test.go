package chipapi_test

import (
	"bytes"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/chiptest"
	"github.com/BertoldVdb/go-chipapi/logrusconfig"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func check(t *testing.T, condition bool, reason ...interface{}) {
	if !condition {
		t.Error(reason...)
		t.FailNow()
	}
}

func load(t *testing.T, opts *chiptest.Options, setup func(c *chipapi.Chip)) (*chiptest.Host, *chipapi.Chip) {
	h := chiptest.New(opts)
	c, err := h.Load(setup)
	check(t, err == nil, "Load failed", err)
	return h, c
}

func TestConstants(t *testing.T) {
	check(t, chipapi.Low == 0 && chipapi.High == 1, "Pin values")
	check(t, chipapi.Input == 0 && chipapi.Output == 1 && chipapi.InputPullup == 2 &&
		chipapi.InputPulldown == 3 && chipapi.Analog == 4, "Pin modes")
	check(t, chipapi.OutputLow == 16 && chipapi.OutputHigh == 17, "Output modes with initial level")
	check(t, chipapi.OutputHigh != chipapi.OutputLow, "OUTPUT_HIGH must differ from OUTPUT_LOW")
	check(t, chipapi.Rising == 1 && chipapi.Falling == 2 && chipapi.Both == 3, "Edges")
	check(t, chipapi.NoPin == -1, "NO_PIN")

	check(t, chipapi.OutputHigh.String() == "OUTPUT_HIGH", chipapi.OutputHigh.String())
	check(t, chipapi.PinMode(9).String() == "PinMode(9)", chipapi.PinMode(9).String())
	check(t, chipapi.Both.String() == "BOTH", chipapi.Both.String())
	check(t, chipapi.CallbackSPIDone.String() == "spi_done", chipapi.CallbackSPIDone.String())
}

func TestEdgeMatches(t *testing.T) {
	check(t, chipapi.Rising.Matches(chipapi.Low, chipapi.High), "Rising should match low to high")
	check(t, !chipapi.Rising.Matches(chipapi.High, chipapi.Low), "Rising should not match high to low")
	check(t, chipapi.Falling.Matches(chipapi.High, chipapi.Low), "Falling should match high to low")
	check(t, chipapi.Both.Matches(chipapi.High, chipapi.Low) && chipapi.Both.Matches(chipapi.Low, chipapi.High), "Both")
	check(t, !chipapi.Both.Matches(chipapi.High, chipapi.High), "No change never matches")
}

func TestVersionExport(t *testing.T) {
	fn, ok := chipapi.LookupExport(chipapi.VersionSymbol)
	check(t, ok, "Version symbol not found")
	check(t, fn() == 1, "Version should be 1", fn())

	_, ok = chipapi.LookupExport("__wokwi_api_version_2")
	check(t, !ok, "Unknown version symbol resolved")
}

func TestNoPinIsNotAPin(t *testing.T) {
	var pins []chipapi.PinID
	load(t, nil, func(c *chipapi.Chip) {
		for _, name := range []string{"VCC", "GND", "OUT"} {
			pins = append(pins, c.PinInit(name, chipapi.Input))
		}
	})

	check(t, pins[0] == 0, "First pin should be 0", pins)
	for _, p := range pins {
		check(t, p != chipapi.NoPin, "PinInit returned NO_PIN", pins)
	}
}

func TestPinWatchTwice(t *testing.T) {
	var pin chipapi.PinID
	var first, second int

	h, c := load(t, nil, func(c *chipapi.Chip) {
		pin = c.PinInit("IN", chipapi.Input)
	})

	ok := c.PinWatch(pin, &chipapi.WatchConfig{Edge: chipapi.Both, PinChange: func(chipapi.PinID, chipapi.PinValue) { first++ }})
	check(t, ok, "First watch should succeed")
	active := c.Registry().Active()

	ok = c.PinWatch(pin, &chipapi.WatchConfig{Edge: chipapi.Both, PinChange: func(chipapi.PinID, chipapi.PinValue) { second++ }})
	check(t, !ok, "Second watch should fail")
	check(t, c.Registry().Active() == active, "Failed watch leaked a slot", c.Registry().Active(), active)

	h.SetPin(pin, chipapi.High)
	check(t, first == 1 && second == 0, "The first watch should stay in effect", first, second)

	c.PinWatchStop(pin)
	check(t, c.Registry().Active() == active-1, "Stop should release the slot")

	ok = c.PinWatch(pin, &chipapi.WatchConfig{Edge: chipapi.Falling, PinChange: func(chipapi.PinID, chipapi.PinValue) { second++ }})
	check(t, ok, "Watch after stop should succeed")
	h.SetPin(pin, chipapi.Low)
	check(t, first == 1 && second == 1, "New watch should fire", first, second)
}

func TestConfigCopied(t *testing.T) {
	var pin chipapi.PinID
	fired := ""

	h, c := load(t, nil, func(c *chipapi.Chip) {
		pin = c.PinInit("IN", chipapi.Input)
	})

	cfg := &chipapi.WatchConfig{Edge: chipapi.Rising, PinChange: func(chipapi.PinID, chipapi.PinValue) { fired = "a" }}
	c.PinWatch(pin, cfg)
	cfg.PinChange = func(chipapi.PinID, chipapi.PinValue) { fired = "b" }

	h.SetPin(pin, chipapi.High)
	check(t, fired == "a", "Changing the config after the call should have no effect", fired)
}

func TestCallbackPanicRecovered(t *testing.T) {
	var timer chipapi.TimerID
	var out bytes.Buffer

	h, c := load(t, nil, func(c *chipapi.Chip) {
		timer = c.TimerInit(&chipapi.TimerConfig{Callback: func() { panic("boom") }})
	})
	c.Registry().SetLogger(logrusconfig.GetLogger(&out, logrus.InfoLevel))

	c.TimerStart(timer, 1, false)
	h.Advance(time.Millisecond)

	check(t, strings.Contains(out.String(), "boom"), "Panic was not logged", out.String())
	check(t, strings.Contains(out.String(), "timer"), "Callback kind was not logged", out.String())
}

func TestI2CConnectPanicNACKs(t *testing.T) {
	h, _ := load(t, nil, func(c *chipapi.Chip) {
		c.Registry().SetLogger(logrusconfig.GetLogger(io.Discard, logrus.InfoLevel))
		c.I2CInit(&chipapi.I2CConfig{
			Address: 0x33,
			SCL:     chipapi.NoPin,
			SDA:     chipapi.NoPin,
			Connect: func(uint32, bool) bool { panic("bad device") },
		})
	})

	err := h.I2CBus().Tx(0x33, []byte{0}, nil)
	check(t, err != nil, "Panicking connect should NACK")
}

func TestStartRegistered(t *testing.T) {
	chipapi.Register(nil)
	_, err := chipapi.Start(chiptest.New(nil))
	check(t, err == chipapi.ErrorNoSetup, "Expected ErrorNoSetup", err)

	var timer chipapi.TimerID
	fired := 0
	chipapi.Register(func(c *chipapi.Chip) {
		c.DebugPrint("setup")
		timer = c.TimerInit(&chipapi.TimerConfig{Callback: func() { fired++ }})
		c.TimerStart(timer, 10, true)
	})
	defer chipapi.Register(nil)

	h := chiptest.New(nil)
	_, err = h.LoadRegistered()
	check(t, err == nil, "LoadRegistered failed", err)

	h.Advance(35 * time.Microsecond)
	check(t, fired == 3, "Timer should fire from the package registry", fired)
	check(t, cmp.Equal(h.DebugLog(), []string{"setup"}), "Debug log mismatch", h.DebugLog())
}

func TestDebugWriter(t *testing.T) {
	h, c := load(t, nil, func(c *chipapi.Chip) {})

	io.WriteString(c.DebugWriter(), "one\ntwo\n")
	check(t, cmp.Equal(h.DebugLog(), []string{"one", "two"}), "Lines not split", h.DebugLog())
}

func TestSetupLoggerLevel(t *testing.T) {
	var logger *logrus.Entry
	h, _ := load(t, &chiptest.Options{Attributes: map[string]float64{"log_level": float64(logrus.DebugLevel)}}, func(c *chipapi.Chip) {
		logger = c.SetupLogger("log_level")
	})

	logger.Debug("visible")
	logger.Trace("hidden")

	log := h.DebugLog()
	check(t, len(log) == 1 && strings.Contains(log[0], "visible"), "Level not taken from attribute", log)
}

func TestUARTWriter(t *testing.T) {
	var uart *chipapi.UART
	done := 0

	h, _ := load(t, nil, func(c *chipapi.Chip) {
		uart = c.NewUART(&chipapi.UARTConfig{
			RX:        chipapi.NoPin,
			TX:        c.PinInit("TX", chipapi.Output),
			BaudRate:  115200,
			WriteDone: func() { done++ },
		})
	})

	for _, s := range []string{"ab", "cd", "ef"} {
		n, err := io.WriteString(uart, s)
		check(t, err == nil && n == 2, "Write failed", n, err)
	}
	check(t, uart.Pending() == 4, "Queued bytes", uart.Pending())

	h.Advance(time.Second)
	check(t, string(h.UARTOutput(uart.ID)) == "abcdef", "Output mismatch")
	check(t, done == 1, "WriteDone should fire once the queue drained", done)
	check(t, uart.Pending() == 0, "Queue not drained")
}

func TestUARTWriterRejected(t *testing.T) {
	var uart *chipapi.UART
	var c *chipapi.Chip

	_, c = load(t, nil, func(chip *chipapi.Chip) {
		uart = chip.NewUART(&chipapi.UARTConfig{RX: chipapi.NoPin, TX: chipapi.NoPin, BaudRate: 9600})
	})

	check(t, c.UARTWrite(uart.ID, []byte("raw")), "Raw write failed")
	_, err := uart.Write([]byte("x"))
	check(t, err == chipapi.ErrorUARTRejected, "Expected ErrorUARTRejected", err)
}

// rejectingHost refuses every UART write. during runs inside the first
// refused call.
type rejectingHost struct {
	*chiptest.Host
	during func()
}

func (h *rejectingHost) UARTWrite(dev chipapi.UARTDevID, data []byte) bool {
	if f := h.during; f != nil {
		h.during = nil
		f()
	}
	return false
}

func TestUARTWriterRejectedDropsQueue(t *testing.T) {
	host := &rejectingHost{Host: chiptest.New(nil)}
	c := chipapi.New(host, nil)
	uart := c.NewUART(&chipapi.UARTConfig{RX: chipapi.NoPin, TX: chipapi.NoPin, BaudRate: 9600})

	host.during = func() {
		n, err := uart.Write([]byte("queued"))
		check(t, n == 6 && err == nil, "Write during a pending send should queue", n, err)
		check(t, uart.Pending() == 6, "Not queued", uart.Pending())
	}

	_, err := uart.Write([]byte("first"))
	check(t, err == chipapi.ErrorUARTRejected, "Expected ErrorUARTRejected", err)
	check(t, uart.Pending() == 0, "Queue must be dropped with the rejected write", uart.Pending())

	_, err = uart.Write([]byte("next"))
	check(t, err == chipapi.ErrorUARTRejected, "Writer should not stay busy", err)
}

func TestFailedInitReleasesSlot(t *testing.T) {
	h, c := load(t, nil, func(c *chipapi.Chip) {})
	active := c.Registry().Active()

	dev := c.SPIInit(&chipapi.SPIConfig{SCK: chipapi.NoPin, MOSI: chipapi.NoPin, MISO: chipapi.NoPin})
	check(t, dev == chipapi.InvalidHandle, "spiInit after setup should fail", dev)
	check(t, c.TimerInit(&chipapi.TimerConfig{}) == chipapi.InvalidHandle, "timerInit after setup should fail")
	check(t, c.UARTInit(&chipapi.UARTConfig{}) == chipapi.InvalidHandle, "uartInit after setup should fail")
	check(t, c.I2CInit(&chipapi.I2CConfig{}) == chipapi.InvalidHandle, "i2cInit after setup should fail")
	check(t, c.Registry().Active() == active, "Failed init kept its slot", c.Registry().Active(), active)

	c.SPIStart(dev, []byte{1})
	check(t, c.Registry().Active() == active, "SPIStart on a failed device", c.Registry().Active())
	check(t, len(h.Violations()) == 4, "Violations not recorded", h.Violations())
}

func TestNilConfig(t *testing.T) {
	var pin chipapi.PinID
	var uart *chipapi.UART

	h, _ := load(t, nil, func(c *chipapi.Chip) {
		pin = c.PinInit("IN", chipapi.Input)
		check(t, c.PinWatch(pin, nil), "Watch with nil config failed")
		c.TimerInit(nil)
		c.UARTInit(nil)
		c.I2CInit(nil)
		c.SPIInit(nil)
		uart = c.NewUART(nil)
	})
	check(t, len(h.Violations()) == 0, "Unexpected violations", h.Violations())

	h.SetPin(pin, chipapi.High)
	h.SetPin(pin, chipapi.Low)

	_, err := uart.Write([]byte("x"))
	check(t, err == nil, "Write failed", err)
	h.Advance(time.Millisecond)
	check(t, string(h.UARTOutput(uart.ID)) == "x", "Output mismatch", h.UARTOutput(uart.ID))
}

func TestSPIDoneBuffer(t *testing.T) {
	var dev chipapi.SPIDevID
	var got []byte
	buffer := []byte{0x10, 0x20, 0x30}

	h, c := load(t, nil, func(c *chipapi.Chip) {
		dev = c.SPIInit(&chipapi.SPIConfig{
			SCK: chipapi.NoPin, MOSI: chipapi.NoPin, MISO: chipapi.NoPin, Mode: 0,
			Done: func(b []byte) { got = b },
		})
	})

	c.SPIStart(dev, buffer)
	miso, err := h.SPITransfer(dev, []byte{1, 2, 3})
	check(t, err == nil, "Transfer failed", err)
	check(t, cmp.Equal(miso, []byte{0x10, 0x20, 0x30}), "MISO mismatch", miso)
	check(t, cmp.Equal(buffer, []byte{1, 2, 3}), "Received bytes not copied to the buffer", buffer)
	check(t, &got[0] == &buffer[0], "Done should see the caller's buffer")
}

func TestFramebufferAdapter(t *testing.T) {
	var fb *chipapi.Framebuffer
	h, _ := load(t, &chiptest.Options{FramebufferWidth: 3, FramebufferHeight: 2}, func(c *chipapi.Chip) {
		fb = c.NewFramebuffer()
	})
	check(t, fb.Size() == 24, "Size mismatch", fb.Size())

	red := color.RGBA{R: 255, A: 255}
	check(t, fb.Fill(red) == nil, "Fill failed")
	check(t, fb.SetPixel(2, 1, color.RGBA{B: 9}) == nil, "SetPixel failed")

	px, err := fb.Pixel(0, 0)
	check(t, err == nil && px == red, "Pixel mismatch", px, err)
	check(t, bytes.Equal(h.FramebufferBytes()[20:], []byte{0, 0, 9, 0}), "Last pixel mismatch")

	_, err = fb.Pixel(3, 0)
	check(t, err == chipapi.ErrorOffsetRange, "Expected ErrorOffsetRange", err)

	n, err := fb.WriteAt(make([]byte, 8), 20)
	check(t, n == 4 && err == io.ErrShortWrite, "Short write must be reported", n, err)

	n, err = fb.ReadAt(make([]byte, 8), 20)
	check(t, n == 4 && err == io.EOF, "Read past the end should return EOF", n, err)

	_, err = fb.ReadAt(make([]byte, 1), -1)
	check(t, err == chipapi.ErrorOffsetRange, "Negative offset accepted", err)
}

// shortHost copies at most two bytes per framebuffer transfer.
type shortHost struct {
	*chiptest.Host
}

func (shortHost) FramebufferInit() (chipapi.BufferID, uint32, uint32) {
	return 1, 4, 4
}

func (shortHost) BufferRead(buffer chipapi.BufferID, offset uint32, data []byte) uint32 {
	if len(data) > 2 {
		return 2
	}
	return uint32(len(data))
}

func (shortHost) BufferWrite(buffer chipapi.BufferID, offset uint32, data []byte) uint32 {
	return shortHost{}.BufferRead(buffer, offset, data)
}

func TestFramebufferShortTransfer(t *testing.T) {
	c := chipapi.New(shortHost{chiptest.New(nil)}, nil)
	fb := c.NewFramebuffer()

	n, err := fb.ReadAt(make([]byte, 8), 0)
	check(t, n == 2 && err == chipapi.ErrorShortTransfer, "Short read must be reported", n, err)

	n, err = fb.WriteAt(make([]byte, 8), 0)
	check(t, n == 2 && err == io.ErrShortWrite, "Short write must be reported", n, err)

	check(t, fb.SetPixel(0, 0, color.RGBA{}) == io.ErrShortWrite, "SetPixel should fail on short writes")
}
