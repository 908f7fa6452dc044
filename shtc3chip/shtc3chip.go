// Package shtc3chip is a simulated Sensirion SHTC3 temperature and humidity
// sensor. The measured values come from the chip's "temperature" (degrees
// Celsius) and "humidity" (%RH) attributes.
package shtc3chip

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/sigurn/crc8"
	"github.com/sirupsen/logrus"
)

// Address is the fixed I2C address of the sensor.
const Address = 0x70

// ID is returned by the read ID command. Bits 11 and 5:0 identify an SHTC3.
const ID = 0x0807

const (
	cmdWakeup    = 0x3517
	cmdSleep     = 0xB098
	cmdSoftReset = 0x805D
	cmdReadID    = 0xEFC8
)

type measureCmd struct {
	humidityFirst bool
	stretch       bool
	duration      time.Duration
}

var measureCmds = map[uint16]measureCmd{
	0x7CA2: {stretch: true, duration: 12100 * time.Microsecond},
	0x7866: {duration: 12100 * time.Microsecond},
	0x6458: {stretch: true, duration: 800 * time.Microsecond},
	0x609C: {duration: 800 * time.Microsecond},
	0x5C24: {humidityFirst: true, stretch: true, duration: 12100 * time.Microsecond},
	0x58E0: {humidityFirst: true, duration: 12100 * time.Microsecond},
	0x44DE: {humidityFirst: true, stretch: true, duration: 800 * time.Microsecond},
	0x401A: {humidityFirst: true, duration: 800 * time.Microsecond},
}

var crcTable *crc8.Table

func init() {
	crcParam := crc8.Params{
		Poly:  0x31,
		Init:  0xFF,
		Check: 0xF7,
		Name:  "CRC-8/Sensirion",
	}
	crcTable = crc8.MakeTable(crcParam)
}

// CRC returns the checksum the sensor appends to every data word.
func CRC(data []byte) uint8 {
	return crc8.Checksum(data, crcTable)
}

// Sensor is the state of one simulated sensor.
type Sensor struct {
	chip   *chipapi.Chip
	logger *logrus.Entry

	temperature chipapi.AttrID
	humidity    chipapi.AttrID
	timer       chipapi.TimerID

	mutex        sync.Mutex
	asleep       bool
	measuring    bool
	command      []byte
	output       []byte
	outputPos    int
	measurements int
}

// Setup initializes the sensor on c. It is the chip's setup function.
func Setup(c *chipapi.Chip) {
	New(c)
}

// New creates the sensor's pins, attributes, timer and I2C device. It must
// be called during chip setup.
func New(c *chipapi.Chip) *Sensor {
	s := &Sensor{
		chip:   c,
		logger: c.SetupLogger("log_level").WithField("prefix", "shtc3"),
	}

	scl := c.PinInit("SCL", chipapi.Input)
	sda := c.PinInit("SDA", chipapi.Input)

	s.temperature = c.AttrInit("temperature", 25)
	s.humidity = c.AttrInit("humidity", 50)
	s.timer = c.TimerInit(&chipapi.TimerConfig{Callback: s.measurementDone})

	c.I2CInit(&chipapi.I2CConfig{
		Address:    Address,
		SCL:        scl,
		SDA:        sda,
		Connect:    s.connect,
		Read:       s.read,
		Write:      s.write,
		Disconnect: s.disconnect,
	})

	s.logger.Debug("SHTC3 ready")
	return s
}

// Asleep reports whether the sensor is in sleep mode.
func (s *Sensor) Asleep() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.asleep
}

// Measurements returns the number of measurements started.
func (s *Sensor) Measurements() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.measurements
}

func (s *Sensor) connect(address uint32, read bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.command = s.command[:0]
	if read {
		// Results can only be read once the measurement finished.
		return !s.asleep && !s.measuring && s.outputPos < len(s.output)
	}
	return true
}

func (s *Sensor) read() uint8 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.outputPos >= len(s.output) {
		return 0xFF
	}
	v := s.output[s.outputPos]
	s.outputPos++
	return v
}

func (s *Sensor) write(data uint8) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.command = append(s.command, data)
	if len(s.command) < 2 {
		return true
	}
	if len(s.command) > 2 {
		return false
	}

	cmd := uint16(s.command[0])<<8 | uint16(s.command[1])
	if s.asleep && cmd != cmdWakeup {
		return false
	}
	return s.execute(cmd)
}

func (s *Sensor) disconnect() {
	s.mutex.Lock()
	s.command = s.command[:0]
	s.mutex.Unlock()
}

// execute runs a command. Must be called with the mutex held.
func (s *Sensor) execute(cmd uint16) bool {
	log := s.logger.WithField("cmd", fmt.Sprintf("0x%04x", cmd))

	switch cmd {
	case cmdWakeup:
		s.asleep = false
		log.Debug("Wake up")
		return true

	case cmdSleep:
		s.asleep = true
		s.measuring = false
		s.chip.TimerStop(s.timer)
		log.Debug("Sleep")
		return true

	case cmdSoftReset:
		s.measuring = false
		s.chip.TimerStop(s.timer)
		s.setOutput()
		log.Debug("Soft reset")
		return true

	case cmdReadID:
		s.setOutput(ID)
		return true
	}

	m, ok := measureCmds[cmd]
	if !ok {
		log.Warn("Unknown command")
		return false
	}

	s.measure(m)
	return true
}

// measure samples the attributes. With clock stretching the result is
// available at once, otherwise reads are NACKed until the measurement time
// has passed. Must be called with the mutex held.
func (s *Sensor) measure(m measureCmd) {
	t := s.chip.AttrReadFloat(s.temperature)
	rh := s.chip.AttrReadFloat(s.humidity)
	rawT, rawRH := RawTemperature(t), RawHumidity(rh)

	if m.humidityFirst {
		s.setOutput(rawRH, rawT)
	} else {
		s.setOutput(rawT, rawRH)
	}
	s.measurements++

	s.logger.WithFields(logrus.Fields{
		"temperature": t,
		"humidity":    rh,
	}).Debug("Measurement")

	if !m.stretch {
		s.measuring = true
		s.chip.TimerStartDuration(s.timer, m.duration, false)
	}
}

func (s *Sensor) measurementDone() {
	s.mutex.Lock()
	s.measuring = false
	s.mutex.Unlock()
}

// setOutput queues data words, each followed by its CRC. Must be called with
// the mutex held.
func (s *Sensor) setOutput(words ...uint16) {
	s.output = s.output[:0]
	s.outputPos = 0
	for _, w := range words {
		b := []byte{byte(w >> 8), byte(w)}
		s.output = append(s.output, b[0], b[1], CRC(b))
	}
}

// RawTemperature converts degrees Celsius to the sensor's 16 bit reading.
func RawTemperature(celsius float64) uint16 {
	return toRaw((celsius + 45) * 65536 / 175)
}

// RawHumidity converts %RH to the sensor's 16 bit reading.
func RawHumidity(percent float64) uint16 {
	return toRaw(percent * 65536 / 100)
}

func toRaw(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 65535:
		return 65535
	}
	return uint16(v + 0.5)
}
