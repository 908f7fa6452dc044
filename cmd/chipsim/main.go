// Command chipsim runs the SHTC3 chip in the in-memory host and reads it with
// the tinygo SHTC3 driver.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BertoldVdb/go-chipapi/chiptest"
	"github.com/BertoldVdb/go-chipapi/logrusconfig"
	"github.com/BertoldVdb/go-chipapi/shtc3chip"
	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/drivers/shtc3"
)

type CLI struct {
	Attrs    string             `name:"attrs" help:"TOML file with attribute values." type:"existingfile" placeholder:"FILE"`
	Set      map[string]float64 `name:"set" help:"Set an attribute." placeholder:"NAME=VALUE"`
	Reads    int                `name:"reads" help:"Number of measurements." default:"3"`
	Interval time.Duration      `name:"interval" help:"Simulation time between measurements." default:"1s"`
	LogLevel string             `name:"log-level" help:"Host log level." default:"info"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("chipsim"),
		kong.Description("Run the SHTC3 chip without the simulator."),
		kong.UsageOnError())

	if err := run(&cli, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "chipsim:", err)
		os.Exit(1)
	}
}

func run(cli *CLI, out io.Writer, logOut io.Writer) error {
	level := logrusconfig.ParseLevel(cli.LogLevel, logrus.InfoLevel)
	h := chiptest.New(&chiptest.Options{
		Logger: logrusconfig.GetLogger(logOut, level),
	})

	if cli.Attrs != "" {
		f, err := os.Open(cli.Attrs)
		if err != nil {
			return errors.Wrap(err, "failed to open attributes")
		}
		err = h.LoadAttributes(f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to load %s", cli.Attrs)
		}
	}
	for name, value := range cli.Set {
		h.SetAttr(name, value)
	}

	if _, err := h.Load(shtc3chip.Setup); err != nil {
		return errors.Wrap(err, "failed to load chip")
	}

	dev := shtc3.New(h.I2CBus())
	if err := dev.WakeUp(); err != nil {
		return errors.Wrap(err, "failed to wake up sensor")
	}

	for i := 0; i < cli.Reads; i++ {
		temp, hum, err := dev.ReadTemperatureHumidity()
		if err != nil {
			return errors.Wrapf(err, "measurement %d failed", i)
		}

		fmt.Fprintf(out, "%-12v temperature=%.2fC humidity=%.2f%%\n",
			h.Now(), float64(temp)/1000, float64(hum)/100)
		h.Advance(cli.Interval)
	}

	for _, v := range h.Violations() {
		fmt.Fprintln(out, "violation:", v)
	}
	if len(h.Violations()) > 0 {
		return errors.New("chip violated the API")
	}
	return nil
}
