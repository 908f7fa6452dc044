// Command shtc3-chip is the SHTC3 sensor built as a simulator chip module:
//
//	tinygo build -tags wokwi -target wasm-unknown -o shtc3.chip.wasm ./cmd/shtc3-chip
//
// The simulator calls chip_init, which runs the setup function registered
// below.
package main

import (
	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/shtc3chip"
)

func init() {
	chipapi.Register(shtc3chip.Setup)
}

func main() {}
