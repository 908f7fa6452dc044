//go:build wokwi && cgo

package chipapi

/*
#include <stdint.h>
#include <stdbool.h>
*/
import "C"

import (
	"unsafe"

	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
)

//export __wokwi_api_version_1
func __wokwi_api_version_1() C.uint32_t {
	return C.uint32_t(apiVersion())
}

//export chip_init
func chip_init() {
	host, err := Open()
	if err != nil {
		return
	}

	if _, err := Start(host); err != nil {
		host.DebugPrint("chip_init: " + err.Error())
	}
}

//export chipapiPinChange
func chipapiPinChange(userData C.uintptr_t, pin C.int32_t, value C.uint32_t) {
	defaultRegistry.PinChange(abi.Ptr(userData), PinID(pin), PinValue(value))
}

//export chipapiTimer
func chipapiTimer(userData C.uintptr_t) {
	defaultRegistry.Timer(abi.Ptr(userData))
}

//export chipapiRxData
func chipapiRxData(userData C.uintptr_t, value C.uint8_t) {
	defaultRegistry.UARTRxData(abi.Ptr(userData), byte(value))
}

//export chipapiWriteDone
func chipapiWriteDone(userData C.uintptr_t) {
	defaultRegistry.UARTWriteDone(abi.Ptr(userData))
}

//export chipapiI2CConnect
func chipapiI2CConnect(userData C.uintptr_t, address C.uint32_t, read C.bool) C.bool {
	return C.bool(defaultRegistry.I2CConnect(abi.Ptr(userData), uint32(address), bool(read)))
}

//export chipapiI2CRead
func chipapiI2CRead(userData C.uintptr_t) C.uint8_t {
	return C.uint8_t(defaultRegistry.I2CRead(abi.Ptr(userData)))
}

//export chipapiI2CWrite
func chipapiI2CWrite(userData C.uintptr_t, data C.uint8_t) C.bool {
	return C.bool(defaultRegistry.I2CWrite(abi.Ptr(userData), uint8(data)))
}

//export chipapiI2CDisconnect
func chipapiI2CDisconnect(userData C.uintptr_t) {
	defaultRegistry.I2CDisconnect(abi.Ptr(userData))
}

//export chipapiSPIDone
func chipapiSPIDone(userData C.uintptr_t, buffer *C.uint8_t, count C.uint32_t) {
	var received []byte
	if buffer != nil && count > 0 {
		received = unsafe.Slice((*byte)(unsafe.Pointer(buffer)), int(count))
	}

	defaultRegistry.SPIDone(abi.Ptr(userData), received)
	native.spiFinished(unsafe.Pointer(buffer))
}
