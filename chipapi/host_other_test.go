//go:build !wokwi || !cgo

package chipapi

import "testing"

func TestOpenWithoutBackend(t *testing.T) {
	host, err := Open()
	if host != nil || err != ErrorNoHost {
		t.Fatal("Open should fail without a host backend", host, err)
	}
}
