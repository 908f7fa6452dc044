package chipapi

import (
	"testing"

	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
)

func TestRegistrySlots(t *testing.T) {
	r := NewRegistry(nil)

	a := r.get(&TimerConfig{})
	b := r.get(&TimerConfig{})
	if a == 0 || b == 0 || a == b {
		t.Fatal("User data must be unique and non-zero", a, b)
	}

	r.put(a)
	if r.Active() != 1 {
		t.Fatal("Active count wrong", r.Active())
	}

	c := r.get(&TimerConfig{})
	if c != a {
		t.Fatal("Freed slot should be reused", a, c)
	}
}

func TestRegistryUnknownUserData(t *testing.T) {
	r := NewRegistry(nil)
	fired := false
	ud := r.get(&TimerConfig{Callback: func() { fired = true }})

	r.Timer(0)
	r.Timer(ud + 1)
	r.PinChange(ud, 0, High)
	if fired {
		t.Fatal("Callback fired for the wrong user data or kind")
	}
	if r.I2CConnect(abi.Ptr(99), 0x10, false) {
		t.Fatal("Unknown I2C device should NACK")
	}

	r.Timer(ud)
	if !fired {
		t.Fatal("Callback did not fire")
	}
}
