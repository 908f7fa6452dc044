package chipapi

import "strconv"

// PinValue is the digital level of a pin.
type PinValue uint32

const Low PinValue = 0
const High PinValue = 1

func (v PinValue) String() string {
	switch v {
	case Low:
		return "LOW"
	case High:
		return "HIGH"
	}
	return "PinValue(" + strconv.FormatUint(uint64(v), 10) + ")"
}

// PinMode configures a pin in PinInit and PinMode.
type PinMode uint32

const Input PinMode = 0
const Output PinMode = 1
const InputPullup PinMode = 2
const InputPulldown PinMode = 3
const Analog PinMode = 4
const OutputLow PinMode = 16
const OutputHigh PinMode = 17

func (m PinMode) String() string {
	switch m {
	case Input:
		return "INPUT"
	case Output:
		return "OUTPUT"
	case InputPullup:
		return "INPUT_PULLUP"
	case InputPulldown:
		return "INPUT_PULLDOWN"
	case Analog:
		return "ANALOG"
	case OutputLow:
		return "OUTPUT_LOW"
	case OutputHigh:
		return "OUTPUT_HIGH"
	}
	return "PinMode(" + strconv.FormatUint(uint64(m), 10) + ")"
}

// IsOutput reports whether the mode drives the pin.
func (m PinMode) IsOutput() bool {
	return m == Output || m == OutputLow || m == OutputHigh
}

// Edge selects which pin changes a watch reports.
type Edge uint32

const Rising Edge = 1
const Falling Edge = 2
const Both Edge = 3

func (e Edge) String() string {
	switch e {
	case Rising:
		return "RISING"
	case Falling:
		return "FALLING"
	case Both:
		return "BOTH"
	}
	return "Edge(" + strconv.FormatUint(uint64(e), 10) + ")"
}

// Matches reports whether a transition from old to new is selected by e.
func (e Edge) Matches(old, new PinValue) bool {
	if old == new {
		return false
	}
	if new == High {
		return e&Rising != 0
	}
	return e&Falling != 0
}
