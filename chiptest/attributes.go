package chiptest

import (
	"io"
	"math"

	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type attr struct {
	name  string
	value float64
}

func (h *Host) attr(id chipapi.AttrID) *attr {
	if int64(id) >= int64(len(h.attrs)) {
		return nil
	}
	return h.attrs[id]
}

// AttrInit returns a new attribute. Its value is the default unless the test
// has set one for name.
func (h *Host) AttrInit(name string, defaultValue float64) chipapi.AttrID {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.checkSetup("attrInit") {
		return invalidHandle
	}

	value, ok := h.attrSet[name]
	if !ok {
		value = defaultValue
	}

	h.attrs = append(h.attrs, &attr{name: name, value: value})
	return chipapi.AttrID(len(h.attrs) - 1)
}

// AttrRead rounds the value to the nearest integer, clamped to the uint32 range.
func (h *Host) AttrRead(id chipapi.AttrID) uint32 {
	v := h.AttrReadFloat(id)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}

func (h *Host) AttrReadFloat(id chipapi.AttrID) float64 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if a := h.attr(id); a != nil {
		return a.value
	}
	return 0
}

// SetAttr changes attribute name. It applies to attributes already created
// and to those created later.
func (h *Host) SetAttr(name string, value float64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.attrSet[name] = value
	for _, a := range h.attrs {
		if a.name == name {
			a.value = value
		}
	}
}

// LoadAttributes reads attribute values from a TOML document of top-level
// keys, for example:
//
//	temperature = 21.5
//	humidity = 40
//	log_level = 5
func (h *Host) LoadAttributes(r io.Reader) error {
	var doc map[string]interface{}
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, "failed to parse attributes")
	}

	values := make(map[string]float64, len(doc))
	for name, raw := range doc {
		switch v := raw.(type) {
		case int64:
			values[name] = float64(v)
		case float64:
			values[name] = v
		case bool:
			if v {
				values[name] = 1
			} else {
				values[name] = 0
			}
		default:
			return errors.Errorf("attribute %q: expected a number, got %T", name, raw)
		}
	}

	for name, v := range values {
		h.SetAttr(name, v)
	}
	return nil
}
