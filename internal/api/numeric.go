package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexNumber accepts a JSON number or a decimal string. Invalid,
// missing or null values coerce to 0; the calculate contract never
// faults on malformed numerics, only on malformed structure.
type FlexNumber float64

func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	*f = FlexNumber(parseLenient(data))
	return nil
}

// OptionalNumber is a FlexNumber that remembers whether a usable value
// was supplied at all. Null and empty strings count as absent.
type OptionalNumber struct {
	Value float64
	Set   bool
}

func (o *OptionalNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*o = OptionalNumber{}
		return nil
	}
	*o = OptionalNumber{Value: parseLenient(data), Set: true}
	return nil
}

// Ptr returns the value as a pointer, nil when absent.
func (o OptionalNumber) Ptr() *float64 {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

func parseLenient(data []byte) float64 {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		return num
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return v
		}
	}
	return 0
}
