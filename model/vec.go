package model

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Vec is a point (or direction) in our 2D space. Positions, momenta, and
// gradients all use it.
type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns v + o
func (v Vec) Add(o Vec) Vec {
	return Vec{v.X + o.X, v.Y + o.Y}
}

// Scale returns s*v
func (v Vec) Scale(s float64) Vec {
	return Vec{s * v.X, s * v.Y}
}

// Neg returns -v
func (v Vec) Neg() Vec {
	return Vec{-v.X, -v.Y}
}

// Dot returns the inner product
func (v Vec) Dot(o Vec) float64 {
	return v.X*o.X + v.Y*o.Y
}

// NormSq is the squared Euclidean length
func (v Vec) NormSq() float64 {
	return v.Dot(v)
}

// IsValid is false if either coordinate is NaN or infinite
func (v Vec) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Axis returns X for axis 0 and Y for anything else. Handy for code that
// treats each dimension independently.
func (v Vec) Axis(i int) float64 {
	if i == 0 {
		return v.X
	}
	return v.Y
}

// MarshalJSON writes finite coordinates as numbers and NaN or infinite ones
// as the strings "NaN", "+Inf" and "-Inf". Diagnostics use +Inf to signal
// chains that disagree, so it has to survive encoding.
func (v Vec) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 48)
	buf = append(buf, `{"x":`...)
	buf = appendJSONFloat(buf, v.X)
	buf = append(buf, `,"y":`...)
	buf = appendJSONFloat(buf, v.Y)
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON accepts everything MarshalJSON writes
func (v *Vec) UnmarshalJSON(data []byte) error {
	var raw struct {
		X json.RawMessage `json:"x"`
		Y json.RawMessage `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "Could not decode point")
	}

	x, err := parseJSONFloat(raw.X)
	if err != nil {
		return errors.Wrap(err, "Bad x coordinate")
	}
	y, err := parseJSONFloat(raw.Y)
	if err != nil {
		return errors.Wrap(err, "Bad y coordinate")
	}

	v.X, v.Y = x, y
	return nil
}

func appendJSONFloat(buf []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(buf, `"NaN"`...)
	case math.IsInf(f, 1):
		return append(buf, `"+Inf"`...)
	case math.IsInf(f, -1):
		return append(buf, `"-Inf"`...)
	}
	return strconv.AppendFloat(buf, f, 'g', -1, 64)
}

func parseJSONFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil // Missing means zero, same as a plain struct
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseFloat(s, 64)
	}

	var f float64
	err := json.Unmarshal(raw, &f)
	return f, err
}
