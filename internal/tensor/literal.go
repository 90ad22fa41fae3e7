package tensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// ErrInvalidLiteral is the root of every literal decoding failure.
var ErrInvalidLiteral = errors.New("tensor: invalid literal")

// Compile-time interface checks.
var (
	_ json.Marshaler   = Tensor{}
	_ json.Unmarshaler = (*Tensor)(nil)
	_ yaml.Marshaler   = Tensor{}
	_ yaml.Unmarshaler = (*Tensor)(nil)
)

// literal is the authoring format shared by question banks and the HTTP API:
//
//	{ "shape": [2, 2], "data": [[1, 2], [3, 4]] }
//
// Shape is a pointer so an explicit [] (scalar) can be told apart from an
// omitted shape, which is inferred from the nesting of data.
type literal struct {
	Shape *Shape `json:"shape" yaml:"shape,flow"`
	Data  any    `json:"data" yaml:"data"`
}

// FromNested builds a tensor from nested []any data, as produced by the JSON
// and YAML decoders. A nil shape means "infer from data".
func FromNested(shape Shape, data any) (Tensor, error) {
	if shape == nil {
		shape = inferShape(data)
	}
	if err := shape.Validate(); err != nil {
		return Tensor{}, fmt.Errorf("%w: %w", ErrInvalidLiteral, err)
	}

	// Grown from data, not preallocated: the declared shape is untrusted input.
	flat, err := flatten(data, shape, 0, nil)
	if err != nil {
		return Tensor{}, err
	}
	if flat == nil {
		flat = []float64{}
	}
	return Tensor{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   flat,
	}, nil
}

// Nested returns the tensor as nested []any of float64 (a bare float64 for
// scalars), the inverse of FromNested.
func (t Tensor) Nested() any {
	return t.nested(func(v float64) any { return v })
}

func (t Tensor) nested(elem func(float64) any) any {
	if len(t.shape) == 0 {
		if len(t.data) == 0 {
			return nil
		}
		return elem(t.data[0])
	}
	return t.nest(0, 0, elem)
}

func (t Tensor) nest(axis, off int, elem func(float64) any) any {
	if axis == len(t.shape) {
		return elem(t.data[off])
	}
	out := make([]any, t.shape[axis])
	for i := range out {
		out[i] = t.nest(axis+1, off+i*t.stride[axis], elem)
	}
	return out
}

// jsonElement spells non-finite values the way toFloat reads them back.
func jsonElement(v float64) any {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return v
}

// MarshalJSON implements json.Marshaler. NaN and infinities are written as
// the strings "NaN", "Infinity" and "-Infinity".
func (t Tensor) MarshalJSON() ([]byte, error) {
	shape := t.shape.Clone()
	return json.Marshal(literal{Shape: &shape, Data: t.nested(jsonElement)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tensor) UnmarshalJSON(b []byte) error {
	var lit literal
	if err := json.Unmarshal(b, &lit); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLiteral, err)
	}
	return t.fromLiteral(lit)
}

// MarshalYAML implements yaml.Marshaler.
func (t Tensor) MarshalYAML() (any, error) {
	shape := t.shape.Clone()
	return literal{Shape: &shape, Data: t.Nested()}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Tensor) UnmarshalYAML(node *yaml.Node) error {
	var lit literal
	if err := node.Decode(&lit); err != nil {
		return fmt.Errorf("%w: line %d: %w", ErrInvalidLiteral, node.Line, err)
	}
	return t.fromLiteral(lit)
}

func (t *Tensor) fromLiteral(lit literal) error {
	if lit.Data == nil {
		return fmt.Errorf("%w: missing data", ErrInvalidLiteral)
	}
	var shape Shape
	if lit.Shape != nil {
		shape = *lit.Shape
		if shape == nil {
			shape = Shape{}
		}
	}
	decoded, err := FromNested(shape, lit.Data)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// inferShape follows the first element of every nesting level.
func inferShape(data any) Shape {
	shape := Shape{}
	for {
		list, ok := data.([]any)
		if !ok {
			return shape
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			return shape
		}
		data = list[0]
	}
}

func flatten(data any, shape Shape, axis int, out []float64) ([]float64, error) {
	if axis == len(shape) {
		v, err := toFloat(data)
		if err != nil {
			return nil, fmt.Errorf("%w: element at depth %d: %w", ErrInvalidLiteral, axis, err)
		}
		return append(out, v), nil
	}

	list, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of %d at depth %d, got %T", ErrInvalidLiteral, shape[axis], axis, data)
	}
	if len(list) != shape[axis] {
		return nil, fmt.Errorf("%w: expected %d entries at depth %d, got %d", ErrInvalidLiteral, shape[axis], axis, len(list))
	}

	var err error
	for _, item := range list {
		out, err = flatten(item, shape, axis+1, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		// JSON has no literal for these; accept the spellings JavaScript prints.
		switch n {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("not a number: %q", n)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
