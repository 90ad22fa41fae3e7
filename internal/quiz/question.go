// Package quiz models einsum questions and verifies learner answers against them.
package quiz

import (
	"encoding"
	"fmt"

	"github.com/born-ml/einsum/internal/tensor"
)

// Kind discriminates question variants.
type Kind int

const (
	Standard  Kind = iota + 1 // Checked against the primary case only.
	CodeBased                 // Checked against every case, stopping at the first failure.
)

// Difficulty is the level a question is filed under.
type Difficulty int

const (
	Easy Difficulty = iota + 1
	Medium
	Hard
)

var (
	kindNames   = [...]string{Standard: "standard", CodeBased: "code"}
	kindByName  = map[string]Kind{"standard": Standard, "code": CodeBased}
	levelNames  = [...]string{Easy: "easy", Medium: "medium", Hard: "hard"}
	levelByName = map[string]Difficulty{"easy": Easy, "medium": Medium, "hard": Hard}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Kind(0)
	_ encoding.TextMarshaler   = Kind(0)
	_ encoding.TextUnmarshaler = (*Kind)(nil)
	_ fmt.Stringer             = Difficulty(0)
	_ encoding.TextMarshaler   = Difficulty(0)
	_ encoding.TextUnmarshaler = (*Difficulty)(nil)
)

func (k Kind) isValid() bool {
	return k >= Standard && k <= CodeBased
}

// String returns "standard" or "code". Invalid values render as "Kind(n)".
func (k Kind) String() string {
	if k.isValid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.isValid() {
		return nil, fmt.Errorf("quiz: invalid kind: %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, ok := kindByName[string(text)]
	if !ok {
		return fmt.Errorf("quiz: unknown kind %q", text)
	}
	*k = v
	return nil
}

// IsValid reports whether d is one of Easy, Medium, Hard.
func (d Difficulty) IsValid() bool {
	return d >= Easy && d <= Hard
}

// String returns "easy", "medium" or "hard". Invalid values render as "Difficulty(n)".
func (d Difficulty) String() string {
	if d.IsValid() {
		return levelNames[d]
	}
	return fmt.Sprintf("Difficulty(%d)", int(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Difficulty) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("quiz: invalid difficulty: %d", int(d))
	}
	return []byte(levelNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Difficulty) UnmarshalText(text []byte) error {
	v, ok := levelByName[string(text)]
	if !ok {
		return fmt.Errorf("quiz: unknown difficulty %q", text)
	}
	*d = v
	return nil
}

// TestCase pairs input tensors with the output stored by the question author.
type TestCase struct {
	Inputs []tensor.Tensor `json:"inputs"`
	Output tensor.Tensor   `json:"output"`
}

// Question is immutable reference data.
//
// Canonical is the ground truth: the runner recomputes expected outputs from
// it on every check and never trusts the stored Output literals.
type Question struct {
	ID          string
	Kind        Kind
	Description string
	Difficulty  Difficulty
	Canonical   string
	Code        string // CodeBased only: the loop the learner should replace.
	Primary     TestCase
	Extra       []TestCase // Authored cases after the primary one. Only CodeBased questions run them.
	Hint        string
	Explanation string
}
