// Package bank loads and validates einsum question banks.
//
// A bank is a YAML document with a top-level "questions" list. Each record
// carries the canonical expression, the primary case and optional extra cases
// as tensor literals:
//
//	questions:
//	  - id: trace
//	    kind: standard
//	    difficulty: easy
//	    einsum: "ii->"
//	    description: Compute the trace of the matrix.
//	    inputs:
//	      - {shape: [2, 2], data: [[1, 2], [3, 4]]}
//	    output: {shape: [], data: 5}
//
// A default bank is embedded in the binary.
package bank

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/quiz"
	"github.com/born-ml/einsum/internal/tensor"
)

//go:embed default.yaml
var defaultYAML []byte

// Sentinel errors.
var (
	ErrInvalidBank = errors.New("bank: invalid question bank")
	ErrDuplicateID = errors.New("bank: duplicate question id")
)

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
	_ = v.RegisterValidation("einsum", func(fl validator.FieldLevel) bool {
		_, err := einsum.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

type document struct {
	Questions []record `yaml:"questions" validate:"required,min=1,dive"`
}

type record struct {
	ID          string          `yaml:"id" validate:"required,max=64"`
	Kind        string          `yaml:"kind" validate:"required,oneof=standard code"`
	Description string          `yaml:"description" validate:"required"`
	Difficulty  string          `yaml:"difficulty" validate:"required,oneof=easy medium hard"`
	Einsum      string          `yaml:"einsum" validate:"required,einsum"`
	Code        string          `yaml:"code" validate:"required_if=Kind code"`
	Inputs      []tensor.Tensor `yaml:"inputs" validate:"required,min=1"`
	Output      *tensor.Tensor  `yaml:"output" validate:"required"`
	TestCases   []caseRecord    `yaml:"test_cases" validate:"omitempty,dive"`
	Hint        string          `yaml:"hint"`
	Explanation string          `yaml:"explanation"`
}

type caseRecord struct {
	Inputs []tensor.Tensor `yaml:"inputs" validate:"required,min=1"`
	Output *tensor.Tensor  `yaml:"output" validate:"required"`
}

func (r *record) question() (*quiz.Question, error) {
	q := &quiz.Question{
		ID:          r.ID,
		Description: strings.TrimSpace(r.Description),
		Canonical:   r.Einsum,
		Code:        r.Code,
		Primary:     quiz.TestCase{Inputs: r.Inputs, Output: *r.Output},
		Hint:        strings.TrimSpace(r.Hint),
		Explanation: strings.TrimSpace(r.Explanation),
	}
	if err := q.Kind.UnmarshalText([]byte(r.Kind)); err != nil {
		return nil, err
	}
	if err := q.Difficulty.UnmarshalText([]byte(r.Difficulty)); err != nil {
		return nil, err
	}
	for _, tc := range r.TestCases {
		q.Extra = append(q.Extra, quiz.TestCase{Inputs: tc.Inputs, Output: *tc.Output})
	}
	return q, nil
}

// Bank is an immutable, ordered set of questions.
type Bank struct {
	questions []*quiz.Question
	byID      map[string]*quiz.Question
}

// New builds a bank from already constructed questions. Every question must
// pass quiz.Validate and IDs must be unique.
func New(questions ...*quiz.Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidBank)
	}
	b := &Bank{byID: make(map[string]*quiz.Question, len(questions))}
	for _, q := range questions {
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, q.ID)
		}
		if err := quiz.Validate(q); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBank, err)
		}
		b.byID[q.ID] = q
		b.questions = append(b.questions, q)
	}
	return b, nil
}

// Parse decodes and validates a YAML bank. Unknown keys are rejected.
func Parse(data []byte) (*Bank, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBank, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBank, describe(err))
	}

	questions := make([]*quiz.Question, 0, len(doc.Questions))
	for i := range doc.Questions {
		q, err := doc.Questions[i].question()
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %w", ErrInvalidBank, i, err)
		}
		questions = append(questions, q)
	}
	return New(questions...)
}

// Load reads and parses the bank at path.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bank: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

var loadDefault = sync.OnceValues(func() (*Bank, error) {
	return Parse(defaultYAML)
})

// Default returns the embedded bank. It is parsed once.
func Default() (*Bank, error) {
	return loadDefault()
}

// LoadOrDefault loads path, or returns the embedded bank when path is empty.
func LoadOrDefault(path string) (*Bank, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Questions returns the questions in file order. The slice is a copy; the
// questions themselves are shared and must not be modified.
func (b *Bank) Questions() []*quiz.Question {
	return append([]*quiz.Question(nil), b.questions...)
}

// Get looks a question up by ID.
func (b *Bank) Get(id string) (*quiz.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// describe flattens validator errors into one line per field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
