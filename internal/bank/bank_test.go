package bank

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/einsum/internal/check"
	"github.com/born-ml/einsum/internal/quiz"
	"github.com/born-ml/einsum/internal/tensor"
)

const dotBank = `questions:
  - id: dot
    kind: standard
    difficulty: easy
    einsum: "i,i->"
    description: Dot product.
    inputs:
      - {shape: [3], data: [1, 2, 3]}
      - {shape: [3], data: [4, 5, 6]}
    output: {shape: [], data: 32}
`

const codeBank = `questions:
  - id: rows
    kind: code
    difficulty: medium
    einsum: "ij->i"
    description: Row sums.
    code: |
      for i := range m {
      	for j := range m[i] {
      		out[i] += m[i][j]
      	}
      }
    inputs:
      - {shape: [2, 2], data: [[1, 2], [3, 4]]}
    output: {shape: [2], data: [3, 7]}
    test_cases:
      - inputs:
          - {data: [[1, 1, 1]]}
        output: {data: [3]}
`

func TestDefaultBank(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)
	require.Greater(t, b.Len(), 10)

	kinds := map[quiz.Kind]int{}
	levels := map[quiz.Difficulty]int{}
	for _, q := range b.Questions() {
		assert.NoError(t, quiz.Validate(q), q.ID)
		assert.NotEmpty(t, q.Description, q.ID)
		assert.NotEmpty(t, q.Hint, q.ID)
		kinds[q.Kind]++
		levels[q.Difficulty]++
	}
	assert.Positive(t, kinds[quiz.Standard])
	assert.Positive(t, kinds[quiz.CodeBased])
	assert.Len(t, levels, 3, "every level is populated")

	q, ok := b.Get("trace")
	require.True(t, ok)
	assert.Equal(t, "ii->", q.Canonical)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, b, again)
}

// Every stored case must agree with its canonical expression, and the
// canonical expression must pass its own question.
func TestDefaultBankRoundTrip(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	bad, err := Verify(context.Background(), b)
	require.NoError(t, err)
	assert.Empty(t, bad)

	for _, q := range b.Questions() {
		res, err := quiz.RunTestCases(q, q.Canonical)
		require.NoError(t, err, q.ID)
		assert.True(t, res.Passed, q.ID)
	}
}

func TestParse(t *testing.T) {
	b, err := Parse([]byte(codeBank))
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())

	q, ok := b.Get("rows")
	require.True(t, ok)
	assert.Equal(t, quiz.CodeBased, q.Kind)
	assert.Equal(t, quiz.Medium, q.Difficulty)
	assert.Contains(t, q.Code, "out[i] += m[i][j]")
	require.Len(t, q.Extra, 1)
	assert.Equal(t, tensor.Shape{1, 3}, q.Extra[0].Inputs[0].Shape())
	assert.Equal(t, tensor.Shape{2}, q.Primary.Output.Shape())

	_, ok = b.Get("missing")
	assert.False(t, ok)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "questions: []\n", "questions"},
		{"unknown kind", strings.Replace(dotBank, "kind: standard", "kind: essay", 1), "kind"},
		{"unknown level", strings.Replace(dotBank, "difficulty: easy", "difficulty: extreme", 1), "difficulty"},
		{"bad einsum", strings.Replace(dotBank, `"i,i->"`, `"i,i"`, 1), "einsum"},
		{"code without code", strings.Replace(dotBank, "kind: standard", "kind: code", 1), "code"},
		{"missing output", strings.Replace(dotBank, "    output: {shape: [], data: 32}\n", "", 1), "output"},
		{"unknown field", strings.Replace(dotBank, "    description:", "    answer: x\n    description:", 1), "answer"},
		{"bad literal", strings.Replace(dotBank, "[1, 2, 3]", "[1, 2]", 1), "invalid literal"},
		{"canonical fails", strings.Replace(dotBank, `"i,i->"`, `"ij,i->"`, 1), "rank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidBank)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDuplicateID(t *testing.T) {
	body := strings.TrimPrefix(dotBank, "questions:\n")
	_, err := Parse([]byte(dotBank + body))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestLoad(t *testing.T) {
	_, err := Load(t.TempDir() + "/nope.yaml")
	assert.Error(t, err)

	b, err := LoadOrDefault("")
	require.NoError(t, err)
	def, _ := Default()
	assert.Same(t, def, b)
}

func TestVerifyReportsStaleOutput(t *testing.T) {
	stale := strings.Replace(codeBank, "output: {data: [3]}", "output: {data: [4]}", 1)
	b, err := Parse([]byte(stale))
	require.NoError(t, err, "stale outputs are data, not structure")

	bad, err := Verify(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, "rows", bad[0].QuestionID)
	assert.Equal(t, 1, bad[0].CaseIndex)
	assert.Equal(t, check.ValueMismatch, bad[0].Verdict.Mismatch)
	assert.Contains(t, bad[0].String(), "rows case 1")
}

func TestVerifyCancelled(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Verify(ctx, b)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrInvalidBank)

	_, err = New(&quiz.Question{ID: "x", Kind: quiz.Standard, Difficulty: quiz.Easy, Canonical: "i->"})
	assert.ErrorIs(t, err, ErrInvalidBank, "primary case has no inputs")
}
