package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/einsum/internal/tensor"
)

var evalJSON bool

// evalCmd evaluates a free-form expression
var evalCmd = &cobra.Command{
	Use:   "eval EXPR [TENSOR...]",
	Short: "Evaluate an einsum expression",
	Long: `Evaluates an einsum expression on tensor literals.

A tensor is either a nested JSON array or a {"shape": ..., "data": ...}
object.

Example:
  einsum eval 'ij,jk->ik' '[[1,2,3],[4,5,6]]' '[[7,8],[9,10],[11,12]]'
  einsum eval 'ii->' '{"shape":[2,2],"data":[[1,2],[3,4]]}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "Print the result as a JSON literal")
}

func runEval(cmd *cobra.Command, args []string) error {
	inputs := make([]tensor.Tensor, 0, len(args)-1)
	for i, arg := range args[1:] {
		t, err := parseTensorArg(arg)
		if err != nil {
			return fmt.Errorf("tensor %d: %w", i, err)
		}
		inputs = append(inputs, t)
	}

	out, err := cfg.Evaluator().ParseAndEvaluate(args[0], inputs...)
	if err != nil {
		return err
	}

	if evalJSON {
		b, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "shape %v\n%v\n", out.Shape(), out)
	return nil
}

func parseTensorArg(arg string) (tensor.Tensor, error) {
	var t tensor.Tensor
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "{") {
		err := json.Unmarshal([]byte(arg), &t)
		return t, err
	}

	var data any
	if err := json.Unmarshal([]byte(arg), &data); err != nil {
		return t, fmt.Errorf("%w: %w", tensor.ErrInvalidLiteral, err)
	}
	return tensor.FromNested(nil, data)
}
