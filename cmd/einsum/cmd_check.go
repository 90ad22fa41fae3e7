package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/einsum/internal/quiz"
)

var checkQuestion string

// errIncorrect makes a wrong answer exit non-zero.
var errIncorrect = errors.New("answer is incorrect")

// checkCmd checks one answer against a bank question
var checkCmd = &cobra.Command{
	Use:   "check --question ID EXPR",
	Short: "Check an answer to a question",
	Long: `Runs the question's test cases against EXPR and explains the first
failure. Exits non-zero when the answer is wrong.

Example:
  einsum check --question trace 'jj->'`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkQuestion, "question", "q", "", "Question ID (required)")
	_ = checkCmd.MarkFlagRequired("question")
}

func runCheck(cmd *cobra.Command, args []string) error {
	b, err := loadBank()
	if err != nil {
		return err
	}
	q, ok := b.Get(checkQuestion)
	if !ok {
		return fmt.Errorf("unknown question %q", checkQuestion)
	}

	res, err := cfg.Runner(cfg.ResolveSeed()).Run(q, args[0])
	if err != nil {
		logger.Error("Broken question", zap.String("question", q.ID), zap.Error(err))
		return err
	}
	logger.Debug("Checked answer",
		zap.String("question", q.ID),
		zap.Bool("passed", res.Passed),
		zap.Int("cases", res.CasesRun))

	printResult(cmd.OutOrStdout(), q, res)
	if !res.Passed {
		return errIncorrect
	}
	return nil
}

// printResult writes the learner-facing verdict.
func printResult(w io.Writer, q *quiz.Question, res quiz.Result) {
	if res.Passed {
		fmt.Fprintln(w, "Correct!")
		if q.Explanation != "" {
			fmt.Fprintln(w, q.Explanation)
		}
		return
	}

	f := res.Failure
	fmt.Fprintln(w, f.Reason)
	if f.CaseIndex >= 0 {
		fmt.Fprintf(w, "Failed on test case %d.\n", f.CaseIndex+1)
		for i, in := range f.Inputs {
			fmt.Fprintf(w, "  input %d:  %v\n", i, in)
		}
		if f.HasActual {
			fmt.Fprintf(w, "  expected: %v\n", f.Expected)
			fmt.Fprintf(w, "  got:      %v\n", f.Actual)
		}
	}
}
