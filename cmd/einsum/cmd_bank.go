package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/einsum/internal/bank"
	"github.com/born-ml/einsum/internal/quiz"
)

// bankCmd groups question bank commands
var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect the question bank",
}

var bankListLevel string

var bankListCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var level quiz.Difficulty
		if bankListLevel != "" {
			if err := level.UnmarshalText([]byte(bankListLevel)); err != nil {
				return err
			}
		}

		b, err := loadBank()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tLEVEL\tCASES\tDESCRIPTION")
		for _, q := range b.Questions() {
			if level != 0 && q.Difficulty != level {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", q.ID, q.Kind, q.Difficulty, 1+len(q.Extra), q.Description)
		}
		return w.Flush()
	},
}

var bankVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check stored outputs against the canonical expressions",
	Long: `Re-evaluates every stored test case with its question's canonical
expression and reports cases whose stored output disagrees.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBank()
		if err != nil {
			return err
		}

		found, err := bank.VerifyWith(cmd.Context(), b, cfg.Checker())
		if err != nil {
			return err
		}
		for _, d := range found {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		if len(found) > 0 {
			return fmt.Errorf("%d stale test case(s)", len(found))
		}

		logger.Info("Bank verified", zap.Int("questions", b.Len()))
		fmt.Fprintf(cmd.OutOrStdout(), "%d questions OK\n", b.Len())
		return nil
	},
}

func init() {
	bankListCmd.Flags().StringVarP(&bankListLevel, "difficulty", "d", "", "Only list questions at this level (easy, medium, hard)")

	bankCmd.AddCommand(bankListCmd)
	bankCmd.AddCommand(bankVerifyCmd)
}
