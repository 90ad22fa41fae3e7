package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/einsum/internal/progress"
	"github.com/born-ml/einsum/internal/quiz"
)

var playRounds int

// playCmd runs an interactive quiz on the terminal
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the quiz interactively",
	Long: `Asks questions at the learner's level and checks each answer.
Three correct answers in a row move up a level, two wrong ones move down.

At the prompt, type an einsum expression or one of:
  hint   show a detailed hint
  skip   show the answer and move on without scoring
  quit   end the session`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBank()
		if err != nil {
			return err
		}
		seed := cfg.ResolveSeed()
		logger.Debug("Starting session", zap.Int64("seed", seed), zap.Int("rounds", playRounds))

		_, err = playSession(cmd.InOrStdin(), cmd.OutOrStdout(), b.Questions(), playOptions{
			Rounds:     playRounds,
			Thresholds: cfg.Progress,
			Runner:     cfg.Runner(seed),
			Rand:       rand.New(rand.NewSource(seed)),
			Logger:     logger,
		})
		return err
	},
}

func init() {
	playCmd.Flags().IntVarP(&playRounds, "rounds", "n", 10, "Questions per session (0: until quit)")
}

type playOptions struct {
	Rounds     int
	Thresholds progress.Thresholds
	Runner     *quiz.Runner
	Rand       *rand.Rand
	Logger     *zap.Logger
}

// playSession runs one quiz session over in/out and returns the final state.
// It ends after opts.Rounds questions, on "quit", or at end of input.
func playSession(in io.Reader, out io.Writer, questions []*quiz.Question, opts playOptions) (progress.State, error) {
	state := progress.New()
	sel, err := progress.NewSelector(questions, opts.Rand)
	if err != nil {
		return state, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(in)
	for round := 1; opts.Rounds <= 0 || round <= opts.Rounds; round++ {
		q := sel.Next(state.Level)
		fmt.Fprintf(out, "\nQuestion %d [%s]\n%s\n", round, q.Difficulty, q.Description)
		if q.Kind == quiz.CodeBased {
			fmt.Fprintf(out, "\n%s\n", q.Code)
		}

		var done bool
		state, done = askQuestion(scanner, out, q, state, opts)
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return state, err
	}

	sum := progress.Summarize(state)
	fmt.Fprintf(out, "\nScore: %d/%d (%d%%)\n%s\n", sum.Correct, sum.Answered, sum.Percent, sum.Message)
	return state, nil
}

// askQuestion prompts until q is answered or skipped. done reports that the
// session should end.
func askQuestion(scanner *bufio.Scanner, out io.Writer, q *quiz.Question, state progress.State, opts playOptions) (_ progress.State, done bool) {
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return state, true
		}

		switch answer := strings.TrimSpace(scanner.Text()); answer {
		case "":
			continue
		case "quit":
			return state, true
		case "hint":
			for _, line := range quiz.DetailedHint(q) {
				fmt.Fprintln(out, line)
			}
			continue
		case "skip":
			fmt.Fprintf(out, "Skipped. One answer is %q.\n", q.Canonical)
			return state, false
		default:
			res, err := opts.Runner.Run(q, answer)
			if err != nil {
				opts.Logger.Error("Broken question", zap.String("question", q.ID), zap.Error(err))
				fmt.Fprintln(out, "This question cannot be checked, skipping it.")
				return state, false
			}
			printResult(out, q, res)

			before := state.Level
			state = progress.Advance(state, res.Passed, opts.Thresholds)
			switch {
			case state.Level > before:
				fmt.Fprintf(out, "Level up! Now at %s.\n", state.Level)
			case state.Level < before:
				fmt.Fprintf(out, "Level down. Now at %s.\n", state.Level)
			}
			return state, false
		}
	}
}
