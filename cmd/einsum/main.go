// Package main provides the einsum quiz CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/einsum/internal/bank"
	"github.com/born-ml/einsum/internal/config"
	"github.com/born-ml/einsum/internal/logging"
)

const version = "v0.1.0-dev"

var (
	// Global flags
	verbose    bool
	configPath string
	bankPath   string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "einsum",
	Short: "Einsum notation quiz and answer checker",
	Long: `einsum checks einsum expressions against a bank of questions.

An answer is correct when it produces the same tensor as the question's
canonical expression on every test case, so relabelled answers such as
"ab,bc->ac" for "ij,jk->ik" are accepted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if bankPath != "" {
			cfg.Bank.Path = bankPath
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "einsum %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "einsum.yaml", "Config file (missing file: defaults)")
	rootCmd.PersistentFlags().StringVar(&bankPath, "bank", "", "Question bank file (default: embedded bank, or EINSUM_BANK)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadBank loads the configured bank.
func loadBank() (*bank.Bank, error) {
	b, err := bank.LoadOrDefault(cfg.Bank.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Question bank loaded", zap.String("path", cfg.Bank.Path), zap.Int("questions", b.Len()))
	return b, nil
}
