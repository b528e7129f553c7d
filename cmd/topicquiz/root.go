package main

import (
	"fmt"
	"os"

	"topicquiz"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "topicquiz",
	Short: "Multiple choice quizzes on any topic",
	Long: `topicquiz asks a language model for five multiple choice questions
about a topic you pick, then quizzes you on them one at a time.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, args)
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

// loadApp reads the config and builds the app. Interactive commands pass
// quiet so log lines never land on the terminal the TUI is drawing to.
func loadApp(quiet bool) (*topicquiz.App, error) {
	cfg, err := topicquiz.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	var logger *zap.Logger
	if quiet && cfg.Log.File == "" {
		logger = zap.NewNop()
	} else {
		logger, err = topicquiz.NewLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	return topicquiz.NewApp(cfg, logger)
}
