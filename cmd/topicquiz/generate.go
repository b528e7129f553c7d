package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate <category>",
	Short: "Generate a question set and print it as JSON",
	Long: `Fetch one validated set of questions for a category, using the same
retry policy as the interactive quiz, and write it as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write JSON to this file instead of stdout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	category := strings.TrimSpace(args[0])
	if category == "" {
		return fmt.Errorf("category must not be empty")
	}

	app, err := loadApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	questions, err := app.Fetcher.Fetch(ctx, category)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding questions: %w", err)
	}
	data = append(data, '\n')

	if generateOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(generateOutput, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", generateOutput, err)
	}
	app.Log.Info("questions written", zap.String("path", generateOutput), zap.Int("count", len(questions)))
	return nil
}
