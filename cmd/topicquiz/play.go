package main

import (
	"errors"
	"os"
	"strings"

	"topicquiz"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var playCmd = &cobra.Command{
	Use:   "play [category]",
	Short: "Play a quiz in the terminal",
	Long: `Start an interactive quiz. With a category argument the questions
are requested right away, otherwise you are asked to pick one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("play needs an interactive terminal; use 'topicquiz generate <category>' instead")
	}

	app, err := loadApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	quiz := app.NewQuiz()
	defer quiz.Close()

	updates := subscribe(quiz)
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		if err := quiz.SelectCategory(args[0]); err != nil {
			return err
		}
	}

	p := tea.NewProgram(newModel(quiz, updates), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// subscribe returns a channel that receives a signal after each transition.
// Signals coalesce; the model always reads the latest snapshot itself.
func subscribe(quiz *topicquiz.Quiz) <-chan struct{} {
	updates := make(chan struct{}, 1)
	quiz.Subscribe(func(topicquiz.State) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	return updates
}
