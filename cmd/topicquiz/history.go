package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"topicquiz"

	"github.com/spf13/cobra"
)

var (
	historyLimit      int
	historyCategories bool
	historySet        string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent question fetch attempts",
	Long: `List the most recent attempts to fetch questions, newest first,
with their outcome and duration. With --set, print an archived question
set as JSON instead. Requires storage.db_path.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyCategories, "categories", false, "List recently played categories instead")
	historyCmd.Flags().StringVar(&historySet, "set", "", "Print the archived question set with this id")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openJournal()
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if historySet != "" {
		category, questions, err := db.GetQuestionSet(cmd.Context(), historySet)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(struct {
			Category  string                `json:"category"`
			Questions topicquiz.QuestionSet `json:"questions"`
		}{category, questions}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if historyCategories {
		categories, err := db.RecentCategories(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		for _, c := range categories {
			fmt.Fprintln(out, c)
		}
		return nil
	}

	attempts, err := db.RecentAttempts(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No fetch attempts recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tCATEGORY\tATTEMPT\tOUTCOME\tDURATION\tERROR")
	for _, a := range attempts {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\t%s\n",
			a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			a.Category,
			a.Number, topicquiz.MaxAttempts,
			a.Outcome,
			a.Duration.Round(time.Millisecond),
			a.Error,
		)
	}
	return w.Flush()
}

// openJournal opens the sqlite journal without building the question
// service, so no API key is needed
func openJournal() (*topicquiz.DB, error) {
	cfg, err := topicquiz.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.DBPath == "" {
		return nil, errors.New("no database configured; set storage.db_path")
	}

	db, err := topicquiz.OpenDB(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
