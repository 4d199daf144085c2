package cli

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/journal"
)

// recordHeaders — колонки вывода записей журнала и событий.
var recordHeaders = []string{"ID", "ROBOT", "DOMAIN", "TASK", "STATUS", "SUCCESS", "FILES", "CALLBACK", "RECEIVED", "DURATION"}

// recordRow форматирует запись журнала в строку таблицы.
func recordRow(rec domain.InvocationRecord) []string {
	task := ""
	if rec.TaskID > 0 {
		task = strconv.Itoa(rec.TaskID)
	}
	files := make([]string, len(rec.FileIDs))
	for i, id := range rec.FileIDs {
		files[i] = string(id)
	}

	return []string{
		rec.ID.String(),
		rec.Robot,
		rec.Domain,
		task,
		strconv.Itoa(rec.StatusCode),
		strconv.FormatBool(rec.Success),
		strings.Join(files, ","),
		rec.Callback,
		rec.ReceivedAt.Format(time.RFC3339),
		rec.Duration.Round(time.Millisecond).String(),
	}
}

// NewJournalCmd создаёт группу команд чтения журнала вызовов.
func NewJournalCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the invocation journal",
	}

	cmd.AddCommand(newJournalListCmd(env))

	return cmd
}

func newJournalListCmd(env *Env) *cobra.Command {
	var dbURL string
	var filter journal.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent robot invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbURL == "" {
				dbURL = os.Getenv("DB_URL")
			}
			out := env.Output()

			pool, err := journal.NewPool(cmd.Context(), dbURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			records, err := journal.NewRepo(pool).List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			rows := make([][]string, len(records))
			for i, rec := range records {
				rows[i] = recordRow(rec)
			}
			out.Print(recordHeaders, rows, records)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db-url", "", "Journal database DSN (default: $DB_URL)")
	cmd.Flags().StringVar(&filter.Robot, "robot", "", "Filter by robot code")
	cmd.Flags().StringVar(&filter.Domain, "domain", "", "Filter by portal domain")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum number of records")

	return cmd
}
