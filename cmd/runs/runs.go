// Package runs implements the scrape-run history command.
package runs

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/common"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
)

var limit int

// Cmd represents the runs command.
var Cmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent scrape runs",
	Long:  `Shows the most recent scrape runs with their stage counts and status, newest first.`,
	RunE:  listRuns,
}

func init() {
	Cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
}

func listRuns(cmd *cobra.Command, _ []string) error {
	deps, err := cmdcommon.NewDeps(cmd.Context())
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	runs, err := deps.Runs.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No scrape runs recorded.")
		return nil
	}

	renderRuns(os.Stdout, runs)

	return nil
}

// renderRuns formats the runs as a table.
func renderRuns(w io.Writer, runs []domain.ScrapeRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Seed URL", "Status", "Pages", "PDFs", "Entities", "Price Changes", "Errors", "Started"})

	for i := range runs {
		run := &runs[i]

		t.AppendRow(table.Row{
			shortID(run.ID),
			run.SeedURL,
			run.Status,
			run.PagesFound,
			run.PdfsFound,
			run.Entities,
			run.PriceChanges,
			run.ErrorCount,
			run.StartedAt.Format(time.DateTime),
		})
	}

	t.Render()
}

// shortID abbreviates a uuid for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
