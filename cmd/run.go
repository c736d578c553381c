package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/trenderhq/trender/core"
	"github.com/trenderhq/trender/internal/githubclient"
	"github.com/trenderhq/trender/internal/warehouse"
	"github.com/trenderhq/trender/schema"
)

// runCmd executes one full collection pipeline.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full collection pipeline once.",
	Long: `Discover repositories, enrich and score them, and load ranked
snapshots into the warehouse.

The pipeline runs in stages:
- Search each configured language for recently pushed repositories
- Search the deployment-marker ecosystem (marker file, official orgs, topics)
- Fetch READMEs and marker files, score data quality, write staging rows
- Extract the qualifying cohort, compute momentum and ranks
- Load dimension and fact rows for today's snapshot

Examples:
  # Full run with defaults
  trender run

  # Small run for local development
  trender run --dev-mode

  # Narrow the cohort
  trender run --languages Go --per-run-repo-limit 25`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := executeRun(); err != nil {
			logrus.WithError(err).Fatal("Pipeline run failed")
		}
	},
}

func executeRun() error {
	pool, err := warehouse.Connect(rootCtx, cfg)
	if err != nil {
		return err
	}
	store := warehouse.New(pool)
	defer store.Close()

	var opts []githubclient.Option
	opts = append(opts, githubclient.WithReadmeMaxChars(cfg.ReadmeMaxChars))
	if cfg.CachePath != "" {
		fc, err := githubclient.OpenFetchCache(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("open fetch cache: %w", err)
		}
		// Entries are day-keyed, so anything before today is dead weight.
		if err := fc.Prune(time.Now().Format("2006-01-02")); err != nil {
			logrus.WithError(err).Warn("Fetch cache prune failed")
		}
		opts = append(opts, githubclient.WithFetchCache(fc))
	}
	client := githubclient.NewClient(cfg.GitHubToken, opts...)
	defer func() { _ = client.Close() }()

	pipeline := core.NewPipeline(client, store, cfg)
	summary, err := pipeline.Run(rootCtx)
	printRunSummary(summary)
	return err
}

// printRunSummary renders the run outcome as a small table.
func printRunSummary(summary schema.RunSummary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	outcome := green("ok")
	if !summary.Success {
		outcome = red("failed")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Repos", "Elapsed (s)", "Languages", "Outcome"})
	data := [][]string{{
		strconv.Itoa(summary.ReposProcessed),
		fmt.Sprintf("%.1f", summary.ElapsedSeconds),
		strings.Join(summary.Languages, ", "),
		outcome,
	}}
	if err := table.Bulk(data); err != nil {
		logrus.WithError(err).Warn("Summary table render failed")
		return
	}
	if err := table.Render(); err != nil {
		logrus.WithError(err).Warn("Summary table render failed")
	}
}
