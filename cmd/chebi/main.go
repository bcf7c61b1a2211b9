package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/chebi/internal/api"
	"github.com/pbaille/chebi/internal/config"
	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
	"github.com/pbaille/chebi/internal/logger/console"
	"github.com/pbaille/chebi/internal/ontology"
	"github.com/pbaille/chebi/internal/predict"
	"github.com/pbaille/chebi/internal/propstore"
	"github.com/pbaille/chebi/internal/report"
	"github.com/pbaille/chebi/internal/retry"
	"github.com/pbaille/chebi/internal/store"
	"github.com/pbaille/chebi/internal/syncer"
)

var (
	configPath string
	debug      bool
	cfg        *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "chebi",
		Short:        "Incremental ChEBI mirror and search report tables",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if debug {
				c.Debug = true
			}
			cfg = c
			logger.Init(console.New(console.Params{Debug: cfg.Debug}))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./chebi.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(tableCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(releasesCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getHistory() (*store.Store, error) {
	return store.New(cfg.HistoryDB)
}

func getProvider() *ontology.HTTPProvider {
	return ontology.NewHTTPProvider(
		cfg.Ontology.LatestURL,
		cfg.Ontology.ArchiveURL,
		cfg.Ontology.Timeout,
		retry.Policy{MaxAttempts: cfg.Ontology.MaxAttempts, Interval: cfg.Ontology.RetryDelay},
	)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func syncCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Bring the local property files up to the latest ontology release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			history, err := getHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			client := predict.New(predict.Config{
				SubmitURL:      cfg.Predict.SubmitURL,
				FetchURL:       cfg.Predict.FetchURL,
				ModelID:        cfg.Predict.ModelID,
				RequestTimeout: cfg.Predict.RequestTimeout,
				PollInterval:   cfg.Predict.PollInterval,
				MaxAttempts:    cfg.Predict.MaxAttempts,
				Deadline:       cfg.Predict.Deadline,
			})
			s := syncer.New(
				getProvider(),
				propstore.New(cfg.DataDir),
				propstore.NewVersionFile(cfg.VersionFile),
				client,
				history,
			)

			out, err := s.Run(ctx, syncer.Options{DryRun: dryRun})
			if err != nil {
				return err
			}

			fmt.Printf("State:   %s\n", out.State)
			fmt.Printf("Local:   %s\n", displayVersion(out.Local))
			fmt.Printf("Remote:  %s\n", out.Remote)
			if out.State == domain.StateUpToDate {
				return nil
			}
			fmt.Printf("Ontology: %s\n", out.Summary)
			fmt.Printf("New names: %d, new structures: %d\n", out.NewNames, out.NewSmiles)
			if dryRun {
				fmt.Println("(dry run, nothing written)")
				return nil
			}
			fmt.Printf("Prediction errors: %d\n", out.PredictionErrors)
			if out.RunID != "" {
				fmt.Printf("Run: %s\n", out.RunID[:8])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the deltas without writing anything")
	return cmd
}

func tableCmd() *cobra.Command {
	var input, inputType string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Build TF-IDF report tables from search hit files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := report.ParseInputType(inputType)
			if err != nil {
				return err
			}

			corpus, err := report.LoadCorpus(cfg.SearchesDir)
			if err != nil {
				return err
			}
			props, err := report.LoadProperties(propstore.New(cfg.DataDir), report.TableKinds...)
			if err != nil {
				return err
			}

			g := &report.Generator{Corpus: corpus, Props: props, TablesDir: cfg.TablesDir}
			results, err := g.Run(input, t)
			for _, r := range results {
				fmt.Printf("%s: %d rows, %d skipped -> %s\n", r.Term, r.Rows, r.Failed, r.Path)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "hit file or folder of hit files")
	cmd.Flags().StringVarP(&inputType, "type", "t", "", "input type: file or folder")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("type")
	return cmd
}

func statusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the local ontology version and recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vf := propstore.NewVersionFile(cfg.VersionFile)
			local, err := vf.Read()
			if err != nil {
				logger.Debug("no local version", "file", vf.Path(), "err", err)
			}
			fmt.Printf("Local version: %s\n", displayVersion(local))

			history, err := getHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			runs, err := history.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No sync runs recorded.")
				return nil
			}

			fmt.Println()
			for _, r := range runs {
				fmt.Printf("[%s] %s  %s -> %s  %s\n",
					r.ID[:8],
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					displayVersion(r.OldVersion),
					displayVersion(r.NewVersion),
					r.State,
				)
				if r.Error != "" {
					fmt.Printf("           error: %s\n", r.Error)
					continue
				}
				fmt.Printf("           +%d terms, +%d edges, %d names, %d structures, %d prediction errors\n",
					r.NodeDelta, r.EdgeDelta, r.NewNames, r.NewSmiles, r.PredictionErrors)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func releasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "releases",
		Short: "List archived ontology releases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			tags, err := getProvider().Releases(ctx, cfg.Ontology.ArchiveIndex)
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Println(t)
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			history, err := getHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			if addr == "" {
				addr = cfg.Serve.Addr
			}
			server := api.New(history, propstore.New(cfg.DataDir), propstore.NewVersionFile(cfg.VersionFile), addr)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func displayVersion(v domain.VersionTag) string {
	if v == "" {
		return domain.Sentinel
	}
	return string(v)
}
