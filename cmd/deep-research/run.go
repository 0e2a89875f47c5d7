// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/internal/ai"
	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/extract"
	"github.com/pdiddy/deep-research/internal/gather"
	"github.com/pdiddy/deep-research/internal/materialize"
	"github.com/pdiddy/deep-research/internal/pipeline"
	"github.com/pdiddy/deep-research/internal/store"
	"github.com/pdiddy/deep-research/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full research pipeline",
	Long: `Run expands the given topics and questions into search terms, gathers and
filters candidate papers, downloads the shortlist plus any --url documents,
and streams extracted quotes as they are found. Ctrl-C stops the run; quotes
already extracted are kept.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSlice("topic", nil, "research topic (repeatable)")
	runCmd.Flags().StringSlice("question", nil, "question to answer (repeatable)")
	runCmd.Flags().StringSlice("keyword", nil, "relevance keyword hint (repeatable)")
	runCmd.Flags().StringSlice("url", nil, "explicit document URL to analyze (repeatable)")
	runCmd.Flags().String("save", "", "archive the finished run to a SQLite database in this directory")
	runCmd.Flags().String("out", "", "write the run's notes as YAML to this file")

	rootCmd.AddCommand(runCmd)
}

// buildRunner wires the pipeline from configuration. The Gemini client
// serves as both reasoner and embedder.
func buildRunner(ctx context.Context, cfg types.PipelineConfig) (*pipeline.Runner, error) {
	gemini, err := ai.NewGemini(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("creating AI client: %w", err)
	}

	searchClient := httpClient(cfg.Search.HTTPConfig)
	var providers []gather.Provider
	if cfg.Search.EnableArxiv {
		providers = append(providers, &gather.ArxivProvider{Client: searchClient})
	}
	if cfg.Search.EnableOpenAlex {
		providers = append(providers, &gather.OpenAlexProvider{Client: searchClient, Email: cfg.Search.OpenAlexEmail})
	}
	if cfg.Search.EnableSemanticScholar {
		providers = append(providers, &gather.SemanticScholarProvider{Client: searchClient, APIKey: cfg.Search.SemanticScholarAPIKey})
	}

	docClient := httpClient(cfg.Materialize.HTTPConfig)
	var converter materialize.Converter
	if cfg.Materialize.ConvertURL != "" {
		converter = &materialize.RemoteConverter{URL: cfg.Materialize.ConvertURL, Client: docClient}
	}

	return &pipeline.Runner{
		Providers: providers,
		Embedder:  gemini,
		Reasoner:  gemini,
		Materializer: &materialize.Materializer{
			Client:    docClient,
			Converter: converter,
			Cache:     cache.NewMemory(),
			Config:    cfg.Materialize,
			Logger:    logger,
		},
		Extractor: &extract.Extractor{Reasoner: gemini, Config: cfg.Extract, Logger: logger},
		Config:    cfg,
		Logger:    logger,
	}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	topics, _ := cmd.Flags().GetStringSlice("topic")
	questions, _ := cmd.Flags().GetStringSlice("question")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	urls, _ := cmd.Flags().GetStringSlice("url")

	query := types.RunQuery{
		Topics:       topics,
		Questions:    questions,
		Keywords:     keywords,
		DocumentURLs: urls,
	}
	if !query.HasSearchTerms() && len(query.DocumentURLs) == 0 {
		return fmt.Errorf("provide at least one --topic, --question, or --url")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := buildRunner(ctx, pipelineConfig())
	if err != nil {
		return err
	}

	run := runner.Start(ctx, query)
	streamEvents(run)
	run.Wait()

	snap := run.State.Snapshot()
	fmt.Printf("\nrun %s: %s", snap.ID, snap.Phase)
	if snap.Message != "" {
		fmt.Printf(" (%s)", snap.Message)
	}
	fmt.Printf(", %d notes from %d documents\n", len(snap.Notes), len(snap.Items))

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := writeNotesYAML(out, snap); err != nil {
			return err
		}
	}
	if saveDir, _ := cmd.Flags().GetString("save"); saveDir != "" {
		if err := saveRun(saveDir, snap); err != nil {
			return err
		}
	}

	if snap.Phase == types.PhaseFailed {
		return fmt.Errorf("run failed: %s", snap.Message)
	}
	return nil
}

// streamEvents prints the run's event stream until it closes.
func streamEvents(run *pipeline.Run) {
	for e := range run.Events() {
		switch e.Type {
		case pipeline.EventPhase:
			fmt.Printf("== %s\n", e.Phase)
		case pipeline.EventStatus:
			if e.Message != "" {
				fmt.Printf("   %-12s %s: %s\n", e.Status, e.ItemID, e.Message)
			} else {
				fmt.Printf("   %-12s %s\n", e.Status, e.ItemID)
			}
		case pipeline.EventNote:
			fmt.Printf("\n[%s p.%d] %q\n", e.Note.DocumentID, e.Note.Page, e.Note.Quote)
			if e.Note.Justification != "" {
				fmt.Printf("    %s\n", e.Note.Justification)
			}
			for _, c := range e.Note.Citations {
				if c.Reference != "" {
					fmt.Printf("    [%s] %s\n", c.Key, c.Reference)
				}
			}
		}
	}
}

func writeNotesYAML(path string, snap pipeline.Snapshot) error {
	data, err := yaml.Marshal(snap.Notes)
	if err != nil {
		return fmt.Errorf("marshaling notes: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("notes written to %s\n", path)
	return nil
}

func saveRun(dir string, snap pipeline.Snapshot) error {
	s, err := store.Open(dir)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SaveRun(context.Background(), snap); err != nil {
		return fmt.Errorf("archiving run: %w", err)
	}
	fmt.Printf("run archived to %s\n", dir)
	return nil
}
