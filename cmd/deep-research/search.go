// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/filter"
	"github.com/pdiddy/deep-research/internal/gather"
	"github.com/pdiddy/deep-research/internal/terms"
	"github.com/pdiddy/deep-research/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search and rank candidate papers without extracting",
	Long: `Search runs term expansion, provider gathering, and relevance filtering,
then prints the shortlist. Nothing is downloaded; use it to preview what a
full run would analyze.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSlice("topic", nil, "research topic (repeatable)")
	searchCmd.Flags().StringSlice("question", nil, "question to answer (repeatable)")
	searchCmd.Flags().StringSlice("keyword", nil, "relevance keyword hint (repeatable)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	topics, _ := cmd.Flags().GetStringSlice("topic")
	questions, _ := cmd.Flags().GetStringSlice("question")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")

	query := types.RunQuery{Topics: topics, Questions: questions, Keywords: keywords}
	if !query.HasSearchTerms() {
		return fmt.Errorf("provide at least one --topic or --question")
	}

	ctx := cmd.Context()
	cfg := pipelineConfig()
	runner, err := buildRunner(ctx, cfg)
	if err != nil {
		return err
	}

	expanded, err := terms.Expand(ctx, runner.Reasoner, query)
	if err != nil {
		return fmt.Errorf("expanding search terms: %w", err)
	}

	out := gather.Gather(ctx, runner.Providers, expanded, cfg.Search, logger)
	shortlist := filter.Shortlist(ctx, out.Candidates, query, runner.Embedder, runner.Reasoner, cfg.Filter, logger)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(shortlist)
	}

	formatTable(os.Stdout, shortlist, out.DupsRemoved)
	return nil
}

// formatTable writes the shortlist as a human-readable table.
func formatTable(w io.Writer, shortlist []types.Candidate, dupsRemoved int) {
	if len(shortlist) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, c := range shortlist {
		title := truncate(c.Title, 60)
		year := ""
		if !c.Published.IsZero() {
			year = fmt.Sprintf("%d", c.Published.Year())
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6.2f  %s\n",
			i+1, title, formatAuthors(c.Authors), year, c.RelevanceScore, c.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(shortlist))
	if dupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", dupsRemoved)
	}
	fmt.Fprintln(w)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
