// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/store"
)

var notesCmd = &cobra.Command{
	Use:   "notes [query]",
	Short: "Search notes from archived runs",
	Long: `Notes runs a full-text search over the quotes and justifications of every
run archived with "run --save".`,
	Args: cobra.ExactArgs(1),
	RunE: runNotes,
}

func init() {
	notesCmd.Flags().String("db", ".", "directory holding the run archive database")
	notesCmd.Flags().Int("max-results", 20, "maximum number of notes to return")

	rootCmd.AddCommand(notesCmd)
}

func runNotes(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("db")
	limit, _ := cmd.Flags().GetInt("max-results")

	s, err := store.Open(dir)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.SearchNotes(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No notes found.")
		return nil
	}

	for _, r := range results {
		source := r.DocumentID
		if r.DocumentTitle != "" {
			source = r.DocumentTitle
		}
		fmt.Printf("[%s p.%d] %q\n", source, r.Page, r.Quote)
		if r.Justification != "" {
			fmt.Printf("    %s\n", r.Justification)
		}
		fmt.Println()
	}
	fmt.Printf("%d notes\n", len(results))
	return nil
}
