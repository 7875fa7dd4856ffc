package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the policy library",
	Long:  `Run a keyword search over document titles, descriptions, and content.`,
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearch,
}

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "n", "n", 10, "Maximum number of hits")
}

func runSearch(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	if c.Search == nil {
		exitError("no search index configured; set search_url in the vault config")
	}

	query := strings.Join(args, " ")
	results, err := c.Search.Search(ctx, query, searchLimit)
	if err != nil {
		exitError("search failed: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No matches")
		return
	}

	for _, r := range results {
		doc, err := c.Store.GetDocument(r.DocumentID)
		if err != nil {
			// Indexed but since deleted; show what the index knows.
			fmt.Printf("%-12s %s (stale index entry)\n", shortID(r.DocumentID), r.Title)
			continue
		}
		printDocumentLine(doc)
	}
	color.New(color.Faint).Printf("%d hit(s) for %q\n", len(results), query)
}
