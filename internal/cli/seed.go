package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
	"github.com/avior/policyvault/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the canonical starter categories and policies",
	Long: `Load the canonical seed dataset: the RPAS, CRM, and HSE numbering
categories and their starter policies. Safe to re-run; existing records
are skipped.`,
	Run: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	res, err := core.Seed(ctx, c.Store, c.Audit)
	if err != nil {
		exitError("%v", err)
	}

	// Index the freshly seeded documents.
	if c.Search != nil && res.DocumentsCreated > 0 {
		docs, err := c.Store.ListDocuments(store.DocumentFilter{})
		if err == nil {
			for _, doc := range docs {
				indexDocument(ctx, c, doc)
			}
		}
	}

	green := color.New(color.FgGreen)
	green.Printf("Seeded %d categories and %d documents\n", res.CategoriesCreated, res.DocumentsCreated)
	if res.Skipped > 0 {
		fmt.Printf(" %d already present, skipped\n", res.Skipped)
	}
}
