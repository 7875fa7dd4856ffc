package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Run:   runList,
}

var (
	listCategory string
	listStatus   string
	listKind     string
)

func init() {
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "Filter by category")
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by status")
	listCmd.Flags().StringVar(&listKind, "kind", "", "Filter by kind (policy or procedure)")
}

func runList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	if listStatus != "" && !models.Status(listStatus).Valid() {
		exitError("unknown status %q", listStatus)
	}

	docs, err := c.Store.ListDocuments(store.DocumentFilter{
		CategoryID: listCategory,
		Status:     models.Status(listStatus),
		Kind:       listKind,
	})
	if err != nil {
		exitError("failed to list documents: %v", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents")
		return
	}

	for _, doc := range docs {
		printDocumentLine(doc)
	}
}
