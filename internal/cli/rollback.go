package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <id | CATEGORY-NUMBER> <snapshot-id>",
	Short: "Restore a document's content from a snapshot",
	Long: `Restore a document's tracked fields from a version snapshot. The state
being discarded is snapshotted first, and the version always advances to
the next major number; snapshot version numbers are never reused.`,
	Args: cobra.ExactArgs(2),
	Run:  runRollback,
}

var rollbackActor string

func init() {
	rollbackCmd.Flags().StringVar(&rollbackActor, "actor", "", "Acting user ID")
}

func runRollback(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	doc := resolveDocument(c, args[0])

	actor := rollbackActor
	if actor == "" {
		actor = defaultActor()
	}

	doc, err := core.RollbackToVersion(ctx, c.Store, c.Audit, doc.ID, args[1], actor)
	if err != nil {
		exitError("%v", err)
	}

	indexDocument(ctx, c, doc)

	color.New(color.FgGreen).Printf("Rolled back %s\n", doc.Ref())
}
