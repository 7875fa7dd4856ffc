package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <id | CATEGORY-NUMBER>",
	Short: "Snapshot a document's current state",
	Long: `Append a manual snapshot of the document's current content to the
version ledger without changing the document or its version.`,
	Args: cobra.ExactArgs(1),
	Run:  runSnapshot,
}

var (
	snapshotNote  string
	snapshotActor string
)

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotNote, "note", "m", "", "Note stored on the snapshot")
	snapshotCmd.Flags().StringVar(&snapshotActor, "actor", "", "Acting user ID")
}

func runSnapshot(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	doc := resolveDocument(c, args[0])

	actor := snapshotActor
	if actor == "" {
		actor = defaultActor()
	}

	snap, err := core.CreateSnapshot(ctx, c.Store, doc.ID, snapshotNote, actor)
	if err != nil {
		exitError("%v", err)
	}

	color.New(color.FgGreen).Printf("Snapshotted %s as %s\n", doc.Ref(), shortID(snap.ID))
}
