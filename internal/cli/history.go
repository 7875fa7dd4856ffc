package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
)

var historyCmd = &cobra.Command{
	Use:   "history <id | CATEGORY-NUMBER>",
	Short: "Show a document's version ledger",
	Long:  `Display the document's version snapshots, newest first.`,
	Args:  cobra.ExactArgs(1),
	Run:   runHistory,
}

var historyOneline bool

func init() {
	historyCmd.Flags().BoolVar(&historyOneline, "oneline", false, "Show each snapshot on a single line")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	doc := resolveDocument(c, args[0])

	snaps, err := core.ListSnapshots(c.Store, doc.ID)
	if err != nil {
		exitError("failed to list snapshots: %v", err)
	}

	fmt.Printf("%s  (current version %s)\n", doc.Ref(), doc.Version)
	if len(snaps) == 0 {
		fmt.Println("No snapshots yet")
		return
	}

	yellow := color.New(color.FgYellow)
	for _, snap := range snaps {
		if historyOneline {
			yellow.Printf("%s ", shortID(snap.ID))
			fmt.Printf("v%-6s %s\n", snap.Version, snap.Note)
			continue
		}

		yellow.Printf("snapshot %s\n", snap.ID)
		fmt.Printf("Version: %s\n", snap.Version)
		fmt.Printf("Date:    %s\n", snap.CreatedAt.Local().Format(time.RFC822))
		if snap.CreatedBy != "" {
			fmt.Printf("Author:  %s\n", snap.CreatedBy)
		}
		if len(snap.ChangedFields) > 0 {
			fmt.Printf("Changed: %s\n", strings.Join(snap.ChangedFields, ", "))
		}
		if snap.Note != "" {
			fmt.Printf("\n    %s\n", snap.Note)
		}
		fmt.Println()
	}
}
