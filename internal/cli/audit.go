package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit [id | CATEGORY-NUMBER]",
	Short: "Show the audit trail",
	Long: `Show the audit ledger: every record mutation with actor and timestamp.
With a document argument, only that document's trail is shown.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAudit,
}

var auditLimit int

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "n", "n", 50, "Limit the number of entries to show")
}

func runAudit(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	var entries []*audit.Entry
	var err error
	if len(args) == 1 {
		doc := resolveDocument(c, args[0])
		entries, err = c.Audit.ByDocument(doc.ID)
	} else {
		entries, err = c.Audit.Recent(auditLimit)
	}
	if err != nil {
		exitError("failed to read audit ledger: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries")
		return
	}

	cyan := color.New(color.FgCyan)
	for _, e := range entries {
		fmt.Printf("%s  ", e.Timestamp.Local().Format(time.RFC822))
		cyan.Printf("%-20s", e.Action)
		fmt.Printf(" %-16s %s", e.Actor, shortID(e.DocumentID))
		if e.Detail != "" {
			fmt.Printf("  %s", e.Detail)
		}
		fmt.Println()
	}
}
