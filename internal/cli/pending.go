package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List documents a user still has to acknowledge",
	Run:   runPending,
}

var (
	pendingUser string
	pendingRole string
)

func init() {
	pendingCmd.Flags().StringVarP(&pendingUser, "user", "u", "", "User ID (required)")
	pendingCmd.Flags().StringVar(&pendingRole, "role", "", "User's role")
	pendingCmd.MarkFlagRequired("user")
}

func runPending(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	docs, err := core.PendingAcknowledgments(c.Store, pendingUser, pendingRole)
	if err != nil {
		exitError("failed to compute pending acknowledgments: %v", err)
	}

	if len(docs) == 0 {
		fmt.Printf("Nothing pending for %s\n", pendingUser)
		return
	}

	fmt.Printf("Pending acknowledgments for %s:\n", pendingUser)
	for _, doc := range docs {
		printDocumentLine(doc)
	}
}
