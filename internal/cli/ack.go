package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
)

var ackCmd = &cobra.Command{
	Use:   "ack <id | CATEGORY-NUMBER>",
	Short: "Record an acknowledgment for a document",
	Long: `Record that a user has read and accepted the document's current
version. The acknowledgment expires after one year unless configured
otherwise.`,
	Args: cobra.ExactArgs(1),
	Run:  runAck,
}

var (
	ackUser    string
	ackMethod  string
	ackRole    string
	ackVersion string
)

func init() {
	ackCmd.Flags().StringVarP(&ackUser, "user", "u", "", "Acknowledging user ID (required)")
	ackCmd.Flags().StringVar(&ackMethod, "method", "", "Signature method: typed, drawn, or clicked")
	ackCmd.Flags().StringVar(&ackRole, "role", "", "User's role, checked against the document's audience")
	ackCmd.Flags().StringVar(&ackVersion, "version", "", "Version being acknowledged (default: current)")
	ackCmd.MarkFlagRequired("user")
}

func runAck(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	doc := resolveDocument(c, args[0])

	opts := core.AckOptions{Method: ackMethod, Role: ackRole}
	if days := c.Config.AckExpiryDays; days > 0 {
		opts.ExpiresAt = time.Now().UTC().AddDate(0, 0, days)
	}

	ack, err := core.RecordAcknowledgment(ctx, c.Store, c.Audit, doc.ID, ackVersion, ackUser, opts)
	if err != nil {
		exitError("%v", err)
	}

	color.New(color.FgGreen).Printf("Acknowledged %s v%s for user %s\n",
		doc.CategoryID+"-"+fmt.Sprint(doc.Number), ack.DocumentVersion, ack.UserID)
	if days, ok := ack.DaysUntilExpiry(time.Now().UTC()); ok {
		fmt.Printf(" expires in %d days\n", days)
	}
}
