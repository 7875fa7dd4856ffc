package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
	"github.com/avior/policyvault/internal/models"
)

var workflowActor string

var submitCmd = &cobra.Command{
	Use:   "submit <id | CATEGORY-NUMBER>",
	Short: "Advance a document toward approval",
	Long: `Move a draft to pending_review, or a pending_review document to
pending_approval.`,
	Args: cobra.ExactArgs(1),
	Run:  makeTransitionRunner(""),
}

var approveCmd = &cobra.Command{
	Use:   "approve <id | CATEGORY-NUMBER>",
	Short: "Approve a pending document, making it active",
	Args:  cobra.ExactArgs(1),
	Run:   makeTransitionRunner(core.TransitionApprove),
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id | CATEGORY-NUMBER>",
	Short: "Reject a pending document back to draft",
	Args:  cobra.ExactArgs(1),
	Run:   makeTransitionRunner(core.TransitionReject),
}

var retireCmd = &cobra.Command{
	Use:   "retire <id | CATEGORY-NUMBER>",
	Short: "Retire an active document",
	Args:  cobra.ExactArgs(1),
	Run:   makeTransitionRunner(core.TransitionRetire),
}

func init() {
	for _, cmd := range []*cobra.Command{submitCmd, approveCmd, rejectCmd, retireCmd} {
		cmd.Flags().StringVar(&workflowActor, "actor", "", "Acting user ID")
	}
}

// makeTransitionRunner builds the Run function for a lifecycle command.
// An empty transition means "submit", which picks the right submit step
// from the document's current status.
func makeTransitionRunner(tr core.Transition) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c := initFullContext()
		defer c.Close()

		doc := resolveDocument(c, args[0])

		actor := workflowActor
		if actor == "" {
			actor = defaultActor()
		}

		transition := tr
		if transition == "" {
			if doc.Status == models.StatusPendingReview {
				transition = core.TransitionSubmitForApproval
			} else {
				transition = core.TransitionSubmitForReview
			}
		}

		doc, err := core.ApplyTransition(ctx, c.Store, c.Audit, doc.ID, transition, actor)
		if err != nil {
			exitError("%v", err)
		}

		// Retired documents drop out of the library search index.
		if transition == core.TransitionRetire {
			removeFromIndex(ctx, c, doc.ID)
		} else {
			indexDocument(ctx, c, doc)
		}

		green := color.New(color.FgGreen)
		green.Printf("%s is now ", doc.Ref())
		statusColor(doc.Status).Printf("%s\n", doc.Status)
	}
}
