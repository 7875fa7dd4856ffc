package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
	"github.com/avior/policyvault/internal/models"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new policy or procedure",
	Long: `Create a new document in draft status at version 1.0. The document
number is reserved from the category's range unless --number is given.`,
	Run: runCreate,
}

var (
	createKind        string
	createCategory    string
	createNumber      int
	createTitle       string
	createDescription string
	createOwner       string
	createAckRoles    []string
	createViewRoles   []string
	createRequiresAck bool
	createActor       string
)

func init() {
	createCmd.Flags().StringVar(&createKind, "kind", models.KindPolicy, "Document kind (policy or procedure)")
	createCmd.Flags().StringVarP(&createCategory, "category", "c", "", "Category ID (required)")
	createCmd.Flags().IntVar(&createNumber, "number", 0, "Explicit document number (default: next free)")
	createCmd.Flags().StringVarP(&createTitle, "title", "t", "", "Document title (required)")
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Document description")
	createCmd.Flags().StringVar(&createOwner, "owner", "", "Owner user ID")
	createCmd.Flags().StringSliceVar(&createAckRoles, "ack-role", nil, "Role required to acknowledge (repeatable; empty = all)")
	createCmd.Flags().StringSliceVar(&createViewRoles, "view-role", nil, "Role allowed to view (repeatable; empty = all)")
	createCmd.Flags().BoolVar(&createRequiresAck, "requires-ack", false, "Flag the document as requiring acknowledgment")
	createCmd.Flags().StringVar(&createActor, "actor", "", "Acting user ID")
	createCmd.MarkFlagRequired("category")
	createCmd.MarkFlagRequired("title")
}

func runCreate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	actor := createActor
	if actor == "" {
		actor = defaultActor()
	}

	doc, err := core.CreateDocument(ctx, c.Store, c.Audit, core.CreateParams{
		Kind:        createKind,
		CategoryID:  createCategory,
		Number:      createNumber,
		Title:       createTitle,
		Description: createDescription,
		OwnerID:     createOwner,
		ViewRoles:   createViewRoles,
		AckRoles:    createAckRoles,
		RequiresAck: createRequiresAck,
		ActorID:     actor,
	})
	if err != nil {
		exitError("%v", err)
	}

	indexDocument(ctx, c, doc)

	green := color.New(color.FgGreen)
	green.Printf("Created %s\n", doc.Ref())
	fmt.Printf(" id: %s\n", doc.ID)
}
