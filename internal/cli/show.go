package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id | CATEGORY-NUMBER>",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

func runShow(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	doc := resolveDocument(c, args[0])

	bold := color.New(color.Bold)
	bold.Printf("%s-%d  %s\n", doc.CategoryID, doc.Number, doc.Title)
	fmt.Printf("id:       %s\n", doc.ID)
	fmt.Printf("kind:     %s\n", doc.Kind)
	fmt.Print("status:   ")
	statusColor(doc.Status).Printf("%s\n", doc.Status)
	fmt.Printf("version:  %s\n", doc.Version)
	if doc.OwnerID != "" {
		fmt.Printf("owner:    %s\n", doc.OwnerID)
	}
	if doc.RequiresAck {
		audience := "all roles"
		if len(doc.AckRoles) > 0 {
			audience = fmt.Sprintf("%v", doc.AckRoles)
		}
		fmt.Printf("requires acknowledgment from %s\n", audience)
	}
	if doc.PreviousVersionID != "" {
		fmt.Printf("previous: snapshot %s\n", shortID(doc.PreviousVersionID))
	}
	fmt.Printf("created:  %s by %s\n", doc.CreatedAt.Local().Format(time.RFC822), doc.CreatedBy)
	fmt.Printf("updated:  %s by %s\n", doc.UpdatedAt.Local().Format(time.RFC822), doc.UpdatedBy)
	if !doc.ApprovedAt.IsZero() {
		fmt.Printf("approved: %s by %s\n", doc.ApprovedAt.Local().Format(time.RFC822), doc.ApprovedBy)
	}

	if doc.Description != "" {
		fmt.Printf("\n%s\n", doc.Description)
	}
	for _, s := range doc.Sections {
		fmt.Println()
		bold.Printf("%s\n", s.Heading)
		fmt.Println(s.Body)
	}
}
