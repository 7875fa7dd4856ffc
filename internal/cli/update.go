package cli

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
	"github.com/avior/policyvault/internal/models"
)

var updateCmd = &cobra.Command{
	Use:   "update <id | CATEGORY-NUMBER>",
	Short: "Update a document's fields",
	Long: `Update document fields. With --new-version, the pre-change state is
snapshotted and the version bumped, but only when a tracked field (title,
description, content, owner) actually changes. Status cannot be updated
here; use submit/approve/reject/retire.`,
	Args: cobra.ExactArgs(1),
	Run:  runUpdate,
}

var (
	updateTitle       string
	updateDescription string
	updateOwner       string
	updateSection     []string
	updateNewVersion  bool
	updateVersionType string
	updateNote        string
	updateActor       string
)

func init() {
	updateCmd.Flags().StringVarP(&updateTitle, "title", "t", "", "New title")
	updateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "New description")
	updateCmd.Flags().StringVar(&updateOwner, "owner", "", "New owner user ID")
	updateCmd.Flags().StringArrayVar(&updateSection, "section", nil, "Replace content with 'Heading: body' sections (repeatable)")
	updateCmd.Flags().BoolVar(&updateNewVersion, "new-version", false, "Snapshot and bump the version if a tracked field changed")
	updateCmd.Flags().StringVar(&updateVersionType, "version-type", core.VersionTypeMinor, "Bump type: minor or major")
	updateCmd.Flags().StringVarP(&updateNote, "note", "m", "", "Change note stored on the snapshot")
	updateCmd.Flags().StringVar(&updateActor, "actor", "", "Acting user ID")
}

func runUpdate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	doc := resolveDocument(c, args[0])

	actor := updateActor
	if actor == "" {
		actor = defaultActor()
	}

	var fields core.Fields
	if cmd.Flags().Changed("title") {
		fields.Title = &updateTitle
	}
	if cmd.Flags().Changed("description") {
		fields.Description = &updateDescription
	}
	if cmd.Flags().Changed("owner") {
		fields.OwnerID = &updateOwner
	}
	if cmd.Flags().Changed("section") {
		fields.Sections = parseSections(updateSection)
	}

	oldVersion := doc.Version
	doc, err := core.UpdateDocument(ctx, c.Store, c.Audit, doc.ID, fields, core.UpdateOptions{
		CreateNewVersion: updateNewVersion,
		VersionType:      updateVersionType,
		Note:             updateNote,
		ActorID:          actor,
	})
	if err != nil {
		exitError("%v", err)
	}

	indexDocument(ctx, c, doc)

	green := color.New(color.FgGreen)
	if doc.Version != oldVersion {
		green.Printf("Updated %s (was v%s)\n", doc.Ref(), oldVersion)
	} else {
		green.Printf("Updated %s (version unchanged)\n", doc.Ref())
	}
}

// parseSections splits "Heading: body" strings into sections.
func parseSections(raw []string) []models.Section {
	sections := make([]models.Section, 0, len(raw))
	for _, r := range raw {
		heading, body, found := strings.Cut(r, ":")
		if !found {
			heading, body = r, ""
		}
		sections = append(sections, models.Section{Heading: heading, Body: strings.TrimSpace(body)})
	}
	return sections
}
