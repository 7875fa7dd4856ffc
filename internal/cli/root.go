// Package cli implements the command-line interface for PolicyVault.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/config"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/search"
	"github.com/avior/policyvault/internal/store"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store
	Audit  *audit.Ledger
	Search search.ClientInterface
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
	if c.Audit != nil {
		c.Audit.Close()
	}
}

// initContext initializes config, store, and the audit ledger
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	if err := st.Initialize(); err != nil {
		st.Close()
		exitError("failed to initialize store: %v", err)
	}

	aud, err := audit.Open(cfg.AuditPath())
	if err != nil {
		st.Close()
		exitError("failed to open audit ledger: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st, Audit: aud}
}

// initFullContext initializes config, store, audit ledger, and search client
func initFullContext() *cmdContext {
	ctx := initContext()

	if ctx.Config.SearchURL != "" {
		client, err := search.NewClient(ctx.Config.SearchURL)
		if err != nil {
			ctx.Close()
			exitError("failed to create search client: %v", err)
		}
		ctx.Search = client
	}

	return ctx
}

var rootCmd = &cobra.Command{
	Use:   "pvault",
	Short: "Policy and procedure vault",
	Long: `PolicyVault manages versioned policy and procedure documents: category
numbering, lifecycle workflow, immutable version snapshots, rollback, and
per-user acknowledgment tracking.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(retireCmd)
	rootCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(nextNumberCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(searchCmd)
}

func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// defaultActor resolves the actor stamped on mutations when --actor is unset.
func defaultActor() string {
	if u := os.Getenv("PVAULT_ACTOR"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// statusColor returns the color used for a lifecycle status badge.
func statusColor(s models.Status) *color.Color {
	switch s {
	case models.StatusDraft:
		return color.New(color.FgWhite)
	case models.StatusPendingReview:
		return color.New(color.FgYellow)
	case models.StatusPendingApproval:
		return color.New(color.FgMagenta)
	case models.StatusActive:
		return color.New(color.FgGreen)
	case models.StatusRetired:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

// resolveDocument accepts either a document UUID or a "CATEGORY-NUMBER"
// reference like RPAS-1001.
func resolveDocument(c *cmdContext, arg string) *models.Document {
	if i := strings.LastIndex(arg, "-"); i > 0 {
		if number, err := strconv.Atoi(arg[i+1:]); err == nil {
			doc, err := c.Store.GetDocumentByNumber(arg[:i], number)
			if err == nil {
				return doc
			}
		}
	}

	doc, err := c.Store.GetDocument(arg)
	if err != nil {
		exitError("%v", err)
	}
	return doc
}

// indexDocument updates the search index after a mutation. Index failures
// are reported as warnings; the store already committed.
func indexDocument(ctx context.Context, c *cmdContext, doc *models.Document) {
	if c.Search == nil {
		return
	}
	if err := c.Search.IndexDocument(ctx, doc); err != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: search index update failed: %v\n", err)
	}
}

// removeFromIndex drops a document from the search index, best-effort.
func removeFromIndex(ctx context.Context, c *cmdContext, documentID string) {
	if c.Search == nil {
		return
	}
	if err := c.Search.RemoveDocument(ctx, documentID); err != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: search index removal failed: %v\n", err)
	}
}

// printDocumentLine prints a one-line document summary with a status badge.
func printDocumentLine(doc *models.Document) {
	statusColor(doc.Status).Printf("%-17s", "["+string(doc.Status)+"]")
	fmt.Printf(" %s-%d  v%-6s %s  (%s)\n",
		doc.CategoryID, doc.Number, doc.Version, doc.Title, shortID(doc.ID))
}
