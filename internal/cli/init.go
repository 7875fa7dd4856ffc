package cli

import (
	"context"
	"fmt"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/config"
	"github.com/avior/policyvault/internal/search"
	"github.com/avior/policyvault/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new vault",
	Long: `Initialize a new PolicyVault in the current directory.
This creates a .pvault directory holding the document database,
the audit ledger, and the vault configuration.`,
	Run: runInit,
}

var initSearchURL string

func init() {
	initCmd.Flags().StringVar(&initSearchURL, "search-url", "", "Weaviate URL for the policy library index (optional)")
}

func runInit(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// Check if already initialized
	if _, err := config.FindVaultRoot(); err == nil {
		exitError("pvault vault already exists")
	}

	fmt.Printf("Initializing PolicyVault...\n")

	if initSearchURL != "" {
		client, err := search.NewClient(initSearchURL)
		if err != nil {
			exitError("failed to create search client: %v", err)
		}

		fmt.Printf("Connecting to search index at %s...\n", initSearchURL)
		if err := client.Ping(ctx); err != nil {
			exitError("failed to connect to search index: %v", err)
		}
		if err := client.EnsureSchema(ctx); err != nil {
			exitError("failed to create search schema: %v", err)
		}
	}

	cfg, err := config.Initialize(initSearchURL)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to create schema: %v", err)
	}

	aud, err := audit.Open(cfg.AuditPath())
	if err != nil {
		exitError("failed to open audit ledger: %v", err)
	}
	aud.Close()

	fmt.Printf("Initialized empty vault in %s\n", cfg.VaultPath())
	fmt.Println("Run 'pvault seed' to load the starter categories and policies.")
}
