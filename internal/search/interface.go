package search

import (
	"context"

	"github.com/avior/policyvault/internal/models"
)

// Result is one search hit against the policy library index.
type Result struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// ClientInterface defines the contract for the policy library search index.
// This interface enables mocking for testing the core package.
type ClientInterface interface {
	// EnsureSchema creates the index class if it does not exist yet.
	EnsureSchema(ctx context.Context) error

	// IndexDocument writes or replaces a document in the index.
	IndexDocument(ctx context.Context, doc *models.Document) error

	// RemoveDocument drops a document from the index.
	RemoveDocument(ctx context.Context, documentID string) error

	// Search runs a keyword query over title, description, and content.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Verify that *Client implements ClientInterface at compile time
var _ ClientInterface = (*Client)(nil)
