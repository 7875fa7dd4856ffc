// Package search maintains a Weaviate-backed keyword index over the policy
// library. Indexing is best-effort: the SQLite store stays the source of
// truth and index writes never gate a record mutation.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	weaviatemodels "github.com/weaviate/weaviate/entities/models"

	"github.com/avior/policyvault/internal/models"
)

// ClassName is the Weaviate class holding indexed documents.
const ClassName = "PolicyDocument"

// Client wraps the Weaviate client with index-specific functionality.
type Client struct {
	client *weaviate.Client
	url    string
}

// NewClient creates a new search client for the given Weaviate URL.
func NewClient(url string) (*Client, error) {
	cfg := weaviate.Config{
		Host:   url,
		Scheme: "http",
	}

	if strings.HasPrefix(url, "http://") {
		cfg.Host = strings.TrimPrefix(url, "http://")
		cfg.Scheme = "http"
	} else if strings.HasPrefix(url, "https://") {
		cfg.Host = strings.TrimPrefix(url, "https://")
		cfg.Scheme = "https"
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	return &Client{client: client, url: url}, nil
}

// Ping checks if Weaviate is reachable.
func (c *Client) Ping(ctx context.Context) error {
	live, err := c.client.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Weaviate: %w", err)
	}
	if !live {
		return fmt.Errorf("weaviate is not live")
	}
	return nil
}

// EnsureSchema creates the PolicyDocument class if it does not exist.
// The class uses no vectorizer; queries run over the BM25 keyword index.
func (c *Client) EnsureSchema(ctx context.Context) error {
	schema, err := c.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("get schema: %w", err)
	}
	for _, existing := range schema.Classes {
		if existing.Class == ClassName {
			return nil
		}
	}

	class := &weaviatemodels.Class{
		Class:      ClassName,
		Vectorizer: "none",
		Properties: []*weaviatemodels.Property{
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "description", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "category", DataType: []string{"text"}},
			{Name: "status", DataType: []string{"text"}},
		},
	}

	if err := c.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", ClassName, err)
	}
	return nil
}

// IndexDocument writes or replaces a document in the index. The Weaviate
// object reuses the document's UUID, so re-indexing replaces in place.
func (c *Client) IndexDocument(ctx context.Context, doc *models.Document) error {
	// Delete-then-create; the Data Updater 404s on first index.
	_ = c.client.Data().Deleter().
		WithClassName(ClassName).
		WithID(doc.ID).
		Do(ctx)

	_, err := c.client.Data().Creator().
		WithClassName(ClassName).
		WithID(doc.ID).
		WithProperties(map[string]interface{}{
			"documentId":  doc.ID,
			"title":       doc.Title,
			"description": doc.Description,
			"content":     flattenSections(doc.Sections),
			"category":    doc.CategoryID,
			"status":      string(doc.Status),
		}).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return nil
}

// RemoveDocument drops a document from the index.
func (c *Client) RemoveDocument(ctx context.Context, documentID string) error {
	err := c.client.Data().Deleter().
		WithClassName(ClassName).
		WithID(documentID).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("remove document %s from index: %w", documentID, err)
	}
	return nil
}

// Search runs a BM25 keyword query over the indexed fields.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	bm25 := c.client.GraphQL().Bm25ArgBuilder().
		WithQuery(query).
		WithProperties("title", "description", "content")

	fields := []graphql.Field{
		{Name: "documentId"},
		{Name: "title"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "score"}}},
	}

	resp, err := c.client.GraphQL().Get().
		WithClassName(ClassName).
		WithBM25(bm25).
		WithFields(fields...).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("search query: %s", resp.Errors[0].Message)
	}

	return parseResults(resp.Data["Get"])
}

// flattenSections joins section headings and bodies into one indexable blob.
func flattenSections(sections []models.Section) string {
	var sb strings.Builder
	for _, s := range sections {
		sb.WriteString(s.Heading)
		sb.WriteString("\n")
		sb.WriteString(s.Body)
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseResults unpacks the GraphQL Get payload into Result values.
func parseResults(data interface{}) ([]Result, error) {
	get, ok := data.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	hits, ok := get[ClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		obj, ok := h.(map[string]interface{})
		if !ok {
			continue
		}

		var r Result
		r.DocumentID, _ = obj["documentId"].(string)
		r.Title, _ = obj["title"].(string)

		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			// Weaviate returns score as a string
			if s, ok := add["score"].(string); ok {
				r.Score, _ = strconv.ParseFloat(s, 64)
			}
		}

		results = append(results, r)
	}
	return results, nil
}
