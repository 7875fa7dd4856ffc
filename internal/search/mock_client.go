package search

import (
	"context"
	"sort"
	"strings"

	"github.com/avior/policyvault/internal/models"
)

// MockClient is an in-memory implementation of ClientInterface for testing.
type MockClient struct {
	// Indexed stores documents by ID
	Indexed map[string]*models.Document
	// SchemaEnsured flips when EnsureSchema is called
	SchemaEnsured bool
	// Err can be set to make methods return an error
	Err error
}

// NewMockClient creates a new MockClient for testing.
func NewMockClient() *MockClient {
	return &MockClient{Indexed: make(map[string]*models.Document)}
}

// EnsureSchema marks the schema as created.
func (m *MockClient) EnsureSchema(ctx context.Context) error {
	if m.Err != nil {
		return m.Err
	}
	m.SchemaEnsured = true
	return nil
}

// IndexDocument stores the document in the mock index.
func (m *MockClient) IndexDocument(ctx context.Context, doc *models.Document) error {
	if m.Err != nil {
		return m.Err
	}
	m.Indexed[doc.ID] = doc
	return nil
}

// RemoveDocument drops the document from the mock index.
func (m *MockClient) RemoveDocument(ctx context.Context, documentID string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Indexed, documentID)
	return nil
}

// Search matches the query as a case-insensitive substring over title,
// description, and section content.
func (m *MockClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	q := strings.ToLower(query)
	var results []Result
	for _, doc := range m.Indexed {
		if matches(doc, q) {
			results = append(results, Result{DocumentID: doc.ID, Title: doc.Title, Score: 1})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].DocumentID < results[j].DocumentID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func matches(doc *models.Document, q string) bool {
	if strings.Contains(strings.ToLower(doc.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(doc.Description), q) {
		return true
	}
	for _, s := range doc.Sections {
		if strings.Contains(strings.ToLower(s.Heading), q) ||
			strings.Contains(strings.ToLower(s.Body), q) {
			return true
		}
	}
	return false
}

// Verify that *MockClient implements ClientInterface at compile time
var _ ClientInterface = (*MockClient)(nil)
