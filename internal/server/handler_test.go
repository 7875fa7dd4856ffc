package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/search"
	"github.com/avior/policyvault/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTokenStore implements TokenStore for tests.
type testTokenStore struct {
	tokens map[string]*TokenInfo
}

func (t *testTokenStore) GetByHash(hash string) (*TokenInfo, error) {
	return t.tokens[hash], nil
}

const (
	testToken         = "pvault_test_token"
	testReadOnlyToken = "pvault_readonly_token"
)

type testEnv struct {
	srv    *httptest.Server
	store  *store.Store
	search *search.MockClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvConfig(t, Config{})
}

func newTestEnvConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.New(filepath.Join(dir, "pvault.db"))
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })

	aud, err := audit.Open(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { aud.Close() })

	require.NoError(t, st.CreateCategory(&models.Category{
		ID: "RPAS", Name: "Remote Piloted Aircraft Systems",
		RangeStart: 1000, RangeEnd: 1999, CreatedAt: time.Now().UTC(),
	}))

	tokens := &testTokenStore{tokens: map[string]*TokenInfo{
		HashToken(testToken):         {ID: "tok-1", TokenHash: HashToken(testToken)},
		HashToken(testReadOnlyToken): {ID: "tok-2", TokenHash: HashToken(testReadOnlyToken), ReadOnly: true},
	}}

	idx := search.NewMockClient()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg.Tokens = tokens
	h, stop := NewHandler(st, aud, idx, logger, cfg)
	t.Cleanup(stop)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, search: idx}
}

// do issues an authenticated request and decodes the JSON response into out.
func (e *testEnv) do(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// createDoc creates a document through the API and returns its ID.
func (e *testEnv) createDoc(t *testing.T, title string) map[string]any {
	t.Helper()
	var doc map[string]any
	resp := e.do(t, http.MethodPost, "/api/v1/documents", testToken, map[string]any{
		"category":     "RPAS",
		"title":        title,
		"description":  "Test document.",
		"sections":     []map[string]string{{"heading": "Purpose", "body": "Testing."}},
		"owner":        "ops-manager",
		"ack_roles":    []string{"pilot"},
		"requires_ack": true,
		"actor":        "tester",
	}, &doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return doc
}

// activate walks a document through the approval workflow via the API.
func (e *testEnv) activate(t *testing.T, id string) {
	t.Helper()
	for _, tr := range []string{"submit_for_review", "submit_for_approval", "approve"} {
		resp := e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/transition", testToken,
			map[string]any{"transition": tr, "actor": "tester"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

// ==================== Auth Tests ====================

func TestHandler_Auth(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/v1/documents", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/v1/documents", "wrong-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/v1/documents", testToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Rate-limit windows are keyed by token, so exhausting one token's budget
// must not throttle another token on the same client address.
func TestHandler_RateLimitPerToken(t *testing.T) {
	e := newTestEnvConfig(t, Config{RequestsPerMinute: 1})

	resp := e.do(t, http.MethodGet, "/api/v1/documents", testToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/v1/documents", testToken, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp = e.do(t, http.MethodGet, "/api/v1/documents", testReadOnlyToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_ReadOnlyToken(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/v1/documents", testReadOnlyToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/documents", testReadOnlyToken,
		map[string]any{"category": "RPAS", "title": "Nope"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_Health(t *testing.T) {
	e := newTestEnv(t)

	// No auth required
	resp := e.do(t, http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/readyz", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ==================== Document Tests ====================

func TestHandler_CreateAndGetDocument(t *testing.T) {
	e := newTestEnv(t)

	doc := e.createDoc(t, "Drone Operations Policy")
	assert.Equal(t, "draft", doc["Status"])
	assert.Equal(t, "1.0", doc["Version"])
	assert.Equal(t, float64(1000), doc["Number"])

	id := doc["ID"].(string)

	var got map[string]any
	resp := e.do(t, http.MethodGet, "/api/v1/documents/"+id, testToken, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Drone Operations Policy", got["Title"])

	// Lookup by CATEGORY-NUMBER reference
	resp = e.do(t, http.MethodGet, "/api/v1/documents/RPAS-1000", testToken, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, got["ID"])

	resp = e.do(t, http.MethodGet, "/api/v1/documents/RPAS-1999", testToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The create also reached the search index
	assert.Contains(t, e.search.Indexed, id)
}

func TestHandler_ListDocuments(t *testing.T) {
	e := newTestEnv(t)
	e.createDoc(t, "First")
	e.createDoc(t, "Second")

	var out struct {
		Count int `json:"count"`
	}
	resp := e.do(t, http.MethodGet, "/api/v1/documents?category=RPAS", testToken, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, out.Count)

	resp = e.do(t, http.MethodGet, "/api/v1/documents?status=active", testToken, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, out.Count)

	resp = e.do(t, http.MethodGet, "/api/v1/documents?status=bogus", testToken, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_PatchDocument(t *testing.T) {
	e := newTestEnv(t)
	doc := e.createDoc(t, "Original Title")
	id := doc["ID"].(string)

	var updated map[string]any
	resp := e.do(t, http.MethodPatch, "/api/v1/documents/"+id, testToken, map[string]any{
		"title":              "Revised Title",
		"create_new_version": true,
		"note":               "cleanup",
		"actor":              "editor",
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Revised Title", updated["Title"])
	assert.Equal(t, "1.1", updated["Version"])

	// Direct status writes are refused
	var errBody map[string]string
	resp = e.do(t, http.MethodPatch, "/api/v1/documents/"+id, testToken,
		map[string]any{"status": "active"}, &errBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "status_immutable", errBody["error"])

	resp = e.do(t, http.MethodPatch, "/api/v1/documents/"+id, testToken,
		map[string]any{"title": "x", "version_type": "patch"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Transitions(t *testing.T) {
	e := newTestEnv(t)
	doc := e.createDoc(t, "Workflow Doc")
	id := doc["ID"].(string)

	var out map[string]any
	resp := e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/transition", testToken,
		map[string]any{"transition": "submit_for_review", "actor": "author"}, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending_review", out["Status"])

	// Illegal move
	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/transition", testToken,
		map[string]any{"transition": "approve"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown transition name
	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/transition", testToken,
		map[string]any{"transition": "publish"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_RetireRemovesFromIndex(t *testing.T) {
	e := newTestEnv(t)
	doc := e.createDoc(t, "Short-Lived Doc")
	id := doc["ID"].(string)
	e.activate(t, id)
	require.Contains(t, e.search.Indexed, id)

	resp := e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/transition", testToken,
		map[string]any{"transition": "retire", "actor": "admin"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NotContains(t, e.search.Indexed, id)
}

// ==================== Snapshot and Rollback Tests ====================

func TestHandler_SnapshotsAndRollback(t *testing.T) {
	e := newTestEnv(t)
	doc := e.createDoc(t, "Original Title")
	id := doc["ID"].(string)

	resp := e.do(t, http.MethodPatch, "/api/v1/documents/"+id, testToken, map[string]any{
		"title": "Second Title", "create_new_version": true, "actor": "editor",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snaps struct {
		Snapshots []struct {
			ID      string
			Version string
		} `json:"snapshots"`
		Count int `json:"count"`
	}
	resp = e.do(t, http.MethodGet, "/api/v1/documents/"+id+"/snapshots", testToken, nil, &snaps)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, snaps.Count)
	assert.Equal(t, "1.0", snaps.Snapshots[0].Version)

	var restored map[string]any
	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/rollback", testToken,
		map[string]any{"snapshot_id": snaps.Snapshots[0].ID, "actor": "admin"}, &restored)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Original Title", restored["Title"])
	assert.Equal(t, "2.0", restored["Version"])

	// Missing snapshot_id
	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/rollback", testToken,
		map[string]any{"actor": "admin"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ==================== Acknowledgment Tests ====================

func TestHandler_Acknowledgments(t *testing.T) {
	e := newTestEnv(t)
	doc := e.createDoc(t, "Ack Doc")
	id := doc["ID"].(string)
	e.activate(t, id)

	resp := e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/acknowledgments", testToken,
		map[string]any{"user_id": "u1", "role": "pilot", "method": "typed"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate
	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/acknowledgments", testToken,
		map[string]any{"user_id": "u1"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Outside the audience
	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/acknowledgments", testToken,
		map[string]any{"user_id": "u2", "role": "office"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Missing user
	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/acknowledgments", testToken,
		map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var list struct {
		Count int `json:"count"`
	}
	resp = e.do(t, http.MethodGet, "/api/v1/documents/"+id+"/acknowledgments", testToken, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, list.Count)
}

func TestHandler_PendingForUser(t *testing.T) {
	e := newTestEnv(t)
	doc := e.createDoc(t, "Pending Doc")
	id := doc["ID"].(string)
	e.activate(t, id)

	var out struct {
		Count int `json:"count"`
	}
	resp := e.do(t, http.MethodGet, "/api/v1/users/u1/pending?role=pilot", testToken, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, out.Count)

	resp = e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/acknowledgments", testToken,
		map[string]any{"user_id": "u1", "role": "pilot"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/v1/users/u1/pending?role=pilot", testToken, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, out.Count)
}

// ==================== Audit and Search Tests ====================

func TestHandler_DocumentAudit(t *testing.T) {
	e := newTestEnv(t)
	doc := e.createDoc(t, "Audited Doc")
	id := doc["ID"].(string)

	var out struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	resp := e.do(t, http.MethodGet, "/api/v1/documents/"+id+"/audit", testToken, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, out.Entries)
	assert.Equal(t, "create", out.Entries[0].Action)
}

func TestHandler_Search(t *testing.T) {
	e := newTestEnv(t)
	e.createDoc(t, "Drone Operations Policy")

	var out struct {
		Results []struct {
			DocumentID string `json:"document_id"`
			Title      string `json:"title"`
		} `json:"results"`
		Count int `json:"count"`
	}
	resp := e.do(t, http.MethodGet, "/api/v1/search?q=drone", testToken, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Drone Operations Policy", out.Results[0].Title)

	resp = e.do(t, http.MethodGet, "/api/v1/search", testToken, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
