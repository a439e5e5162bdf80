package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewtec/triador/internal/domain"
	"github.com/lewtec/triador/internal/registry"
	"github.com/lewtec/triador/internal/session"
	"github.com/lewtec/triador/internal/stack"
	"github.com/lewtec/triador/internal/storage"
	"github.com/lewtec/triador/internal/triage"
)

type stubClassifier struct{}

func (stubClassifier) Predict(ctx context.Context, image []byte) (map[string]float64, error) {
	return map[string]float64{"cats": 1.0}, nil
}

func (stubClassifier) FitIncremental(ctx context.Context, examples []domain.TrainingExample) error {
	return nil
}

func (stubClassifier) FitInitial(ctx context.Context, examples []domain.TrainingExample) error {
	return nil
}

type memLedger struct {
	records map[string]string
}

func (m *memLedger) Get(ctx context.Context, hash string) (*domain.TrainingRecord, error) {
	category, ok := m.records[hash]
	if !ok {
		return nil, nil
	}
	return &domain.TrainingRecord{ContentHash: hash, Category: category}, nil
}

func (m *memLedger) Put(ctx context.Context, hash, category string) error {
	m.records[hash] = category
	return nil
}

func (m *memLedger) Snapshot(ctx context.Context) (map[string]string, error) {
	return m.records, nil
}

func (m *memLedger) Replace(ctx context.Context, records []domain.TrainingRecord) error {
	m.records = make(map[string]string)
	for _, rec := range records {
		m.records[rec.ContentHash] = rec.Category
	}
	return nil
}

func (m *memLedger) Count(ctx context.Context) (int64, error) {
	return int64(len(m.records)), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.WorkDir) {
	t.Helper()
	store := storage.New(memfs.New(), nil)
	require.NoError(t, store.EnsureLayout())
	actions := stack.New()
	folders := registry.New(store, actions, nil)
	ledger := &memLedger{records: make(map[string]string)}
	engine := triage.NewController(store, actions, folders, ledger, stubClassifier{}, nil)
	arbiter := session.NewArbiter(time.Minute, nil)
	srv := httptest.NewServer(New(arbiter, engine, ledger, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func acquireToken(t *testing.T, baseURL string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, baseURL+"/session", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestServer_SessionGate(t *testing.T) {
	srv, _ := newTestServer(t)

	// no token, no service
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/image", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	token := acquireToken(t, srv.URL)

	// the slot is taken
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/session", "", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// a bogus token is rejected even while a session is live
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/image", "not-"+token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// heartbeat keeps the token
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/session/heartbeat", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, token, body["token"])
}

func TestServer_FolderLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := acquireToken(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/folders", token, `{"folder_name":"cats"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/folders", token, `{"folder_name":"cats"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/folders", token, `{"folder_name":"input"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/folders", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	folders, ok := body["folders"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, folders, "cats")

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/folders/cats", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/folders/cats", token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_TriageLoop(t *testing.T) {
	srv, store := newTestServer(t)
	token := acquireToken(t, srv.URL)

	require.NoError(t, store.WriteImage(domain.InputFolder, "a.jpg", []byte("meow")))
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/folders", token, `{"folder_name":"cats"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// fetch the current image
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/image", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a.jpg", body["image_file"])
	assert.Equal(t, "image/jpeg", body["mime_type"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("meow")), body["image_data"])

	// classify it
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/classify", token, `{"image_file":"a.jpg"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	predictions, ok := body["predictions"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, predictions, "cats")

	// queue the assignment
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/actions", token, `{"image":"a.jpg","target_folder":"cats"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// nothing current anymore
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/image", token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// the stack shows the pending action
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/actions", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending, ok := body["stack"].([]any)
	require.True(t, ok)
	require.Len(t, pending, 1)

	// undo restores the image
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/undo", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/image", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a.jpg", body["image_file"])

	// re-assign and commit
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/actions", token, `{"image":"a.jpg","target_folder":"cats"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/commit", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(domain.CommitComplete), body["status"])

	// a second commit has nothing to do
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/commit", token, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	names, err := store.ListImages("cats")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, names)
}

func TestServer_UndoEmptyStack(t *testing.T) {
	srv, _ := newTestServer(t)
	token := acquireToken(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/undo", token, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StatusPageIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
