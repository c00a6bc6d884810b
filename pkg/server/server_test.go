package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuld-db/skuld/pkg/ground"
	"github.com/skuld-db/skuld/pkg/ingest"
	"github.com/skuld-db/skuld/pkg/skuld"
)

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	db, err := skuld.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv, err := New(db, cfg)
	require.NoError(t, err)
	return srv
}

func makeRequest(t *testing.T, srv *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(recorder, req)
	return recorder
}

func seedSignals(t *testing.T, srv *Server) {
	t.Helper()
	rec := makeRequest(t, srv, http.MethodPost, "/signals", signalsRequest{
		Signals: []ingest.Signal{
			{Entity: 1, Attribute: "color", Value: "red"},
			{Entity: 2, Attribute: "color", Value: "blue"},
		},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNew(t *testing.T) {
	t.Run("nil_db_rejected", func(t *testing.T) {
		_, err := New(nil, nil)
		assert.Error(t, err)
	})

	t.Run("nil_config_uses_defaults", func(t *testing.T) {
		srv := newTestServer(t, nil)
		assert.Equal(t, 7400, srv.config.Port)
	})
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := makeRequest(t, srv, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandleSignals(t *testing.T) {
	t.Run("applies_batch", func(t *testing.T) {
		srv := newTestServer(t, nil)
		rec := makeRequest(t, srv, http.MethodPost, "/signals", signalsRequest{
			Signals: []ingest.Signal{{Entity: 1, Attribute: "a", Value: "v"}},
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Applied int `json:"applied"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Applied)
	})

	t.Run("invalid_signal_is_422", func(t *testing.T) {
		srv := newTestServer(t, nil)
		rec := makeRequest(t, srv, http.MethodPost, "/signals", signalsRequest{
			Signals: []ingest.Signal{{Entity: 1, Attribute: "", Value: "v"}},
		}, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed_body_is_400", func(t *testing.T) {
		srv := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/signals", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		srv.buildRouter().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get_not_allowed", func(t *testing.T) {
		srv := newTestServer(t, nil)
		rec := makeRequest(t, srv, http.MethodGet, "/signals", nil, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleQuery(t *testing.T) {
	t.Run("lookup_round_trip", func(t *testing.T) {
		srv := newTestServer(t, nil)
		seedSignals(t, srv)

		rec := makeRequest(t, srv, http.MethodPost, "/query", queryRequest{
			Kind: "lookup", Entity: 1,
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var res ground.GroundedResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.True(t, res.Verified)
		assert.Equal(t, 100, res.Confidence.Score)
	})

	t.Run("missing_entity_is_unverified_not_error", func(t *testing.T) {
		srv := newTestServer(t, nil)
		rec := makeRequest(t, srv, http.MethodPost, "/query", queryRequest{
			Kind: "lookup", Entity: 42,
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var res ground.GroundedResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.False(t, res.Verified)
	})

	t.Run("unknown_kind_is_400", func(t *testing.T) {
		srv := newTestServer(t, nil)
		rec := makeRequest(t, srv, http.MethodPost, "/query", queryRequest{Kind: "teleport"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("traverse", func(t *testing.T) {
		srv := newTestServer(t, nil)
		seedSignals(t, srv)
		rec := makeRequest(t, srv, http.MethodPost, "/query", queryRequest{
			Kind: "traverse", Start: 0, Depth: 3,
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var res ground.GroundedResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.NotNil(t, res.Artifact)
		assert.NotEmpty(t, res.Artifact.Path)
	})
}

func TestHandleExportImport(t *testing.T) {
	srv := newTestServer(t, nil)
	seedSignals(t, srv)

	rec := makeRequest(t, srv, http.MethodGet, "/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	exported := rec.Body.Bytes()

	jsonRec := makeRequest(t, srv, http.MethodGet, "/export?format=json", nil, "")
	require.Equal(t, http.StatusOK, jsonRec.Code)
	assert.Contains(t, jsonRec.Body.String(), `"nodes"`)

	fresh := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewBuffer(exported))
	importRec := httptest.NewRecorder()
	fresh.buildRouter().ServeHTTP(importRec, req)
	require.Equal(t, http.StatusOK, importRec.Code)

	statsRec := makeRequest(t, fresh, http.MethodGet, "/stats", nil, "")
	require.Equal(t, http.StatusOK, statsRec.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(statsRec.Body.Bytes(), &stats))
	assert.Equal(t, 5, stats.Database.Nodes)
}

func TestHandleImportRejectsGarbage(t *testing.T) {
	t.Run("junk_bytes", func(t *testing.T) {
		srv := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewBufferString("junk"))
		rec := httptest.NewRecorder()
		srv.buildRouter().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// A valid header claiming 2^60 nodes in a 30-byte body must come back
	// as a plain bad request, not trip the recovery middleware.
	t.Run("overflowing_node_count", func(t *testing.T) {
		payload := []byte{'S', 'K', 'G', 'C', 0, 1}
		payload = binary.BigEndian.AppendUint64(payload, 0)     // next node id
		payload = binary.BigEndian.AppendUint64(payload, 1<<60) // node count
		payload = binary.BigEndian.AppendUint64(payload, 0)

		srv := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewBuffer(payload))
		rec := httptest.NewRecorder()
		srv.buildRouter().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleStage(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := makeRequest(t, srv, http.MethodGet, "/stage", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"newborn"`)
}

func TestAuth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthToken = "open-sesame"

	t.Run("health_is_open", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		rec := makeRequest(t, srv, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing_token_is_401", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		rec := makeRequest(t, srv, http.MethodGet, "/stats", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong_token_is_401", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		rec := makeRequest(t, srv, http.MethodGet, "/stats", nil, "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid_token_passes", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		rec := makeRequest(t, srv, http.MethodGet, "/stats", nil, "open-sesame")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestStartStop(t *testing.T) {
	srv := newTestServer(t, &Config{
		Address:        "127.0.0.1",
		Port:           0,
		MaxRequestSize: 1024,
	})
	require.NoError(t, srv.Start())
	assert.NotEmpty(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(context.Background()))
	assert.ErrorIs(t, srv.Start(), ErrServerClosed)
}
