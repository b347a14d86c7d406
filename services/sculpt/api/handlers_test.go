// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/store"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
	"github.com/AleutianAI/sculpt/services/sculpt/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const mainSource = "package main\n\nfunc greet(name string) string {\n\treturn \"hi \" + name\n}\n"

type testEnv struct {
	router  *gin.Engine
	manager *project.Manager
	source  *store.Source
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	source := store.NewSource(db)
	require.NoError(t, source.SaveText(context.Background(), "main.go", mainSource))
	journal := store.NewJournal(db, nil)

	cfg := project.DefaultManagerConfig()
	cfg.Observers = []morph.Observer{journal.Observer()}
	manager, err := project.NewManager(source, syntax.NewGoParser(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.CloseAll() })

	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	handlers := NewHandlers(manager, nil).WithJournal(journal)
	router := NewRouter(handlers, RouterConfig{Metrics: metrics})
	return &testEnv{router: router, manager: manager, source: source}
}

func (e *testEnv) do(t *testing.T, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) open(t *testing.T) DocumentResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/sculpt/documents", OpenRequest{Path: "main.go"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp DocumentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandlers_HandleHealth(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodGet, "/v1/sculpt/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
	assert.Zero(t, resp.Documents)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID(t *testing.T) {
	env := setupTestRouter(t)

	t.Run("generated for every route", func(t *testing.T) {
		for _, url := range []string{"/v1/sculpt/health", "/v1/sculpt/documents", "/v1/sculpt/nope"} {
			w := env.do(t, http.MethodGet, url, nil)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"), url)
		}
	})

	t.Run("incoming id kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/sculpt/health", nil)
		req.Header.Set("X-Request-ID", "req-42")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})
}

func TestHandlers_HandleOpen(t *testing.T) {
	env := setupTestRouter(t)

	t.Run("opens", func(t *testing.T) {
		resp := env.open(t)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "main.go", resp.Path)
		assert.Zero(t, resp.Generation)
		assert.Equal(t, len(mainSource), resp.Length)
		assert.False(t, resp.HasSyntaxErrors)

		again := env.open(t)
		assert.Equal(t, resp.ID, again.ID)
	})

	t.Run("lists", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/sculpt/documents", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[DocumentListResponse](t, w)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, "main.go", resp.Documents[0].Path)
	})

	t.Run("missing path", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/sculpt/documents", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", decode[ErrorResponse](t, w).Code)
	})

	t.Run("unknown file", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/sculpt/documents", OpenRequest{Path: "nope.go"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "FILE_NOT_FOUND", decode[ErrorResponse](t, w).Code)
	})
}

func TestHandlers_Read(t *testing.T) {
	env := setupTestRouter(t)
	env.open(t)

	t.Run("text", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/sculpt/documents/text?path=main.go", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, mainSource, decode[TextResponse](t, w).Text)
	})

	t.Run("outline", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/sculpt/documents/outline?path=main.go", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[OutlineResponse](t, w)
		require.Len(t, resp.Symbols, 1)
		assert.Equal(t, "greet", resp.Symbols[0].Name)
		assert.Equal(t, syntax.KindFunctionDecl, resp.Symbols[0].Kind)
		assert.Equal(t, 3, resp.Symbols[0].Line)
	})

	t.Run("structure", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/sculpt/documents/structure?path=main.go&decl=greet", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[StructureResponse](t, w)
		assert.Equal(t, syntax.KindFunctionDecl, resp.Structure.Kind)
		require.NotNil(t, resp.Structure.Name)
		assert.Equal(t, "greet", *resp.Structure.Name)
	})

	t.Run("file structure", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/sculpt/documents/structure?path=main.go", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, syntax.KindSourceFile, decode[StructureResponse](t, w).Structure.Kind)
	})

	tests := []struct {
		name   string
		url    string
		status int
		code   string
	}{
		{"missing path", "/v1/sculpt/documents/text", http.StatusBadRequest, "INVALID_REQUEST"},
		{"not open", "/v1/sculpt/documents/text?path=other.go", http.StatusNotFound, "NOT_OPEN"},
		{"unknown decl", "/v1/sculpt/documents/structure?path=main.go&decl=nope", http.StatusNotFound, "NOT_FOUND"},
		{"unknown route", "/v1/sculpt/nope", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.url, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandlers_HandleRename(t *testing.T) {
	env := setupTestRouter(t)
	env.open(t)

	w := env.do(t, http.MethodPost, "/v1/sculpt/documents/rename",
		RenameRequest{Path: "main.go", Decl: "greet", Name: "welcome"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ChangeResponse](t, w)
	assert.True(t, resp.Applied)
	assert.Equal(t, uint64(1), resp.Generation)
	assert.Contains(t, resp.Diff, "-func greet(name string) string {\n+func welcome(name string) string {\n")

	doc := env.manager.Get("main.go")
	require.NotNil(t, doc)
	assert.Contains(t, doc.Text(), "func welcome(")

	t.Run("invalid name", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/sculpt/documents/rename",
			RenameRequest{Path: "main.go", Decl: "welcome", Name: "1x"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "STRUCTURE_MISMATCH", decode[ErrorResponse](t, w).Code)
		assert.Equal(t, uint64(1), doc.Generation())
	})
}

func TestHandlers_HandleSetStructure(t *testing.T) {
	env := setupTestRouter(t)
	env.open(t)

	body := map[string]any{
		"path":      "main.go",
		"decl":      "greet",
		"structure": map[string]any{"kind": "functionDecl", "doc": "// greet says hi."},
	}
	w := env.do(t, http.MethodPut, "/v1/sculpt/documents/structure", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ChangeResponse](t, w)
	assert.True(t, resp.Applied)
	assert.Contains(t, resp.Diff, "+// greet says hi.\n")

	t.Run("mismatch issues no edit", func(t *testing.T) {
		body := map[string]any{
			"path":      "main.go",
			"decl":      "greet",
			"structure": map[string]any{"kind": "functionDecl", "tag": "`json:\"x\"`"},
		}
		w := env.do(t, http.MethodPut, "/v1/sculpt/documents/structure", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "STRUCTURE_MISMATCH", decode[ErrorResponse](t, w).Code)
		assert.Equal(t, uint64(1), env.manager.Get("main.go").Generation())
	})
}

func TestHandlers_HandleEdits(t *testing.T) {
	env := setupTestRouter(t)
	env.open(t)
	edit := morph.TextEdit{Start: 56, End: 58, Text: "hello"}

	t.Run("dry run", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/sculpt/documents/edits",
			EditsRequest{Path: "main.go", Edits: []morph.TextEdit{edit}, DryRun: true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[ChangeResponse](t, w)
		assert.False(t, resp.Applied)
		assert.Contains(t, resp.Diff, "-\treturn \"hi \" + name\n+\treturn \"hello \" + name\n")
		assert.Equal(t, mainSource, env.manager.Get("main.go").Text())
	})

	t.Run("apply", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/sculpt/documents/edits",
			EditsRequest{Path: "main.go", Edits: []morph.TextEdit{edit}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[ChangeResponse](t, w)
		assert.True(t, resp.Applied)
		assert.Equal(t, uint64(1), resp.Generation)
		assert.Equal(t, []morph.TextEdit{edit}, resp.Edits)
		assert.Contains(t, env.manager.Get("main.go").Text(), `"hello "`)
	})

	t.Run("overlap", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/sculpt/documents/edits", EditsRequest{
			Path:  "main.go",
			Edits: []morph.TextEdit{{Start: 0, End: 5, Text: "a"}, {Start: 3, End: 8, Text: "b"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_RANGE", decode[ErrorResponse](t, w).Code)
	})

	t.Run("history", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/sculpt/documents/history?path=main.go", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[HistoryResponse](t, w)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, uint64(1), resp.Entries[0].Generation)
		assert.Equal(t, []morph.TextEdit{edit}, resp.Entries[0].Edits)
		assert.Equal(t, store.HashText(env.manager.Get("main.go").Text()), resp.Entries[0].TextHash)
	})
}

func TestHandlers_SaveAndClose(t *testing.T) {
	env := setupTestRouter(t)
	env.open(t)
	ctx := context.Background()

	w := env.do(t, http.MethodPost, "/v1/sculpt/documents/rename",
		RenameRequest{Path: "main.go", Decl: "greet", Name: "hello"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/v1/sculpt/documents/save", SaveRequest{Path: "main.go"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	saved, err := env.source.LoadText(ctx, "main.go")
	require.NoError(t, err)
	assert.Contains(t, saved, "func hello(")

	w = env.do(t, http.MethodPost, "/v1/sculpt/documents/save", SaveRequest{})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/sculpt/documents?path=main.go", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, env.manager.Get("main.go"))

	w = env.do(t, http.MethodGet, "/v1/sculpt/documents/text?path=main.go", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/v1/sculpt/documents/save", SaveRequest{Path: "main.go"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_OPEN", decode[ErrorResponse](t, w).Code)
}

func TestHandlers_HistoryWithoutJournal(t *testing.T) {
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	manager, err := project.NewManager(store.NewSource(db), syntax.NewGoParser(), project.DefaultManagerConfig())
	require.NoError(t, err)
	defer manager.CloseAll()

	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(manager, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/sculpt/documents/history?path=main.go", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHandlers_ConcurrentEdits(t *testing.T) {
	env := setupTestRouter(t)
	env.open(t)

	const n = 20
	var wg sync.WaitGroup
	codes := make([]int, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/v1/sculpt/documents/edits",
				strings.NewReader(`{"path":"main.go","edits":[{"start":0,"end":0,"text":"// x\n"}]}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			codes[2*i] = w.Code
		}(i)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sculpt/documents/outline?path=main.go", nil))
			codes[2*i+1] = w.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	doc := env.manager.Get("main.go")
	require.NotNil(t, doc)
	assert.Equal(t, uint64(n), doc.Generation())
	assert.Equal(t, strings.Repeat("// x\n", n)+mainSource, doc.Text())
}

func TestHandlers_HandleChanges(t *testing.T) {
	env := setupTestRouter(t)
	env.open(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sculpt/documents/changes?path="

	t.Run("streams applied edits", func(t *testing.T) {
		ws, _, err := websocket.DefaultDialer.Dial(base+"main.go", nil)
		require.NoError(t, err)
		defer ws.Close()
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

		var ev ChangeEvent
		require.NoError(t, ws.ReadJSON(&ev))
		assert.Equal(t, "subscribed", ev.Type)
		assert.Equal(t, "main.go", ev.Path)
		assert.Zero(t, ev.Generation)

		w := env.do(t, http.MethodPost, "/v1/sculpt/documents/rename",
			RenameRequest{Path: "main.go", Decl: "greet", Name: "welcome"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		require.NoError(t, ws.ReadJSON(&ev))
		assert.Equal(t, "change", ev.Type)
		assert.Equal(t, uint64(1), ev.Generation)
		assert.NotEmpty(t, ev.DocumentID)
		require.Len(t, ev.Edits, 1)
		assert.Equal(t, "welcome", ev.Edits[0].Text)
		assert.Zero(t, ev.Dropped)
	})

	t.Run("not open", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base+"other.go", nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing path", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/sculpt/documents/changes", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
