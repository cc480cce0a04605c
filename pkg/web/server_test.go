package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pyimport-graph/pkg/analysis"
	"github.com/ritzau/pyimport-graph/pkg/graph"
	"github.com/ritzau/pyimport-graph/pkg/logging"
	"github.com/ritzau/pyimport-graph/pkg/model"
	"github.com/ritzau/pyimport-graph/pkg/pubsub"
)

func testSnapshot(version int64) *analysis.Snapshot {
	pairs := []model.ImportPair{
		{File: "a.py", Module: "os"},
		{File: "a.py", Module: "sys"},
		{File: "b.py", Module: "os"},
	}
	return &analysis.Snapshot{
		Version:   version,
		Root:      "/srv/app",
		Reason:    "test",
		Threshold: graph.DefaultHubThreshold,
		Graph:     graph.Build(pairs),
		Scan:      &model.ScanResult{Root: "/srv/app", Files: 2, Parsed: 2, Pairs: pairs},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerBeforeFirstSnapshot(t *testing.T) {
	s := NewServer("Imports", nil)
	h := s.Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "/static/reload.js")

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/graph").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/node/os").Code)
}

func TestServerIndex(t *testing.T) {
	s := NewServer("Imports", nil)
	s.PublishSnapshot(testSnapshot(1))

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "a.py")
	assert.Contains(t, body, "/static/reload.js")
	assert.Less(t, strings.Index(body, "/static/reload.js"), strings.LastIndex(body, "</body>"))
	assert.NotEmpty(t, rec.Header().Get(logging.RequestIDHeader))
}

func TestServerStatic(t *testing.T) {
	rec := get(t, NewServer("Imports", nil).Handler(), "/static/reload.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EventSource")
}

func TestServerGraphFormats(t *testing.T) {
	s := NewServer("Imports", nil)
	s.PublishSnapshot(testSnapshot(1))
	h := s.Handler()

	rec := get(t, h, "/api/graph")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var m model.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Len(t, m.Nodes, 4)
	assert.Len(t, m.Edges, 3)

	rec = get(t, h, "/graph.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, strings.Count(rec.Body.String(), "<circle "))

	rec = get(t, h, "/graph.dot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "->"))
}

func TestServerNode(t *testing.T) {
	s := NewServer("Imports", nil)
	s.PublishSnapshot(testSnapshot(1))
	h := s.Handler()

	rec := get(t, h, "/api/node/os")
	require.Equal(t, http.StatusOK, rec.Code)

	var info NodeInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, NodeInfo{
		Label:      "os",
		Kind:       "module",
		OutDegree:  0,
		InDegree:   2,
		Hub:        false,
		Imports:    []string{},
		ImportedBy: []string{"a.py", "b.py"},
	}, info)

	rec = get(t, h, "/api/node/a.py")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, []string{"os", "sys"}, info.Imports)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/node/missing").Code)
}

func TestServerMetrics(t *testing.T) {
	m := analysis.NewMetrics()
	s := NewServer("Imports", m)

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pyimport_graph_graph_nodes")

	assert.Equal(t, http.StatusNotFound, get(t, NewServer("Imports", nil).Handler(), "/metrics").Code)
}

func TestServerSubscribeGraph(t *testing.T) {
	s := NewServer("Imports", nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/graph", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	// wait until the handler has subscribed before publishing
	require.Eventually(t, func() bool {
		return s.publisher.SubscriberCount(pubsub.TopicGraph) > 0
	}, 2*time.Second, 10*time.Millisecond)

	s.PublishSnapshot(testSnapshot(7))

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			break
		}
	}

	var event struct {
		Topic string `json:"topic"`
		Data  struct {
			Version int64 `json:"version"`
			Nodes   int   `json:"nodes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, "graph", event.Topic)
	assert.Equal(t, int64(7), event.Data.Version)
	assert.Equal(t, 4, event.Data.Nodes)

	cancel()
	_, _ = io.Copy(io.Discard, resp.Body)
}

func TestServerStartStops(t *testing.T) {
	s := NewServer("Imports", nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, 0) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
