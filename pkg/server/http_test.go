package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
	"github.com/kadirpekel/a2ui/pkg/client"
	"github.com/kadirpekel/a2ui/pkg/config"
	"github.com/kadirpekel/a2ui/pkg/conversation"
	"github.com/kadirpekel/a2ui/pkg/render"
	"github.com/kadirpekel/a2ui/pkg/settings"
)

const agentTurn = `{"surfaceUpdate":{"components":[
	{"id":"a1","component":"Text","text":{"literalString":"Hello from agent"}},
	{"id":"root","component":"Column","children":{"explicitList":["a1"]}}]}}`

type sliceStream struct {
	envs []*a2ui.Envelope
}

func (s *sliceStream) Next() (*a2ui.Envelope, error) {
	if len(s.envs) == 0 {
		return nil, io.EOF
	}
	e := s.envs[0]
	s.envs = s.envs[1:]
	return e, nil
}

func (s *sliceStream) Close() error { return nil }

func replying(t *testing.T, docs ...string) conversation.StreamerFunc {
	return func(ctx context.Context, req client.ChatRequest) (conversation.Stream, error) {
		s := &sliceStream{}
		for _, d := range docs {
			e, err := a2ui.ParseEnvelope([]byte(d))
			require.NoError(t, err)
			s.envs = append(s.envs, e)
		}
		return s, nil
	}
}

func newTestServer(t *testing.T, view *conversation.View, opts ...HTTPServerOption) *httptest.Server {
	t.Helper()
	s, err := NewHTTPServer(config.PreviewConfig{CORSOrigins: []string{"http://ui.local"}}, view, opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHTTPServer_Health(t *testing.T) {
	ts := newTestServer(t, conversation.New())

	resp, body := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = do(t, http.MethodGet, ts.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "<html")
}

func TestHTTPServer_SessionLifecycle(t *testing.T) {
	view := conversation.New(
		conversation.WithStreamer(replying(t, agentTurn)),
		conversation.WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
	ts := newTestServer(t, view)

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/messages", `{"message":"hi"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no session open yet")

	resp, body := do(t, http.MethodPost, ts.URL+"/api/session", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state sessionResponse
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, "s1", state.SessionID)
	assert.False(t, state.Streaming)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/messages", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodPost, ts.URL+"/api/messages", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tree render.Node
	require.NoError(t, json.Unmarshal(body, &tree))
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "user_msg_1700000000000", tree.Children[0].ID)
	assert.Equal(t, a2ui.RoleUser, tree.Children[0].Role)
	assert.Equal(t, "a1", tree.Children[1].ID)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/scene/text", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hi")
	assert.Contains(t, string(body), "Hello from agent")

	resp, body = do(t, http.MethodGet, ts.URL+"/api/scene?raw=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"a1"`)

	resp, body = do(t, http.MethodPost, ts.URL+"/api/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, "s1", state.SessionID)
	assert.Equal(t, 1, view.Snapshot().Len(), "only the root survives a reset")
}

func TestHTTPServer_SwitchGeneratesIDAndPersists(t *testing.T) {
	store, err := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	view := conversation.New()
	ts := newTestServer(t, view, WithSessionStore(store))

	resp, body := do(t, http.MethodPost, ts.URL+"/api/session", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state sessionResponse
	require.NoError(t, json.Unmarshal(body, &state))
	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, state.SessionID, view.SessionID())
	assert.Equal(t, state.SessionID, store.Get().SessionID)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again sessionResponse
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, state, again)
}

func TestHTTPServer_RelayFailure(t *testing.T) {
	view := conversation.New(conversation.WithStreamer(conversation.StreamerFunc(
		func(ctx context.Context, req client.ChatRequest) (conversation.Stream, error) {
			return nil, &client.StatusError{StatusCode: http.StatusBadGateway, Body: "agent down"}
		})))
	ts := newTestServer(t, view)

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/session", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/messages", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "agent down")
}

func TestHTTPServer_BadBody(t *testing.T) {
	ts := newTestServer(t, conversation.New())

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/session", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_CORS(t *testing.T) {
	ts := newTestServer(t, conversation.New())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/scene", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://ui.local", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.local")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHTTPServer_StartShutdown(t *testing.T) {
	s, err := NewHTTPServer(config.PreviewConfig{Host: "127.0.0.1", Port: 18091}, conversation.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.Address() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewHTTPServer_InvalidPort(t *testing.T) {
	_, err := NewHTTPServer(config.PreviewConfig{Port: 70000}, conversation.New())
	assert.Error(t, err)
}
