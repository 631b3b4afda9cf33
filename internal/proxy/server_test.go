package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmanager/internal/channel"
	"vmanager/internal/domain"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := &fakeBackend{servers: []domain.ServerDescriptor{lobby}}
	s := NewServer(newDispatcher(backend, nil))
	srv := httptest.NewServer(s.Handler(ctx))
	t.Cleanup(srv.Close)
	return s, srv.URL
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/channel"
}

func readFrames(c *channel.Conn) (<-chan string, <-chan struct{}) {
	frames := make(chan string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.ReadLoop(func(data []byte) { frames <- string(data) })
	}()
	return frames, done
}

func TestChannelRoundTrip(t *testing.T) {
	_, base := startTestServer(t)

	conn, err := channel.Dial(context.Background(), wsURL(base), "steve")
	require.NoError(t, err)
	defer conn.Close()
	frames, _ := readFrames(conn)

	require.NoError(t, conn.Send([]byte("@c1|GET_SERVERS")))

	select {
	case f := <-frames:
		assert.True(t, strings.HasPrefix(f, "@c1|SERVERS:["), f)
		assert.Contains(t, f, `"name":"lobby"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no SERVERS response")
	}
}

func TestReconnectReplacesOlderLink(t *testing.T) {
	s, base := startTestServer(t)

	first, err := channel.Dial(context.Background(), wsURL(base), "steve")
	require.NoError(t, err)
	_, firstDone := readFrames(first)

	second, err := channel.Dial(context.Background(), wsURL(base), "steve")
	require.NoError(t, err)
	defer second.Close()
	readFrames(second)

	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("older link was not closed")
	}

	assert.Eventually(t, func() bool { return s.links.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHealthReportsLinks(t *testing.T) {
	_, base := startTestServer(t)

	conn, err := channel.Dial(context.Background(), wsURL(base), "alex")
	require.NoError(t, err)
	defer conn.Close()
	readFrames(conn)

	assert.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var body map[string]int
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return body["links"] == 1
	}, 2*time.Second, 10*time.Millisecond)
}
