package scenelink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketBridgeRoundTrip(t *testing.T) {
	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(served)
		ch, err := UpgradeWebSocket(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		runtime := NewBridge(ch)
		runtime.On("echo", echoHandler)
		_ = runtime.Run(context.Background()) // returns when the client closes
		_ = runtime.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge"
	ch, err := DialWebSocket(ctx, url, nil)
	require.NoError(t, err)
	host := NewBridge(ch)
	go func() { _ = host.Run(ctx) }()

	for _, in := range []string{"a", "b"} {
		got, err := Call[string](ctx, host, "echo", in)
		require.NoError(t, err)
		assert.Equal(t, "re:"+in, got)
	}

	require.NoError(t, host.Close())
	select {
	case <-served:
	case <-ctx.Done():
		t.Fatal("server side did not observe the close")
	}

	assert.ErrorIs(t, ch.Post(context.Background(), Envelope{EventName: "late"}), ErrClosed)
}
