package lifecycle

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- RunServer(ctx, &ServerOptions{
			ListenAddr:      "127.0.0.1:0",
			GRPCAddr:        "127.0.0.1:0",
			Handler:         http.NotFoundHandler(),
			ShutdownTimeout: time.Second,
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServerReportsListenFailure(t *testing.T) {
	err := RunServer(context.Background(), &ServerOptions{
		ListenAddr: "127.0.0.1:99999",
		Handler:    http.NotFoundHandler(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
}
