package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewValidates(t *testing.T) {
	_, err := New(Config{Address: ":0"}, nil)
	require.Error(t, err)

	_, err = New(Config{}, http.NotFoundHandler())
	require.ErrorContains(t, err, "address")

	srv, err := New(Config{Address: "127.0.0.1:0"}, http.NotFoundHandler())
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, srv.cfg.ShutdownTimeout)
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, err := New(Config{Address: "127.0.0.1:0", ShutdownTimeout: time.Second}, http.NotFoundHandler())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunReportsListenErrors(t *testing.T) {
	srv, err := New(Config{Address: "256.0.0.1:bad"}, http.NotFoundHandler())
	require.NoError(t, err)

	err = srv.Run(context.Background())
	require.ErrorContains(t, err, "server: listen")
}
