package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaconlabs/chiwarp/server"
)

func TestServer_GracefulShutdown(t *testing.T) {
	requestStarted := make(chan struct{})

	slowHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(requestStarted)
		time.Sleep(1 * time.Second)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("finished"))
	})

	srv := server.New(server.Config{Addr: "127.0.0.1:0"}, slowHandler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(t.Context())
	}()

	addr := srv.Addr()
	require.NotEmpty(t, addr, "server never became ready")

	clientResult := make(chan string, 1)
	go func() {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			clientResult <- "error: " + err.Error()
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		clientResult <- string(body)
	}()

	<-requestStarted

	// Shut down while the request is still in flight.
	shutdownStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	select {
	case res := <-clientResult:
		assert.Equal(t, "finished", res)
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for the client response")
	}

	select {
	case errServer := <-serverErr:
		assert.NoError(t, errServer)
	case <-time.After(1 * time.Second):
		t.Error("Server did not stop after Shutdown")
	}

	if duration := time.Since(shutdownStart); duration < 1*time.Second {
		t.Errorf("Shutdown returned too fast (%v), it did not wait for the handler", duration)
	}
}

func TestServer_TLS(t *testing.T) {
	// Borrow a certificate and a trusting client from httptest.
	ref := httptest.NewTLSServer(http.NotFoundHandler())
	defer ref.Close()

	srv := server.New(server.Config{Addr: "127.0.0.1:0", TLS: ref.TLS.Clone()},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte("secure"))
		}))
	require.True(t, srv.TLS())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(t.Context())
	}()
	addr := srv.Addr()
	require.NotEmpty(t, addr)

	resp, err := ref.Client().Get("https://" + addr)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "secure", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-serverErr)
}

func TestServer_ListenError(t *testing.T) {
	srv := server.New(server.Config{}, http.NotFoundHandler())
	err := srv.Listen(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
