package chiwarp_test

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iaconlabs/chiwarp"
)

func TestAdapter_CloseBeforeInit(t *testing.T) {
	a := chiwarp.New()
	assert.NoError(t, a.Close(context.Background()))
	assert.Nil(t, a.GetHTTPServer())
	assert.Empty(t, a.Addr())
}

func TestAdapter_ListenBeforeInit(t *testing.T) {
	a := chiwarp.New()
	err := a.Listen(context.Background(), "127.0.0.1:0")
	assert.ErrorIs(t, err, chiwarp.ErrServerNotInitialized)
}

func TestAdapter_InitHTTPServer_ServerSlot(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		a := chiwarp.New()
		a.InitHTTPServer(chiwarp.ApplicationOptions{ReadTimeout: 3 * time.Second})

		srv := a.GetHTTPServer()
		require.NotNil(t, srv)
		assert.Same(t, srv, a.GetInstance().Server())
		assert.Equal(t, 3*time.Second, srv.ReadTimeout)
		assert.Equal(t, a, srv.Handler)
	})

	t.Run("TLS", func(t *testing.T) {
		a := chiwarp.New()
		a.InitHTTPServer(chiwarp.ApplicationOptions{HTTPSOptions: &tls.Config{MinVersion: tls.VersionTLS12}})

		require.NotNil(t, a.GetHTTPServer())
		assert.NotNil(t, a.GetHTTPServer().TLSConfig)
		assert.Nil(t, a.GetInstance().Server())
	})
}

func TestAdapter_ListenAndClose(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := chiwarp.New(chiwarp.WithLogger(zap.New(core)))
	a.GetInstance().GET("/ping", func(w http.ResponseWriter, r *http.Request) {
		_ = a.Reply(w, "pong", 0)
	})
	a.InitHTTPServer(chiwarp.ApplicationOptions{})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- a.Listen(context.Background(), "127.0.0.1:0")
	}()

	addr := a.Addr()
	require.NotEmpty(t, addr, "server never became ready")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))

	select {
	case err := <-listenErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after Close")
	}

	_, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err, "listener should be released after Close")

	assert.Equal(t, 1, logs.FilterMessage("http server initialized").Len())
	assert.Equal(t, 1, logs.FilterMessage("listening").Len())
	assert.Equal(t, 1, logs.FilterMessage("server closed").Len())
}

func TestAdapter_ListenError(t *testing.T) {
	a := chiwarp.New()
	a.InitHTTPServer(chiwarp.ApplicationOptions{})

	err := a.Listen(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
