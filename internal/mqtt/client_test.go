package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proxnode/internal/errors"
)

func TestNewClientValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid tcp", cfg: Config{Broker: "tcp://127.0.0.1:1883", ClientID: "anchor-1"}},
		{name: "valid websocket", cfg: Config{Broker: "wss://broker.example.com:443/mqtt", ClientID: "anchor-1"}},
		{name: "missing broker", cfg: Config{ClientID: "anchor-1"}, wantErr: true},
		{name: "bad scheme", cfg: Config{Broker: "http://broker:1883", ClientID: "anchor-1"}, wantErr: true},
		{name: "no host", cfg: Config{Broker: "tcp://:1883", ClientID: "anchor-1"}, wantErr: true},
		{name: "missing client id", cfg: Config{Broker: "tcp://127.0.0.1:1883"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewClient(tt.cfg, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				return
			}
			require.NoError(t, err)
			assert.False(t, c.IsConnected())
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{QoS: 7}.withDefaults()
	assert.Equal(t, DefaultConfig().ConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultConfig().PublishTimeout, cfg.PublishTimeout)
	assert.Equal(t, byte(1), cfg.QoS)
}

func TestPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883", ClientID: "anchor-1"}, nil)
	require.NoError(t, err)

	err = c.Publish(context.Background(), "proxnode/anchor-1", []byte("{}"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTT))

	c.Disconnect()
}

func TestConnectRefused(t *testing.T) {
	t.Parallel()

	// grab a free port and close it so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := NewClient(Config{
		Broker:         "tcp://" + addr,
		ClientID:       "anchor-1",
		ConnectTimeout: 2 * time.Second,
	}, nil)
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTT))
	assert.False(t, c.IsConnected())
	c.Disconnect()
}
