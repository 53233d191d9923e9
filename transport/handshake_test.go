package transport

import (
	"testing"
	"time"

	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/netconfig"
	"github.com/netplay-go/netsim/netpeer"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/wire"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *netconfig.Config {
	cfg := netconfig.Defaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.MaxConnections = 1
	cfg.ConnectRetryInterval = 10 * time.Millisecond
	cfg.ConnectMaxRetries = 50
	cfg.ConnectOverallTimeout = 2 * time.Second
	cfg.InactivityTimeout = time.Second
	return cfg
}

func runUntil(t *testing.T, deadline time.Duration, step func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if step() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHappyConnectThreeWayHandshake(t *testing.T) {
	serverCfg := newTestConfig()
	server := NewServer(serverCfg, nil)
	require.NoError(t, server.Start())
	defer server.Stop()

	var remoteConnected bool
	server.Subscribe(Callbacks{
		OnRemoteConnect: func(peerID uint16) { remoteConnected = true },
	})

	clientCfg := newTestConfig()
	client := NewClient(clientCfg, nil)
	require.NoError(t, client.Start())
	defer client.Stop()

	var localConnected bool
	client.Subscribe(Callbacks{
		OnLocalConnect: func() { localConnected = true },
	})

	require.NoError(t, client.Connect(server.LocalAddr()))

	runUntil(t, 3*time.Second, func() bool {
		server.Tick(time.Millisecond)
		client.Tick(time.Millisecond)
		return remoteConnected && localConnected
	})

	require.True(t, client.Connected())
	require.Equal(t, 1, server.peers.Len())
}

func TestServerFullDeniesExtraConnection(t *testing.T) {
	serverCfg := newTestConfig()
	serverCfg.MaxConnections = 1
	server := NewServer(serverCfg, nil)
	require.NoError(t, server.Start())
	defer server.Stop()

	firstCfg := newTestConfig()
	first := NewClient(firstCfg, nil)
	require.NoError(t, first.Start())
	defer first.Stop()
	require.NoError(t, first.Connect(server.LocalAddr()))

	runUntil(t, 3*time.Second, func() bool {
		server.Tick(time.Millisecond)
		first.Tick(time.Millisecond)
		return first.Connected()
	})

	secondCfg := newTestConfig()
	second := NewClient(secondCfg, nil)
	require.NoError(t, second.Start())
	defer second.Stop()

	var failedReason neterr.DisconnectReason
	second.Subscribe(Callbacks{
		OnLocalConnectionFailed: func(reason neterr.DisconnectReason) { failedReason = reason },
	})
	require.NoError(t, second.Connect(server.LocalAddr()))

	var denied bool
	runUntil(t, 3*time.Second, func() bool {
		server.Tick(time.Millisecond)
		first.Tick(time.Millisecond)
		second.Tick(time.Millisecond)
		denied = second.state == connFailed
		return denied
	})

	require.True(t, denied)
	require.Equal(t, neterr.ReasonServerFull, failedReason)
	require.Equal(t, 1, server.peers.Len())
}

func TestDuplicateConnectionRequestResendsIdenticalChallenge(t *testing.T) {
	serverCfg := newTestConfig()
	server := NewServer(serverCfg, nil)
	require.NoError(t, server.Start())
	defer server.Stop()

	addr := netaddr.Address{IP: [4]byte{127, 0, 0, 1}, Port: 9000}
	req := &wire.Message{Kind: wire.KindConnectionRequest, ClientSalt: 0xABCD}
	server.beginHandshake(addr, req)
	require.Equal(t, 1, server.peers.Len())

	rp, ok := server.peers.FindByAddress(addr)
	require.True(t, ok)
	ch := rp.Channel(netpeer.ChannelHandshake)

	first := ch.NextToSend()
	require.NotNil(t, first)
	require.Equal(t, wire.KindConnectionChallenge, first.Kind)

	for i := 0; i < 4; i++ {
		server.handleMessage(rp, req)
	}

	for i := 0; i < 4; i++ {
		resend := ch.NextToSend()
		require.NotNil(t, resend, "expected a resent challenge for retry %d", i+1)
		require.Equal(t, wire.KindConnectionChallenge, resend.Kind)
		require.Equal(t, first.ServerSalt, resend.ServerSalt)
		require.Equal(t, first.ClientSalt, resend.ClientSalt)
	}

	require.Nil(t, ch.NextToSend())
}

func TestAddressEqualityGuardsClientDatagramFilter(t *testing.T) {
	a := netaddr.Address{IP: [4]byte{127, 0, 0, 1}, Port: 1}
	b := netaddr.Address{IP: [4]byte{127, 0, 0, 1}, Port: 2}
	require.False(t, a.Equal(b))
	require.True(t, a.Equal(a))
}
