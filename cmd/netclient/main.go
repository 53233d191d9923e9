// Command netclient is a minimal embedding host exercising transport.Client
// against a netserver instance: connects, logs lifecycle events, applies
// replicated entities, and ticks until interrupted.
package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/netconfig"
	"github.com/netplay-go/netsim/netlog"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/replication"
	"github.com/netplay-go/netsim/transport"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

type demoEntity struct {
	typeID uint32
	posX   float32
	posY   float32
}

type demoFactory struct {
	log *netlog.Logger
}

func (f *demoFactory) Create(typeID uint32, id replication.EntityID, controlledBy uint32, x, y float32, vars *replication.NetworkVariableChangesHandler) any {
	f.log.Info("entity replicated", zap.Uint32("type_id", typeID), zap.Uint32("entity_id", uint32(id)))
	return &demoEntity{typeID: typeID, posX: x, posY: y}
}

func (f *demoFactory) Destroy(handle any) {
	f.log.Info("entity removed")
}

func main() {
	root := &cobra.Command{
		Use:   "netclient <server-host:port>",
		Short: "Connects to a netsim server and prints lifecycle events",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	netconfig.RegisterFlags(root.Flags())
	root.Flags().String("config", "", "optional YAML config file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	netlog.Banner("netclient", version)

	cfg, err := netconfig.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log := netlog.New(zapcore.InfoLevel)
	defer log.Sync()

	udpAddr, err := net.ResolveUDPAddr("udp4", args[0])
	if err != nil {
		log.Fatal("could not resolve server address", zap.String("addr", args[0]), zap.Error(err))
		return nil
	}
	serverAddr, ok := netaddr.FromUDPAddr(udpAddr)
	if !ok {
		log.Fatal("server address is not a valid IPv4 endpoint", zap.String("addr", args[0]))
		return nil
	}

	client := transport.NewClient(cfg, log)
	client.RegisterEntityFactory(&demoFactory{log: log})

	failed := make(chan neterr.DisconnectReason, 1)
	client.Subscribe(transport.Callbacks{
		OnLocalConnect: func() {
			log.Success("connected to server", zap.Uint16("assigned_peer_id", client.LocalPeerID))
		},
		OnLocalConnectionFailed: func(reason neterr.DisconnectReason) {
			log.Error("connection failed", zap.String("reason", reason.String()))
			failed <- reason
		},
		OnLocalDisconnect: func(reason neterr.DisconnectReason) {
			log.Warn("disconnected", zap.String("reason", reason.String()))
		},
	})

	if err := client.Start(); err != nil {
		return err
	}
	if err := client.Connect(serverAddr); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			client.Tick(33 * time.Millisecond)
		case <-failed:
			return nil
		case sig := <-sigCh:
			log.Warn("received signal, disconnecting", zap.String("signal", sig.String()))
			client.Stop()
			return nil
		}
	}
}
