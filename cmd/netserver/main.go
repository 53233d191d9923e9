// Command netserver is a minimal embedding host exercising transport.Server
// and replication.Manager end to end, the way core/main.go exercised the
// teacher's RakNet Server: load config, print a banner, run the tick loop
// until a shutdown signal arrives.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netplay-go/netsim/netconfig"
	"github.com/netplay-go/netsim/netlog"
	"github.com/netplay-go/netsim/netmetrics"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/replication"
	"github.com/netplay-go/netsim/transport"
	"github.com/spf13/cobra"
	"net/http"
)

const version = "0.1.0"

// demoEntity stands in for the game-side object the factory callback would
// normally create; this command only needs enough state to prove entities
// replicate end to end.
type demoEntity struct {
	typeID uint32
	posX   float32
	posY   float32
}

type demoFactory struct {
	log *netlog.Logger
}

func (f *demoFactory) Create(typeID uint32, id replication.EntityID, controlledBy uint32, x, y float32, vars *replication.NetworkVariableChangesHandler) any {
	f.log.Info("entity created", zap.Uint32("type_id", typeID), zap.Uint32("entity_id", uint32(id)))
	return &demoEntity{typeID: typeID, posX: x, posY: y}
}

func (f *demoFactory) Destroy(handle any) {
	f.log.Info("entity destroyed")
}

func main() {
	root := &cobra.Command{
		Use:   "netserver",
		Short: "Runs the authoritative netsim server",
		RunE:  run,
	}
	netconfig.RegisterFlags(root.Flags())
	root.Flags().String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	root.Flags().String("config", "", "optional YAML config file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	netlog.Banner("netserver", version)

	cfg, err := netconfig.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log := netlog.New(zapcore.InfoLevel)
	defer log.Sync()

	netlog.Section("Configuration")
	log.Info("listening",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port),
		zap.Int("max_connections", cfg.MaxConnections))
	log.Info("server identity",
		zap.String("name", cfg.ServerName), zap.String("game_mode", cfg.GameMode),
		zap.String("map", cfg.MapName))

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", netmetrics.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", addr))
	}

	srv := transport.NewServer(cfg, log)
	srv.RegisterEntityFactory(&demoFactory{log: log})
	srv.Subscribe(transport.Callbacks{
		OnRemoteConnect: func(peerID uint16) {
			log.Success("peer connected", zap.Uint16("peer_id", peerID))
		},
		OnRemoteDisconnect: func(peerID uint16, reason neterr.DisconnectReason) {
			log.Info("peer disconnected", zap.Uint16("peer_id", peerID), zap.String("reason", reason.String()))
		},
	})

	if err := srv.Start(); err != nil {
		return err
	}
	netlog.Section("Server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			srv.Tick(33 * time.Millisecond)
		case sig := <-sigCh:
			log.Warn("received signal, shutting down", zap.String("signal", sig.String()))
			srv.Stop()
			log.Success("server stopped")
			return nil
		}
	}
}
