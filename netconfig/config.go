// Package netconfig loads transport tuning knobs and server identity
// metadata, replacing the teacher's hardcoded core/main.go loadConfig with
// viper-backed flags, environment variables, and an optional config file.
package netconfig

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config carries every tunable named in spec.md §6 plus the harmless
// server-identity metadata the teacher's Server struct already carried.
type Config struct {
	Host string
	Port int

	MaxPacketSize         int
	ProtocolID            uint32
	MaxConnections        int
	InactivityTimeout     time.Duration
	RTOInitial            time.Duration
	ConnectRetryInterval  time.Duration
	ConnectMaxRetries     int
	ConnectOverallTimeout time.Duration
	RecvBudgetPerTick     int

	ServerName string
	GameMode   string
	Language   string
	Weather    int
	WorldTime  int
	MapName    string
	WebURL     string
}

// Defaults returns the spec's stated default values.
func Defaults() *Config {
	return &Config{
		Host: "0.0.0.0",
		Port: 7777,

		MaxPacketSize:         1200,
		ProtocolID:            0x52504C31,
		MaxConnections:        64,
		InactivityTimeout:     5 * time.Second,
		RTOInitial:            200 * time.Millisecond,
		ConnectRetryInterval:  200 * time.Millisecond,
		ConnectMaxRetries:     10,
		ConnectOverallTimeout: 5 * time.Second,
		RecvBudgetPerTick:     256,

		ServerName: "netsim Server",
		GameMode:   "default",
		Language:   "English",
		Weather:    10,
		WorldTime:  12,
		MapName:    "unnamed",
		WebURL:     "",
	}
}

// RegisterFlags adds every knob as a cobra/pflag flag with the spec default
// as its fallback value, for callers that want `--flag` overrides.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String("host", d.Host, "bind address")
	flags.Int("port", d.Port, "bind port")
	flags.Int("max-packet-size", d.MaxPacketSize, "maximum outbound datagram size in bytes")
	flags.Uint32("protocol-id", d.ProtocolID, "protocol identifier stamped on every packet header")
	flags.Int("max-connections", d.MaxConnections, "maximum simultaneous remote peers")
	flags.Duration("inactivity-timeout", d.InactivityTimeout, "peer silence duration before timeout disconnect")
	flags.Duration("rto-initial", d.RTOInitial, "initial retransmit timeout for reliable channels")
	flags.Duration("connect-retry-interval", d.ConnectRetryInterval, "handshake retransmit interval")
	flags.Int("connect-max-retries", d.ConnectMaxRetries, "maximum handshake retransmissions")
	flags.Duration("connect-overall-timeout", d.ConnectOverallTimeout, "overall handshake timeout")
	flags.Int("recv-budget-per-tick", d.RecvBudgetPerTick, "maximum datagrams drained from the socket per tick")
	flags.String("server-name", d.ServerName, "server identity: display name")
	flags.String("game-mode", d.GameMode, "server identity: game mode label")
	flags.String("language", d.Language, "server identity: language")
	flags.Int("weather", d.Weather, "server identity: weather id")
	flags.Int("world-time", d.WorldTime, "server identity: world time (hour)")
	flags.String("map-name", d.MapName, "server identity: map name")
	flags.String("web-url", d.WebURL, "server identity: web url")
}

// Load binds environment variables (NETSIM_ prefix), an optional config
// file set via --config, and the registered flags, in viper's standard
// flag > env > file > default precedence, and decodes the result.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NETSIM")
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
		if cfgFile, _ := flags.GetString("config"); cfgFile != "" {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	cfg := Defaults()
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.MaxPacketSize = v.GetInt("max-packet-size")
	cfg.ProtocolID = uint32(v.GetUint32("protocol-id"))
	cfg.MaxConnections = v.GetInt("max-connections")
	cfg.InactivityTimeout = v.GetDuration("inactivity-timeout")
	cfg.RTOInitial = v.GetDuration("rto-initial")
	cfg.ConnectRetryInterval = v.GetDuration("connect-retry-interval")
	cfg.ConnectMaxRetries = v.GetInt("connect-max-retries")
	cfg.ConnectOverallTimeout = v.GetDuration("connect-overall-timeout")
	cfg.RecvBudgetPerTick = v.GetInt("recv-budget-per-tick")
	cfg.ServerName = v.GetString("server-name")
	cfg.GameMode = v.GetString("game-mode")
	cfg.Language = v.GetString("language")
	cfg.Weather = v.GetInt("weather")
	cfg.WorldTime = v.GetInt("world-time")
	cfg.MapName = v.GetString("map-name")
	cfg.WebURL = v.GetString("web-url")

	applyZeroDefaults(cfg)
	return cfg, nil
}

// applyZeroDefaults restores spec defaults for any knob viper reported as
// its Go zero value because nothing bound it (no flag set, no env, no file).
func applyZeroDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Host == "" {
		cfg.Host = d.Host
	}
	if cfg.Port == 0 {
		cfg.Port = d.Port
	}
	if cfg.MaxPacketSize == 0 {
		cfg.MaxPacketSize = d.MaxPacketSize
	}
	if cfg.ProtocolID == 0 {
		cfg.ProtocolID = d.ProtocolID
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = d.MaxConnections
	}
	if cfg.InactivityTimeout == 0 {
		cfg.InactivityTimeout = d.InactivityTimeout
	}
	if cfg.RTOInitial == 0 {
		cfg.RTOInitial = d.RTOInitial
	}
	if cfg.ConnectRetryInterval == 0 {
		cfg.ConnectRetryInterval = d.ConnectRetryInterval
	}
	if cfg.ConnectMaxRetries == 0 {
		cfg.ConnectMaxRetries = d.ConnectMaxRetries
	}
	if cfg.ConnectOverallTimeout == 0 {
		cfg.ConnectOverallTimeout = d.ConnectOverallTimeout
	}
	if cfg.RecvBudgetPerTick == 0 {
		cfg.RecvBudgetPerTick = d.RecvBudgetPerTick
	}
}
