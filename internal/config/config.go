// Package config loads the client/server key-value configuration surface
// (client.ip, client.port, client.rtp_port, server.ip, server.port,
// server.rtp_port) from a YAML file, environment variables, and CLI flags.
package config

import (
	"net"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved client/server endpoint configuration.
type Config struct {
	ClientIP      string
	ClientPort    int
	ClientRTPPort int

	ServerIP      string
	ServerPort    int
	ServerRTPPort int

	LogLevel string
	LogFile  string
}

// New builds a *viper.Viper pre-loaded with defaults, the VCU_ environment
// prefix, and (if present) a YAML config file.
func New(configPath string) *viper.Viper {
	v := viper.New()

	v.SetDefault("client.ip", getPrimaryInterfaceIP())
	v.SetDefault("client.port", 5070)
	v.SetDefault("client.rtp_port", 16386)
	v.SetDefault("server.ip", "127.0.0.1")
	v.SetDefault("server.port", 5060)
	v.SetDefault("server.rtp_port", 16387)
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.file", "vcuswitch.log")

	v.SetEnvPrefix("VCU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing/unreadable file is not fatal: defaults, env vars,
			// and flags still apply.
			_ = err
		}
	}

	return v
}

// BindFlags registers the config-backed flags on a cobra command and ties
// them into v, so CLI flags take precedence over the file and environment.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("client-ip", "", "client bind IP (default: auto-detected)")
	flags.Int("client-port", 0, "client SIP port")
	flags.Int("client-rtp-port", 0, "client RTP port")
	flags.String("server-ip", "", "server IP")
	flags.Int("server-port", 0, "server SIP port")
	flags.Int("server-rtp-port", 0, "server RTP port")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "rotating log file path")

	_ = v.BindPFlag("client.ip", flags.Lookup("client-ip"))
	_ = v.BindPFlag("client.port", flags.Lookup("client-port"))
	_ = v.BindPFlag("client.rtp_port", flags.Lookup("client-rtp-port"))
	_ = v.BindPFlag("server.ip", flags.Lookup("server-ip"))
	_ = v.BindPFlag("server.port", flags.Lookup("server-port"))
	_ = v.BindPFlag("server.rtp_port", flags.Lookup("server-rtp-port"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
}

// Resolve reads the bound keys out of v into a Config, falling back to
// auto-detection for an empty client IP.
func Resolve(v *viper.Viper) *Config {
	cfg := &Config{
		ClientIP:      v.GetString("client.ip"),
		ClientPort:    v.GetInt("client.port"),
		ClientRTPPort: v.GetInt("client.rtp_port"),
		ServerIP:      v.GetString("server.ip"),
		ServerPort:    v.GetInt("server.port"),
		ServerRTPPort: v.GetInt("server.rtp_port"),
		LogLevel:      v.GetString("log.level"),
		LogFile:       v.GetString("log.file"),
	}
	if cfg.ClientIP == "" {
		cfg.ClientIP = getPrimaryInterfaceIP()
	}
	return cfg
}

// getPrimaryInterfaceIP detects the primary non-loopback IPv4 address,
// falling back to localhost when none is found.
func getPrimaryInterfaceIP() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return "127.0.0.1"
}
