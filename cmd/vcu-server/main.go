// Command vcu-server is the canned-reply dispatch peer: it answers a
// single console's requests from a fixture file and drives one RTP
// endpoint across radio selection.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebas/vcuswitch/internal/banner"
	"github.com/sebas/vcuswitch/internal/config"
	"github.com/sebas/vcuswitch/internal/logger"
	"github.com/sebas/vcuswitch/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile      string
	fixturesPath string
	v            *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "vcu-server",
	Short: "VCU dispatch-console canned-reply server",
	Long:  "vcu-server answers dispatch-console requests from a fixture file, standing in for the production routing/role/catalog backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
			_ = v.ReadInConfig()
		}
		cfg := config.Resolve(v)

		logger.InitLogger(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		})
		logger.SetLevel(cfg.LogLevel)

		srv, err := server.New(server.Config{
			LocalIP:      cfg.ServerIP,
			LocalPort:    cfg.ServerPort,
			LocalRTPPort: cfg.ServerRTPPort,
			FixturesPath: fixturesPath,
		}, nil, nil)
		if err != nil {
			return fmt.Errorf("build server: %w", err)
		}

		banner.Print("VCU Dispatch Server", []banner.ConfigLine{
			{Label: "Listen", Value: fmt.Sprintf("%s:%d", cfg.ServerIP, cfg.ServerPort)},
			{Label: "RTP port", Value: fmt.Sprintf("%d", cfg.ServerRTPPort)},
			{Label: "Fixtures", Value: fixturesPath},
		})

		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("[SERVER] received signal, shutting down", "signal", sig)
		return nil
	},
}

func init() {
	v = config.New("")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&fixturesPath, "fixtures", "f", "resources/fixtures/canned_replies.json", "canned-reply fixture file")
	config.BindFlags(rootCmd, v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
