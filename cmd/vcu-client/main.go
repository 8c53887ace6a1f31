// Command vcu-client is the operational CLI for one dispatch-console
// session: register, fetch catalogs, select/release a radio, or just
// serve the dialog loop in the foreground.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebas/vcuswitch/internal/banner"
	"github.com/sebas/vcuswitch/internal/client"
	"github.com/sebas/vcuswitch/internal/config"
	"github.com/sebas/vcuswitch/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile string
	user    string
	v       *viper.Viper
	cli     *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "vcu-client",
	Short: "VCU dispatch-console client",
	Long:  "vcu-client registers a dispatch console against a switching server and exercises its radio catalog and selection operations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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

		cli = client.New(client.Config{
			User:          user,
			LocalIP:       cfg.ClientIP,
			LocalPort:     cfg.ClientPort,
			ServerIP:      cfg.ServerIP,
			ServerPort:    cfg.ServerPort,
			LocalRTPPort:  cfg.ClientRTPPort,
			RemoteRTPPort: cfg.ServerRTPPort,
		}, nil, nil)

		return cli.Start()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cli != nil {
			_ = cli.Stop()
		}
	},
}

func init() {
	v = config.New("")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "seat1", "console seat identifier")
	config.BindFlags(rootCmd, v)

	rootCmd.AddCommand(registerCmd, keepaliveCmd, phoneBtnCmd, frequencyBtnCmd,
		radioBtnCmd, functionBtnCmd, allFreqCmd, selectRadioCmd, byeCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// waitIdle blocks for the issued action's response and reports its
// transaction failure, if any, e.g. an abandoned retry.
func waitIdle() error {
	cli.WaitIdle()
	return cli.LastError()
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the console and fetch its channel/role catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Register(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		fmt.Printf("status=%s role=%s channels=%v\n", cli.Status(), cli.SelectedRole(), cli.ChannelList())
		return nil
	},
}

var keepaliveCmd = &cobra.Command{
	Use:   "keepalive",
	Short: "Send a single heartbeat",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.KeepAlive(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		fmt.Printf("status=%s\n", cli.Status())
		return nil
	},
}

var phoneBtnCmd = &cobra.Command{
	Use:   "phone-btn",
	Short: "Fetch the phone button catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.GetPhoneBtn(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		for _, b := range cli.PhoneButtons() {
			fmt.Printf("%s\t%s\n", b.Name, b.Tel)
		}
		return nil
	},
}

var frequencyBtnCmd = &cobra.Command{
	Use:   "frequency-btn",
	Short: "Fetch the frequency button catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.GetFrequencyBtn(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		fmt.Println(cli.FrequencyList())
		return nil
	},
}

var radioBtnCmd = &cobra.Command{
	Use:   "radio-btn",
	Short: "Fetch the radio catalog for the known frequencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.GetRadioBtn(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		for code, r := range cli.RadioDict() {
			fmt.Printf("%s\tfreq=%s type=%d avail=%d\n", code, r.Freq, r.Type, r.Avail)
		}
		return nil
	},
}

var functionBtnCmd = &cobra.Command{
	Use:   "function-btn",
	Short: "Fetch the function button catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.GetFunctionBtn(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		for _, b := range cli.FunctionButtons() {
			fmt.Printf("%s\ttype=%d\n", b.Name, b.Type)
		}
		return nil
	},
}

var allFreqCmd = &cobra.Command{
	Use:   "all-freq",
	Short: "Fetch every frequency the server knows of",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.GetAllFrequencyBtn(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		fmt.Println(cli.FrequencyList())
		return nil
	},
}

var selectRadioCmd = &cobra.Command{
	Use:   "select-radio <code>",
	Short: "Select a radio for transmit or receive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.SelectRadio(args[0]); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		send, recv := cli.HeldRadios()
		fmt.Printf("send=%v recv=%v\n", send, recv)
		return nil
	},
}

var byeCmd = &cobra.Command{
	Use:   "bye <code>",
	Short: "Release a held radio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Bye(args[0]); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		send, recv := cli.HeldRadios()
		fmt.Printf("send=%v recv=%v\n", send, recv)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Register and keep the dialog loop running until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		banner.Print("VCU Dispatch Client", []banner.ConfigLine{
			{Label: "User", Value: user},
		})

		if err := cli.Register(); err != nil {
			return err
		}
		if err := waitIdle(); err != nil {
			return err
		}
		logger.Info("[CLIENT] registered", "role", cli.SelectedRole(), "channels", cli.ChannelList())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("[CLIENT] received signal, shutting down", "signal", sig)
		return nil
	},
}
