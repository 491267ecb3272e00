package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openadr-ven/client/cmd/venclient/commands"
	"github.com/openadr-ven/client/codec/xmlcodec"
	"github.com/openadr-ven/client/cron"
	"github.com/openadr-ven/client/logger"
	"github.com/openadr-ven/client/scheduler"
	"github.com/openadr-ven/client/transport"
	"github.com/openadr-ven/client/ven"
)

var rootCmd = &cobra.Command{
	Use:   "venclient",
	Short: "OpenADR 2.0b pull-mode VEN client",
	Long: `venclient runs a long-lived OpenADR 2.0b Virtual End Node: it
registers with a VTN, polls for instructions, reports declared
measurements, and responds to distributed events.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		logger.SetVerbosity(verbosity)
		return nil
	},
	RunE: runVEN,
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit structured JSON logs instead of console output")

	flags := rootCmd.Flags()
	flags.String("ven-name", "", "VEN name presented during registration")
	flags.String("ven-id", "", "VEN id, if previously assigned")
	flags.String("vtn-url", "", "VTN base URL (required)")
	flags.String("profile-name", "2.0b", "OpenADR profile name")
	flags.String("transport-name", "simpleHttp", "transport name advertised at registration")
	flags.String("transport-address", "", "this VEN's own address, as advertised to the VTN")
	flags.Bool("http-pull-model", true, "advertise pull-mode polling")
	flags.Bool("xml-signature", false, "sign outgoing messages")
	flags.Bool("report-only", false, "register as report-only (no event handling)")
	flags.Duration("poll-frequency", 10*time.Second, "how often to poll the VTN")
	flags.Bool("allow-jitter", true, "randomize poll timing slightly to avoid thundering-herd polling")
	flags.Duration("event-status-log-period", 5*time.Minute, "how often to recompute and log event status")
	flags.Duration("events-cleanup-period", 10*time.Minute, "how often to purge completed/cancelled events")
	flags.String("cert", "", "client certificate for mTLS")
	flags.String("key", "", "client private key for mTLS")
	flags.String("ca", "", "CA bundle used to validate the VTN's certificate")
	flags.Bool("check-hostname", true, "verify the VTN certificate's hostname")
	flags.String("config", "", "path to a config file (TOML or YAML)")

	viper.BindPFlags(flags)
	viper.SetEnvPrefix("VEN")
	viper.AutomaticEnv()

	rootCmd.AddCommand(commands.VersionCmd)
	rootCmd.AddCommand(commands.NewConfigCmd(func(cmd *cobra.Command) (ven.Config, error) {
		if err := loadConfig(cmd); err != nil {
			return ven.Config{}, err
		}
		return buildVENConfig(), nil
	}))
}

func loadConfig(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

func buildVENConfig() ven.Config {
	return ven.Config{
		VENName:              viper.GetString("ven-name"),
		VENID:                viper.GetString("ven-id"),
		VTNURL:                viper.GetString("vtn-url"),
		ProfileName:          viper.GetString("profile-name"),
		TransportName:        viper.GetString("transport-name"),
		TransportAddress:     viper.GetString("transport-address"),
		HTTPPullModel:        viper.GetBool("http-pull-model"),
		XMLSignature:         viper.GetBool("xml-signature"),
		ReportOnly:           viper.GetBool("report-only"),
		PollFrequency:        viper.GetDuration("poll-frequency"),
		AllowJitter:          viper.GetBool("allow-jitter"),
		EventStatusLogPeriod: viper.GetDuration("event-status-log-period"),
		EventsCleanUpPeriod:  viper.GetDuration("events-cleanup-period"),
		CertPath:             viper.GetString("cert"),
		KeyPath:              viper.GetString("key"),
		CAFile:               viper.GetString("ca"),
		CheckHostname:        viper.GetBool("check-hostname"),
	}
}

func runVEN(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}

	cfg := buildVENConfig()
	if cfg.VTNURL == "" {
		return fmt.Errorf("--vtn-url is required")
	}

	tp, err := transport.New(transport.Config{
		CertPath:      cfg.CertPath,
		KeyPath:       cfg.KeyPath,
		CAFile:        cfg.CAFile,
		CheckHostname: cfg.CheckHostname,
	})
	if err != nil {
		return fmt.Errorf("building transport: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(ctx)
	client := ven.New(cfg, &xmlcodec.Codec{}, tp, sched, cron.Helper{}, time.Now)

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		viper.OnConfigChange(func(fsnotify.Event) {
			client.Reconfigure(
				viper.GetDuration("poll-frequency"),
				viper.GetDuration("event-status-log-period"),
				viper.GetDuration("events-cleanup-period"),
			)
		})
		viper.WatchConfig()
	}

	logger.Infow("starting VEN client", logger.FieldVENID, cfg.VENID, "vtn_url", cfg.VTNURL)
	return client.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
