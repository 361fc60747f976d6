package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"irbridge/internal/app"
	"irbridge/internal/archive"
	"irbridge/internal/bus"
	"irbridge/internal/command"
	"irbridge/internal/config"
	"irbridge/internal/ir"
	"irbridge/internal/learn"
	"irbridge/internal/logger"
	"irbridge/internal/player"
	"irbridge/internal/router"
)

// ServeCmd runs the bridge daemon. Hardware transceivers plug in by
// implementing ir.Transmitter / ir.Receiver; the default wiring logs
// transmissions, which is enough to exercise the bus side end to end.
func ServeCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MQTT to IR bridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath, ir.LogTransmitter{}, ir.NullReceiver{})
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config/config.yaml", "Path to configuration file")
	return cmd
}

func runServe(cfgPath string, tx ir.Transmitter, recv ir.Receiver) error {
	cfg := config.Init(cfgPath)
	if err := logger.Init(cfg.LogPath); err != nil {
		return err
	}

	topics := bus.Topics{Prefix: cfg.TopicPrefix}
	store := command.NewStore(command.MaxCommands)

	var arc *archive.Archive
	if cfg.ArchivePath != "" {
		a, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			logger.Warnf("command archive unavailable (%v), continuing without", err)
		} else {
			arc = a
			defer arc.Close()
			app.SeedFromArchive(store, arc)
		}
	}

	cli := bus.NewMQTT(bus.MQTTConfig{
		BrokerAddr:    cfg.BrokerAddr(),
		Username:      cfg.BrokerUser,
		Password:      cfg.BrokerPass,
		ClientID:      cfg.ClientID,
		StateTopic:    topics.State(),
		Subscriptions: topics.Subscriptions(),
		RetryDelay:    cfg.RetryDelay,
	})
	defer cli.Close()

	ind := &ir.LogIndicator{}
	status := bus.NewStatusEmitter(cli, topics.State())
	session := learn.NewSession(store, recv, cli, topics, status)
	play := player.New(tx, ind, status)
	rt := router.New(topics, store, play, session, status)
	if arc != nil {
		rt.SetArchive(arc)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("irbridge starting, broker=%s prefix=%s", cfg.BrokerAddr(), cfg.TopicPrefix)
	err := app.New(cli, store, rt, session, recv, ind, status, cfg.PollInterval).Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown signal received, exiting")
		return nil
	}
	return err
}
