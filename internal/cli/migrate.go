package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"irbridge/internal/bus"
	"irbridge/internal/command"
	"irbridge/internal/config"
	"irbridge/internal/logger"
)

// MigrateCmd publishes a YAML file of command definitions to the broker as
// retained messages, seeding (or restoring) the bridge's command set.
//
// File shape: a map of command name to wire definition, e.g.
//
//	tv_power:
//	  proto: Samsung
//	  addr: 7
//	  cmd: 2
//	fan_power:
//	  raw: true
//	  freq: 38
//	  data: [1330, 270, 1380]
func MigrateCmd() *cobra.Command {
	var (
		cfgPath  string
		filePath string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Publish a YAML command set to the broker as retained definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cfgPath, filePath)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config/config.yaml", "Path to configuration file")
	cmd.Flags().StringVar(&filePath, "file", "commands.yaml", "Path to the command definitions file")
	return cmd
}

func runMigrate(cfgPath, filePath string) error {
	cfg := config.Init(cfgPath)
	if err := logger.Init(""); err != nil {
		return err
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	var defs map[string]map[string]any
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}
	if len(defs) == 0 {
		return fmt.Errorf("%s defines no commands", filePath)
	}

	topics := bus.Topics{Prefix: cfg.TopicPrefix}
	cli := bus.NewMQTT(bus.MQTTConfig{
		BrokerAddr: cfg.BrokerAddr(),
		Username:   cfg.BrokerUser,
		Password:   cfg.BrokerPass,
		ClientID:   cfg.ClientID,
		RetryDelay: cfg.RetryDelay,
	})
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := cli.EnsureConnected(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.BrokerAddr(), err)
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	published := 0
	for _, name := range names {
		payload, err := json.Marshal(defs[name])
		if err != nil {
			logger.Errorf("skipping %s: %v", name, err)
			continue
		}
		// Validate against the same codec the bridge uses before making
		// the definition durable on the broker.
		if _, _, err := command.Decode(name, payload); err != nil {
			logger.Errorf("skipping %s: %v", name, err)
			continue
		}
		if err := cli.Publish(topics.Command(name), payload, true); err != nil {
			logger.Errorf("publish %s failed: %v", name, err)
			continue
		}
		logger.Infof("published %s", name)
		published++
	}

	logger.Infof("%d/%d commands published to %s", published, len(defs), cfg.BrokerAddr())
	if published < len(defs) {
		return fmt.Errorf("%d commands failed", len(defs)-published)
	}
	return nil
}
