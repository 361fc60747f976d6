package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	BrokerHost  string
	BrokerPort  int
	BrokerUser  string
	BrokerPass  string
	ClientID    string
	TopicPrefix string
	ArchivePath string
	LogPath     string

	PollInterval time.Duration
	RetryDelay   time.Duration
}

var cfg AppConfig

// Init loads configuration from the given YAML file, falling back to
// defaults for anything missing. Returns the loaded config.
func Init(path string) AppConfig {
	defaultArchive := filepath.Join(os.TempDir(), "irbridge", "commands.db")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// defaults
	v.SetDefault("mqtt.host", "127.0.0.1")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.retry_delay_ms", 1000)
	v.SetDefault("bridge.topic_prefix", "home/ir/1")
	v.SetDefault("bridge.archive_path", defaultArchive)
	v.SetDefault("bridge.log_path", "")
	v.SetDefault("bridge.poll_interval_ms", 10)
	_ = v.ReadInConfig()

	cfg = AppConfig{
		BrokerHost:   v.GetString("mqtt.host"),
		BrokerPort:   v.GetInt("mqtt.port"),
		BrokerUser:   v.GetString("mqtt.username"),
		BrokerPass:   v.GetString("mqtt.password"),
		ClientID:     v.GetString("mqtt.client_id"),
		TopicPrefix:  v.GetString("bridge.topic_prefix"),
		ArchivePath:  v.GetString("bridge.archive_path"),
		LogPath:      v.GetString("bridge.log_path"),
		PollInterval: time.Duration(v.GetInt("bridge.poll_interval_ms")) * time.Millisecond,
		RetryDelay:   time.Duration(v.GetInt("mqtt.retry_delay_ms")) * time.Millisecond,
	}
	return cfg
}

func Get() AppConfig { return cfg }

func (c AppConfig) BrokerAddr() string {
	return fmt.Sprintf("tcp://%s:%d", c.BrokerHost, c.BrokerPort)
}
