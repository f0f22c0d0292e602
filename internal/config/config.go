package config

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers       []string         `mapstructure:"brokers"`
	ConsumerGroup string           `mapstructure:"consumer_group"`
	Topic         KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	AuctionOutcome   string `mapstructure:"auction_outcome"`   // consumed from the crawler
	SettlementResult string `mapstructure:"settlement_result"` // published after a batch commits
}

// BusinessConfig carries the mock-bidding game tunables.
//
// The rates are strings parsed into decimals so 10% and 80% stay exact instead
// of riding on float64.
type BusinessConfig struct {
	MockBidCost          int64  `mapstructure:"mock_bid_cost"`           // flat entry fee in points
	CancelRefundPoints   int64  `mapstructure:"cancel_refund_points"`    // refund on cancel/suspend, matches the fee
	CancelRewardXP       int64  `mapstructure:"cancel_reward_xp"`        // consolation xp on cancel/suspend
	EligibleBandRate     string `mapstructure:"eligible_band_rate"`      // upper bound multiplier over the sale price
	LoserPoolRate        string `mapstructure:"loser_pool_rate"`         // share of loser fees paid into the winner pool
	SettleRetrySeconds   int    `mapstructure:"settle_retry_seconds"`    // retry job tick
	SettleRetryGraceSecs int    `mapstructure:"settle_retry_grace_secs"` // leave fresh PENDING rows to the async path
	MaxRetryCount        int    `mapstructure:"max_retry_count"`
}

var GlobalConfig *Config

// LoadConfig reads and parses the YAML config file. Fatal on failure: the
// service cannot run half-configured.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("parse config file: %v", err)
	}

	GlobalConfig = config
	return config
}

// DefaultBusiness returns the game tunables with their documented defaults.
// Used when a config section is absent (and by tests).
func DefaultBusiness() BusinessConfig {
	return BusinessConfig{
		MockBidCost:          30,
		CancelRefundPoints:   30,
		CancelRewardXP:       50,
		EligibleBandRate:     "1.10",
		LoserPoolRate:        "0.8",
		SettleRetrySeconds:   30,
		SettleRetryGraceSecs: 60,
		MaxRetryCount:        5,
	}
}
