package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Chain    *ChainConfig    `mapstructure:"chain"`
	Raffle   *RaffleConfig   `mapstructure:"raffle"`
}

type APIConfig struct {
	Environment        string `mapstructure:"environment"`
	BaseURL            string `mapstructure:"base_url"`
	Port               string `mapstructure:"port"`
	JWTSigningKey      string `mapstructure:"jwt_signing_key"`
	AllowedCORSDomains string `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ChainConfig describes the blockchain endpoint used to verify ticket
// payments and to send out prizes.
type ChainConfig struct {
	RPCURL             string        `mapstructure:"rpc_url"`
	ChainID            int64         `mapstructure:"chain_id"`
	TreasuryAddress    string        `mapstructure:"treasury_address"`
	TreasuryPrivateKey string        `mapstructure:"treasury_private_key"`
	MinConfirmations   uint64        `mapstructure:"min_confirmations"`
	MinTicketPrice     float64       `mapstructure:"min_ticket_price"`
	AmountTolerance    float64       `mapstructure:"amount_tolerance"`
	RPCTimeout         time.Duration `mapstructure:"rpc_timeout"`
}

type RaffleConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	WeekDuration  time.Duration `mapstructure:"week_duration"`
	TicketPrice   float64       `mapstructure:"ticket_price"`
	QuestionTTL   time.Duration `mapstructure:"question_ttl"`
	StatsTTL      time.Duration `mapstructure:"stats_ttl"`
}

func Load(configPath string) (*AppConfig, error) {
	conf := &AppConfig{}

	viper.SetConfigFile(configPath)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper.ReadInConfig -> %w", err)
	}

	if err := viper.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal -> %w", err)
	}

	if conf.Raffle.WeekDuration == 0 {
		conf.Raffle.WeekDuration = 7 * 24 * time.Hour
	}
	if conf.Raffle.SweepInterval == 0 {
		conf.Raffle.SweepInterval = time.Hour
	}
	if conf.Chain.RPCTimeout == 0 {
		conf.Chain.RPCTimeout = 5 * time.Second
	}

	return conf, nil
}
