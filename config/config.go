package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig 覆盖房间默认参数；零值表示使用内置默认
type GameConfig struct {
	MaxPlayers     int `mapstructure:"max_players"`
	MinPlayers     int `mapstructure:"min_players"`
	LobbyCountdown int `mapstructure:"lobby_countdown"`
	SetupTime      int `mapstructure:"setup_time"`
	TurnTime       int `mapstructure:"turn_time"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
