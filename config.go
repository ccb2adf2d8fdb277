package main

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port      int            `mapstructure:"port"`
	Env       string         `mapstructure:"env"`
	Pepper    string         `mapstructure:"pepper"`
	JWTSecret string         `mapstructure:"jwt_secret"`
	Database  PostgresConfig `mapstructure:"database"`
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (pc PostgresConfig) ConnectionInfo() string {
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
			pc.Host, pc.Port, pc.User, pc.Name, pc.SSLMode)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.Name, pc.SSLMode)
}

// LoadConfig reads configuration from an optional config.yml next to the
// binary, with environment variables taking precedence and dev defaults
// filling the gaps. In production the config file is required.
func LoadConfig(requireFile bool) (Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	viper.SetDefault("port", 1111)
	viper.SetDefault("env", "dev")
	viper.SetDefault("pepper", "secret-random-string")
	viper.SetDefault("jwt_secret", "secret-jwt-key")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "conduit")
	viper.SetDefault("database.sslmode", "disable")

	if err := viper.ReadInConfig(); err != nil {
		if requireFile {
			return Config{}, fmt.Errorf("config.yml is required in production: %w", err)
		}
	}

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("err unmarshalling config: %w", err)
	}
	return c, nil
}
