/**
 * @description
 * This file handles the configuration management for the payment-validation
 * service. It uses the Viper library to read settings from environment
 * variables or a .env file.
 *
 * @dependencies
 * - github.com/spf13/viper: For configuration management.
 */
package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	OpenBankingProvider     string `mapstructure:"OPEN_BANKING_PROVIDER"`
	OpenBankingAPIKey       string `mapstructure:"OPEN_BANKING_API_KEY"`
	OpenBankingClientID     string `mapstructure:"OPEN_BANKING_CLIENT_ID"`
	OpenBankingClientSecret string `mapstructure:"OPEN_BANKING_CLIENT_SECRET"`
	OpenBankingRedirectURI  string `mapstructure:"OPEN_BANKING_REDIRECT_URI"`

	// VerificationMode selects live Open Banking verification or the
	// labeled simulation for environments without vendor credentials.
	VerificationMode string `mapstructure:"VERIFICATION_MODE"`

	ConsentExpirySweepSchedule string `mapstructure:"CONSENT_EXPIRY_SWEEP_SCHEDULE"`

	ValidationRateLimit       int `mapstructure:"VALIDATION_RATE_LIMIT"`
	ValidationRateLimitWindow int `mapstructure:"VALIDATION_RATE_LIMIT_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OPEN_BANKING_PROVIDER", "truelayer")
	viper.SetDefault("VERIFICATION_MODE", "simulated")
	viper.SetDefault("CONSENT_EXPIRY_SWEEP_SCHEDULE", "0 * * * *")
	viper.SetDefault("VALIDATION_RATE_LIMIT", 30)
	viper.SetDefault("VALIDATION_RATE_LIMIT_WINDOW_SECONDS", 60)

	// Bind envs explicitly so containers pick them up reliably
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("OPEN_BANKING_PROVIDER")
	_ = viper.BindEnv("OPEN_BANKING_API_KEY")
	_ = viper.BindEnv("OPEN_BANKING_CLIENT_ID")
	_ = viper.BindEnv("OPEN_BANKING_CLIENT_SECRET")
	_ = viper.BindEnv("OPEN_BANKING_REDIRECT_URI")
	_ = viper.BindEnv("VERIFICATION_MODE")
	_ = viper.BindEnv("CONSENT_EXPIRY_SWEEP_SCHEDULE")
	_ = viper.BindEnv("VALIDATION_RATE_LIMIT")
	_ = viper.BindEnv("VALIDATION_RATE_LIMIT_WINDOW_SECONDS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Error reading config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.VerificationMode != "live" && config.VerificationMode != "simulated" {
		return nil, fmt.Errorf("VERIFICATION_MODE must be 'live' or 'simulated', got %q", config.VerificationMode)
	}

	return &config, nil
}
