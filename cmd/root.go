package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/headhunter"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/secrets"
)

const (
	app = "smartmatch"

	defaultDatabaseURL = "sqlite:///smartmatch.db"
	defaultAddress     = ":8000"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	AI       *AIConfig      `mapstructure:"ai"`
	Events   EventsConfig   `mapstructure:"events"`
	Resumes  ResumesConfig  `mapstructure:"resumes"`
	Imports  ImportsConfig  `mapstructure:"imports"`
	HH       HHConfig       `mapstructure:"headhunter"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
	Driver  string `mapstructure:"driver"`
}

type ServerConfig struct {
	Address        string  `mapstructure:"address"`
	MatchRate      float64 `mapstructure:"match-rate"`
	MatchBurst     int     `mapstructure:"match-burst"`
	MaxUploadBytes int64   `mapstructure:"max-upload-bytes"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
	Tone         string `mapstructure:"tone"`
	Language     string `mapstructure:"language"`
	Instructions string `mapstructure:"instructions"`
}

type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp-url"`
	Exchange string `mapstructure:"exchange"`
}

type ResumesConfig struct {
	S3 S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access-key"`
	SecretKey     string `mapstructure:"secret-key"`
	SecretKeyFile string `mapstructure:"secret-key-file"`
}

type HHConfig struct {
	Token     string                  `mapstructure:"token"`
	TokenFile string                  `mapstructure:"token-file"`
	UserAgent string                  `mapstructure:"user-agent"`
	Search    headhunter.SearchParams `mapstructure:"search"`
}

type ImportsConfig struct {
	ExcludeEmails []string `mapstructure:"exclude-emails"`
	ExcludeFile   string   `mapstructure:"exclude-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "smartmatch scores candidates against job postings and explains the gaps",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"database.url":               "DATABASE_URL",
	"database.url-file":          "DATABASE_URL_FILE",
	"database.driver":            "DATABASE_DRIVER",
	"ai.gemini.api-key-file":     "GEMINI_API_KEY_FILE",
	"events.amqp-url":            "AMQP_URL",
	"headhunter.token-file":      "HH_TOKEN_FILE",
	"resumes.s3.secret-key-file": "S3_SECRET_KEY_FILE",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("database.url", defaultDatabaseURL)
	viper.SetDefault("server.address", defaultAddress)
	viper.SetDefault("events.exchange", "smartmatch")
	viper.SetDefault("ai.gemini.max-retries", 2)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is smartmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && (cfgFile != "" || !errors.As(err, &notFound)) {
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}
	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// databaseURL resolves the connection string, preferring url-file.
func databaseURL(cfg DatabaseConfig) (string, error) {
	url, err := secrets.Load(secrets.Source{
		Name:     "database url",
		Value:    cfg.URL,
		File:     cfg.URLFile,
		Optional: true,
	})
	if err != nil {
		return "", err
	}
	if url == "" {
		url = defaultDatabaseURL
	}
	return url, nil
}
