package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/blob"
	"github.com/spigell/smartmatch/internal/events"
	"github.com/spigell/smartmatch/internal/httpapi"
	"github.com/spigell/smartmatch/internal/secrets"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", defaultAddress, "listen address")
	serveCmd.Flags().Float64("match-rate", 0, "match requests per second, 0 means unlimited")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
	viper.BindPFlag("server.match-rate", serveCmd.Flags().Lookup("match-rate"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the smartmatch api", zap.String("version", version))

	store, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer store.Close()

	s3Secret, err := secrets.Load(secrets.Source{
		Name:     "s3 secret key",
		Value:    config.Resumes.S3.SecretKey,
		File:     config.Resumes.S3.SecretKeyFile,
		Optional: true,
	})
	if err != nil {
		logger.Fatal("loading s3 secret key", zap.Error(err))
	}

	archive, err := blob.New(ctx, blob.Config{
		Bucket:    config.Resumes.S3.Bucket,
		Region:    config.Resumes.S3.Region,
		Endpoint:  config.Resumes.S3.Endpoint,
		AccessKey: config.Resumes.S3.AccessKey,
		SecretKey: s3Secret,
	}, logger)
	if err != nil {
		logger.Fatal("configuring the resume archive", zap.Error(err))
	}

	publisher, err := events.Dial(ctx, events.Config{
		URL:      config.Events.AMQPURL,
		Exchange: config.Events.Exchange,
	}, logger)
	if err != nil {
		logger.Fatal("connecting to the event broker", zap.Error(err))
	}
	defer publisher.Close()

	reviewer, err := newReviewer(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("skipping AI review", zap.Error(err))
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Store:    store,
		Importer: newImporter(store, config, false, logger),
		Archive:  archive,
		Events:   publisher,
		Reviewer: reviewer,
		Logger:   logger,
	}, httpapi.Options{
		MatchRate:      config.Server.MatchRate,
		MatchBurst:     config.Server.MatchBurst,
		MaxUploadBytes: config.Server.MaxUploadBytes,
		Debug:          viper.GetBool("debug"),
	})

	if err := httpapi.Serve(ctx, config.Server.Address, router, logger); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}
