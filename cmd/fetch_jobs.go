package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/headhunter"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/secrets"
	"github.com/spigell/smartmatch/internal/validation"
)

var fetchJobsCmd = &cobra.Command{
	Use:   "fetch-jobs",
	Short: "Search hh.ru vacancies and store them as jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		fetchJobs(cmd)
	},
}

func init() {
	rootCmd.AddCommand(fetchJobsCmd)

	fetchJobsCmd.Flags().StringP("text", "t", "", "search text, overrides headhunter.search.text")
	fetchJobsCmd.Flags().IntSlice("area", nil, "hh.ru area ids, overrides headhunter.search.areas")
	fetchJobsCmd.Flags().Int("pages", 1, "max result pages to fetch, 0 fetches all")
	fetchJobsCmd.Flags().Bool("dry-run", false, "print the jobs without storing them")
}

func fetchJobs(cmd *cobra.Command) {
	ctx := context.Background()

	log := newLogger()
	defer log.Sync()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	params := config.HH.Search
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		params.Text = text
	}
	if areas, _ := cmd.Flags().GetIntSlice("area"); len(areas) > 0 {
		params.Areas = areas
	}
	pages, _ := cmd.Flags().GetInt("pages")

	token, err := secrets.Load(secrets.Source{
		Name:     "headhunter token",
		Value:    config.HH.Token,
		File:     config.HH.TokenFile,
		Optional: true,
	})
	if err != nil {
		log.Fatal("loading headhunter token", zap.Error(err),
			zap.String("hint", "set HH_TOKEN_FILE environment variable or the 'headhunter.token-file' key"),
		)
	}

	hh := headhunter.New(log, token)
	if config.HH.UserAgent != "" {
		hh.UserAgent = config.HH.UserAgent
	}

	log.Info("starting the search", zap.String("search", params.Text))

	jobs, err := hh.SearchJobs(ctx, params, pages)
	if err != nil {
		log.Fatal("searching vacancies", zap.Error(err))
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		for _, j := range jobs {
			fmt.Printf("%s | %s | %s\n", j.Company, j.Title, j.City)
		}
		return
	}

	store, err := openStore(ctx, config, log)
	if err != nil {
		log.Fatal("opening the store", zap.Error(err))
	}
	defer store.Close()

	v := validation.New()
	stored := 0
	// TODO: skip vacancies whose hh_id is already stored.
	for _, j := range jobs {
		if err := v.Struct(j); err != nil {
			log.Warn("skipping vacancy", zap.Any("hh_id", j.Criteria["hh_id"]), zap.Error(err))
			continue
		}
		if err := store.CreateJob(ctx, j); err != nil {
			log.Fatal("storing job", zap.Error(err))
		}
		log.Debug("job stored", zap.Int64(logger.FieldJobID, j.ID), zap.String("title", j.Title))
		stored++
	}

	log.Info("jobs imported", zap.Int("found", len(jobs)), zap.Int("stored", stored))
}
