package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/filtering"
	"github.com/spigell/smartmatch/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <csv|hh|linkedin|telegram> FILE...",
	Short: "Import candidates from CSV or job board JSON exports",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runImport(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolP("allow-duplicates", "f", false, "store candidates even if the same person is already stored")
	importCmd.Flags().StringP("exclude-file", "e", "", "file with emails to skip, one per line")

	viper.BindPFlag("imports.exclude-file", importCmd.Flags().Lookup("exclude-file"))
}

func runImport(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	source, err := importer.ParseSource(args[0])
	if err != nil {
		logger.Fatal("parsing the source", zap.Error(err))
	}

	store, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer store.Close()

	allowDuplicates, _ := cmd.Flags().GetBool("allow-duplicates")
	imp := newImporter(store, config, allowDuplicates, logger)

	var (
		created, skipped int
		filters          []filtering.Status
	)
	for _, path := range args[1:] {
		result, err := importFile(ctx, imp, source, path)
		if err != nil {
			logger.Fatal("importing file", zap.String("file", path), zap.Error(err))
		}
		created += len(result.Created)
		skipped += result.Skipped
		filters = result.Filters
	}

	for _, f := range filters {
		fmt.Fprintf(cmd.OutOrStdout(), "%-18s enabled=%t %s\n", f.Name, f.Enabled, f.Reason)
	}

	logger.Info("import done",
		zap.String("source", string(source)),
		zap.Int("files", len(args)-1),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
}

func importFile(ctx context.Context, imp *importer.Importer, source importer.Source, path string) (*importer.Result, error) {
	if source == importer.SourceCSV {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return imp.ImportCSV(ctx, f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s must hold a JSON array of objects: %w", path, err)
	}
	return imp.ImportJSON(ctx, source, items)
}
