package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/ai"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/matching"
	"github.com/spigell/smartmatch/internal/profile"
	"github.com/spigell/smartmatch/internal/storage"
)

const reviewTimeout = 30 * time.Second

var errNothingToSelect = errors.New("nothing to select")

type matchOutput struct {
	matching.Result
	AIReview *ai.Review `json:"ai_review,omitempty"`
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score one candidate against one job",
	Long: "Score one candidate against one job. Records come from JSON files (--candidate-file/--job-file)\n" +
		"or from the store by id; missing ids are chosen interactively.",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Int64("job-id", 0, "stored job id")
	matchCmd.Flags().Int64("candidate-id", 0, "stored candidate id")
	matchCmd.Flags().String("job-file", "", "job JSON file, bypasses the store")
	matchCmd.Flags().String("candidate-file", "", "candidate JSON file, bypasses the store")
	matchCmd.Flags().Bool("save", false, "persist the result as a match (store mode only)")
	matchCmd.Flags().Bool("ai", false, "add an AI review when ai is configured")
}

func runMatch(cmd *cobra.Command) {
	ctx := context.Background()

	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	jobFile, _ := cmd.Flags().GetString("job-file")
	candidateFile, _ := cmd.Flags().GetString("candidate-file")

	var (
		cand  *profile.Candidate
		job   *profile.Job
		store *storage.SQLStore
	)

	if jobFile != "" || candidateFile != "" {
		if jobFile == "" || candidateFile == "" {
			logger.Fatal("both --job-file and --candidate-file are required in file mode")
		}
		cand, job, err = loadPair(candidateFile, jobFile)
		if err != nil {
			logger.Fatal("loading records", zap.Error(err))
		}
	} else {
		store, err = openStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		jobID, _ := cmd.Flags().GetInt64("job-id")
		candidateID, _ := cmd.Flags().GetInt64("candidate-id")

		job, err = pickJob(ctx, store, jobID)
		if err != nil {
			logger.Fatal("choosing a job", zap.Error(err))
		}
		cand, err = pickCandidate(ctx, store, candidateID)
		if err != nil {
			logger.Fatal("choosing a candidate", zap.Error(err))
		}
	}

	result := matching.Match(cand, job)
	out := matchOutput{Result: result}
	log := logger.With(matchLogFields(cand, job, result.Score)...)

	if save, _ := cmd.Flags().GetBool("save"); save && store != nil {
		record := &storage.Match{
			CandidateID: cand.ID,
			JobID:       job.ID,
			Score:       result.Score,
			Reasons:     result.Reasons,
			Insights:    result.Insights,
		}
		if err := store.SaveMatch(ctx, record); err != nil {
			log.Fatal("saving the match", zap.Error(err))
		}
		log.Info("match saved", zap.Int64("match_id", record.ID))
	}

	if withAI, _ := cmd.Flags().GetBool("ai"); withAI {
		reviewer, err := newReviewer(ctx, config.AI, logger)
		switch {
		case err != nil:
			log.Warn("skipping AI review", zap.Error(err))
		case reviewer == nil:
			log.Warn("skipping AI review", zap.String("reason", "ai is disabled in config"))
		default:
			reviewCtx, cancel := context.WithTimeout(ctx, reviewTimeout)
			out.AIReview, err = reviewer.Review(reviewCtx, cand, job, result)
			cancel()
			if err != nil {
				log.Warn("ai review failed", zap.Error(err))
			}
		}
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal("encoding the result", zap.Error(err))
	}
	fmt.Println(string(pretty))
}

func matchLogFields(c *profile.Candidate, j *profile.Job, score float64) []zap.Field {
	return logger.MatchFields(c.ID, j.ID, score)
}

func loadPair(candidateFile, jobFile string) (*profile.Candidate, *profile.Job, error) {
	var (
		cand profile.Candidate
		job  profile.Job
	)
	if err := readJSON(candidateFile, &cand); err != nil {
		return nil, nil, err
	}
	if err := readJSON(jobFile, &job); err != nil {
		return nil, nil, err
	}
	return &cand, &job, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func pickJob(ctx context.Context, store storage.Store, id int64) (*profile.Job, error) {
	if id != 0 {
		return store.GetJob(ctx, id)
	}

	jobs, err := store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, fmt.Sprintf("%d %s | %s | %s", j.ID, j.Company, j.Title, j.City))
	}

	idx, err := choose("Choose a job and press ENTER", items)
	if err != nil {
		return nil, err
	}
	return jobs[idx], nil
}

func pickCandidate(ctx context.Context, store storage.Store, id int64) (*profile.Candidate, error) {
	if id != 0 {
		return store.GetCandidate(ctx, id)
	}

	candidates, err := store.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, fmt.Sprintf("%d %s | %s | %s", c.ID, c.Name, c.Title, c.City))
	}

	idx, err := choose("Choose a candidate and press ENTER", items)
	if err != nil {
		return nil, err
	}
	return candidates[idx], nil
}

func choose(label string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, errNothingToSelect
	}

	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return idx, nil
}
