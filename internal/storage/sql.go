package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/profile"
	"github.com/spigell/smartmatch/internal/utils"
)

const (
	candidateColumns = `id, name, email, phone, city, years_experience, title, education, languages,
		salary_expectation, employment_type, resume_text, source, metadata_json`
	jobColumns = `id, company, city, min_experience, title, education, languages,
		salary_min, salary_max, employment_type, description, criteria_json`
	matchColumns = `id, candidate_id, job_id, score, reasons, insights, created_at`

	pingAttempts = 3
	pingStep     = 500 * time.Millisecond
)

// Options configures Open.
type Options struct {
	// Driver is sqlite or postgres. Empty means detect from URL.
	Driver string
	URL    string
	Logger *zap.Logger
}

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database and applies the schema.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DetectDriver(opts.URL)
	}

	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	dsn := opts.URL
	switch d.name {
	case DriverSQLite:
		dsn = sqlitePath(dsn)
	case DriverPostgres:
		dsn = postgresURL(dsn)
	}

	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}
	if d.maxOpenConns > 0 {
		db.SetMaxOpenConns(d.maxOpenConns)
	}

	log := logger.Component(opts.Logger, "storage")

	err = utils.Retry(ctx, pingAttempts, pingStep, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			log.Warn("database is not reachable yet", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", d.name, err)
	}

	s := &SQLStore{db: db, dialect: d, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("database ready", zap.String("driver", d.name))
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts, err := s.dialect.statements()
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	s.log.Debug("schema applied", zap.Int("statements", len(stmts)))
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) CreateCandidate(ctx context.Context, c *profile.Candidate) error {
	return s.insertCandidate(ctx, s.db, c)
}

// CreateCandidates stores the batch in one transaction. On error nothing is
// stored and the ids of the batch are left zero.
func (s *SQLStore) CreateCandidates(ctx context.Context, batch []*profile.Candidate) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin candidates batch: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback candidates batch", zap.Error(rbErr))
		}
		for _, c := range batch {
			c.ID = 0
		}
	}()

	for _, c := range batch {
		if err = s.insertCandidate(ctx, tx, c); err != nil {
			return fmt.Errorf("candidate %q: %w", c.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit candidates batch: %w", err)
	}
	return nil
}

func (s *SQLStore) insertCandidate(ctx context.Context, q rowQuerier, c *profile.Candidate) error {
	metadata, err := encodeMap(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode candidate metadata: %w", err)
	}

	query := s.dialect.rebind(`INSERT INTO candidates (name, email, phone, city, years_experience, title, education,
		languages, salary_expectation, employment_type, resume_text, source, metadata_json, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err = q.QueryRowContext(ctx, query,
		c.Name, c.Email, c.Phone, c.City, c.YearsExperience, c.Title, c.Education,
		c.Languages, nullInt(c.SalaryExpectation), c.EmploymentType, c.ResumeText, c.Source, metadata,
		c.Fingerprint(),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (s *SQLStore) GetCandidate(ctx context.Context, id int64) (*profile.Candidate, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`), id)

	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("candidate %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return c, nil
}

func (s *SQLStore) ListCandidates(ctx context.Context) ([]*profile.Candidate, error) {
	return s.queryCandidates(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY id DESC`)
}

// SearchCandidates matches q against title, resume text and languages and
// city as a substring, both case-insensitively. Empty filters are ignored.
func (s *SQLStore) SearchCandidates(ctx context.Context, q, city string) ([]*profile.Candidate, error) {
	where, args := searchFilter([]string{"title", "resume_text", "languages"}, q, city)
	return s.queryCandidates(ctx, `SELECT `+candidateColumns+` FROM candidates`+where+` ORDER BY id`, args...)
}

func (s *SQLStore) UpdateResume(ctx context.Context, candidateID int64, text string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`UPDATE candidates SET resume_text = ? WHERE id = ?`), text, candidateID)
	if err != nil {
		return fmt.Errorf("update resume of candidate %d: %w", candidateID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update resume of candidate %d: %w", candidateID, err)
	}
	if n == 0 {
		return fmt.Errorf("candidate %d: %w", candidateID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) CandidateExists(ctx context.Context, fingerprint string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT COUNT(*) FROM candidates WHERE fingerprint = ?`), fingerprint,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) queryCandidates(ctx context.Context, query string, args ...any) ([]*profile.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	out := make([]*profile.Candidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

func (s *SQLStore) CreateJob(ctx context.Context, j *profile.Job) error {
	criteria, err := encodeMap(j.Criteria)
	if err != nil {
		return fmt.Errorf("encode job criteria: %w", err)
	}

	query := s.dialect.rebind(`INSERT INTO jobs (company, city, min_experience, title, education, languages,
		salary_min, salary_max, employment_type, description, criteria_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err = s.db.QueryRowContext(ctx, query,
		j.Company, j.City, j.MinExperience, j.Title, j.Education, j.Languages,
		nullInt(j.SalaryMin), nullInt(j.SalaryMax), j.EmploymentType, j.Description, criteria,
	).Scan(&j.ID)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLStore) GetJob(ctx context.Context, id int64) (*profile.Job, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return j, nil
}

func (s *SQLStore) ListJobs(ctx context.Context) ([]*profile.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id DESC`)
}

// SearchJobs matches q against title, description and languages.
func (s *SQLStore) SearchJobs(ctx context.Context, q, city string) ([]*profile.Job, error) {
	where, args := searchFilter([]string{"title", "description", "languages"}, q, city)
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs`+where+` ORDER BY id`, args...)
}

func (s *SQLStore) queryJobs(ctx context.Context, query string, args ...any) ([]*profile.Job, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	out := make([]*profile.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

func (s *SQLStore) SaveMatch(ctx context.Context, m *Match) error {
	reasons, err := json.Marshal(m.Reasons)
	if err != nil {
		return fmt.Errorf("encode match reasons: %w", err)
	}
	bundle, err := json.Marshal(m.Insights)
	if err != nil {
		return fmt.Errorf("encode match insights: %w", err)
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := s.dialect.rebind(`INSERT INTO matches (candidate_id, job_id, score, reasons, insights, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)

	err = s.db.QueryRowContext(ctx, query,
		m.CandidateID, m.JobID, m.Score, string(reasons), string(bundle), m.CreatedAt.Format(time.RFC3339Nano),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// ListMatches returns persisted matches for a job, best score first.
func (s *SQLStore) ListMatches(ctx context.Context, jobID int64) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT `+matchColumns+` FROM matches WHERE job_id = ? ORDER BY score DESC, id`), jobID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	out := make([]Match, 0)
	for rows.Next() {
		var (
			m               Match
			reasons, bundle string
			createdAt       string
		)
		if err := rows.Scan(&m.ID, &m.CandidateID, &m.JobID, &m.Score, &reasons, &bundle, &createdAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if err := json.Unmarshal([]byte(reasons), &m.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons of match %d: %w", m.ID, err)
		}
		if bundle != "" {
			if err := json.Unmarshal([]byte(bundle), &m.Insights); err != nil {
				return nil, fmt.Errorf("decode insights of match %d: %w", m.ID, err)
			}
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of match %d: %w", m.ID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row scanner) (*profile.Candidate, error) {
	var (
		c        profile.Candidate
		salary   sql.NullInt64
		metadata string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.City, &c.YearsExperience, &c.Title, &c.Education,
		&c.Languages, &salary, &c.EmploymentType, &c.ResumeText, &c.Source, &metadata)
	if err != nil {
		return nil, err
	}

	c.SalaryExpectation = fromNullInt(salary)
	if c.Metadata, err = decodeMap(metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of candidate %d: %w", c.ID, err)
	}
	return &c, nil
}

func scanJob(row scanner) (*profile.Job, error) {
	var (
		j                    profile.Job
		salaryMin, salaryMax sql.NullInt64
		criteria             string
	)
	err := row.Scan(&j.ID, &j.Company, &j.City, &j.MinExperience, &j.Title, &j.Education, &j.Languages,
		&salaryMin, &salaryMax, &j.EmploymentType, &j.Description, &criteria)
	if err != nil {
		return nil, err
	}

	j.SalaryMin = fromNullInt(salaryMin)
	j.SalaryMax = fromNullInt(salaryMax)
	if j.Criteria, err = decodeMap(criteria); err != nil {
		return nil, fmt.Errorf("decode criteria of job %d: %w", j.ID, err)
	}
	return &j, nil
}

func searchFilter(textColumns []string, q, city string) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		ors := make([]string, 0, len(textColumns))
		for _, col := range textColumns {
			ors = append(ors, "LOWER("+col+") LIKE ?")
			args = append(args, like)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if city = strings.TrimSpace(city); city != "" {
		conds = append(conds, "LOWER(city) LIKE ?")
		args = append(args, "%"+strings.ToLower(city)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return profile.Int64(v.Int64)
}

func encodeMap(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMap(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
