package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/assessment"
	"github.com/abhisek/lectern/internal/chaptertest"
	"github.com/abhisek/lectern/internal/concepts"
	"github.com/abhisek/lectern/internal/config"
	"github.com/abhisek/lectern/internal/enrich"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
	"github.com/abhisek/lectern/internal/materialize"
	"github.com/abhisek/lectern/internal/metrics"
	"github.com/abhisek/lectern/internal/progress"
	"github.com/abhisek/lectern/internal/session"
	"github.com/abhisek/lectern/internal/store"
	"github.com/abhisek/lectern/internal/store/badgerdb"
	"github.com/abhisek/lectern/internal/store/redisdb"
)

// runner carries what commands share. provider replaces the configured
// collaborator when set.
type runner struct {
	provider llm.Provider
}

// env is everything a command needs, built from config and flags.
type env struct {
	cfg      *config.Config
	log      *logging.Logger
	metrics  *metrics.Metrics
	store    *store.Store
	repo     store.LectureRepo
	provider llm.Provider
	lib      *session.Library

	closers []func() error
}

// needs selects the optional parts of an env.
type needs struct {
	llm bool
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.User = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		cfg.Metrics.Addr = v
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveDBPath returns the SQLite path: --db flag, then store.path when the
// sqlite driver is selected, then LECTERN_DB or the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}

// open builds the env. The SQLite store is always opened because it holds
// the LLM usage log; lectures live in the configured backend.
func (r *runner) open(cmd *cobra.Command, n needs) (_ *env, err error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	e := &env{cfg: cfg, log: log, metrics: metrics.New()}
	e.closers = append(e.closers, func() error { log.Sync(); return nil })
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	if addr := cfg.Metrics.Addr; addr != "" {
		mctx, cancel := context.WithCancel(context.Background())
		e.closers = append(e.closers, func() error { cancel(); return nil })
		go func() {
			if err := e.metrics.Serve(mctx, addr); err != nil {
				log.Warn("metrics server stopped", "addr", addr, "error", err.Error())
			}
		}()
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	e.store, err = store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.closers = append(e.closers, e.store.Close)

	if e.repo, err = e.openRepo(ctx); err != nil {
		return nil, err
	}

	if e.provider, err = r.newProvider(ctx, e, n); err != nil {
		return nil, err
	}

	e.lib = session.NewLibrary(cfg.User, e.services(e.provider))
	if err := e.lib.Load(ctx); err != nil {
		// Undecodable lectures are skipped; the rest stay usable.
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
	}
	return e, nil
}

func (e *env) openRepo(ctx context.Context) (store.LectureRepo, error) {
	sc := e.cfg.Store
	switch sc.Driver {
	case "badger":
		path := sc.Path
		if path == "" {
			home, err := store.DataHome()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(home, "badger")
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		repo, err := badgerdb.Open(badgerdb.Config{Path: path, Logger: e.log})
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		e.closers = append(e.closers, repo.Close)
		return repo, nil
	case "redis":
		repo, err := redisdb.Open(ctx, redisdb.Config{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		e.closers = append(e.closers, repo.Close)
		return repo, nil
	default:
		return e.store.Lectures(), nil
	}
}

// newProvider builds the collaborator. Commands that never generate content
// get a provider that refuses every request, so a missing API key does not
// block reading or exporting lectures.
func (r *runner) newProvider(ctx context.Context, e *env, n needs) (llm.Provider, error) {
	opts := llm.Options{
		Logger:    e.log,
		Recorders: []llm.UsageRecorder{e.store.Usage(), e.metrics},
	}
	if r.provider != nil {
		return llm.Wrap(r.provider, e.cfg.LLM, opts), nil
	}
	if !n.llm {
		return llm.NewMockProvider(), nil
	}
	if !e.cfg.LLM.HasKey() {
		return nil, errors.New("LLM provider not configured: set llm.provider and its api_key in lectern.yaml, " +
			"or export ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY or OPENROUTER_API_KEY")
	}
	p, err := llm.NewProvider(ctx, e.cfg.LLM, opts)
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	return p, nil
}

func (e *env) services(p llm.Provider) session.Services {
	cc := e.cfg.Curriculum

	conceptsCfg := concepts.DefaultConfig()
	conceptsCfg.UnlockPolicy = cc.Policy()

	matCfg := materialize.DefaultConfig()
	matCfg.PrefetchConcurrency = cc.PrefetchConcurrency

	progCfg := progress.DefaultConfig()
	progCfg.Policy = cc.Policy()
	progCfg.PassPercentage = cc.TestPassPercentage

	return session.Services{
		Planner:      concepts.NewCoordinator(p, conceptsCfg, e.log),
		Materializer: materialize.New(p, matCfg, e.log, e.metrics),
		Enrichment:   enrich.New(p, enrich.DefaultConfig(), e.log, e.metrics),
		Probes:       assessment.NewGenerator(p, assessment.DefaultConfig(), e.log),
		Progress:     progress.NewTracker(progCfg, e.log),
		Tests:        chaptertest.New(p, chaptertest.DefaultConfig(), e.log, e.metrics),
		Repo:         e.repo,
		Log:          e.log,
	}
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lecture opens a lecture by ID or unique ID prefix.
func (e *env) lecture(id string) (*session.Context, error) {
	return e.lib.Open(id)
}

// withEnv opens an env for the command and closes it after fn returns.
func (r *runner) withEnv(n needs, fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := r.open(cmd, n)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		return fn(cmd, e, args)
	}
}
