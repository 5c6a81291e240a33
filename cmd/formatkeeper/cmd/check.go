package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/formatkeeper/internal/cache"
	"github.com/solatis/formatkeeper/internal/check"
	"github.com/solatis/formatkeeper/internal/core/config"
	"github.com/solatis/formatkeeper/internal/core/db"
	"github.com/solatis/formatkeeper/internal/report"
	"github.com/solatis/formatkeeper/internal/types"
	"github.com/solatis/formatkeeper/internal/watch"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] FILE...",
	Short: "Check documents against a rule file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var checkFlags struct {
	rules   string
	format  string
	output  string
	jobs    int
	noCache bool
	watch   bool
	failOn  bool
	record  bool
}

func init() {
	rootCmd.AddCommand(checkCmd)
	f := checkCmd.Flags()
	f.StringVarP(&checkFlags.rules, "rules", "r", "", "rule file (.yaml, .toml or .json)")
	f.StringVarP(&checkFlags.format, "format", "f", "text", "report format (text, json, html)")
	f.StringVarP(&checkFlags.output, "output", "o", "", "write the report to a file instead of stdout")
	f.IntVarP(&checkFlags.jobs, "jobs", "j", 0, "documents checked in parallel (default check.jobs)")
	f.BoolVar(&checkFlags.noCache, "no-cache", false, "do not read or write the result cache")
	f.BoolVarP(&checkFlags.watch, "watch", "w", false, "re-check when a document or the rule file changes")
	f.BoolVar(&checkFlags.failOn, "fail-on-diagnostics", false, "exit with status 2 when any diagnostic is found")
	f.BoolVar(&checkFlags.record, "record", false, "record runs in the history database")
}

// checkSession holds what one invocation of check needs across re-runs.
type checkSession struct {
	cfg      *config.Config
	cache    *cache.Cache
	store    *db.Store
	renderer report.Renderer
	files    []string
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("rules") {
		cfg.Check.RulesFile = checkFlags.rules
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Check.Jobs = checkFlags.jobs
	}
	if checkFlags.noCache {
		cfg.Check.Cache = false
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	s := &checkSession{cfg: cfg, files: args}

	out := os.Stdout
	s.renderer, err = report.NewRenderer(report.Format(checkFlags.format), report.Options{
		Color: checkFlags.output == "" && report.ColorEnabled(out),
		Width: report.TerminalWidth(out),
	})
	if err != nil {
		return err
	}

	if cfg.Check.Cache {
		c, err := cache.Open(cfg.Check.CacheDir, logger)
		if err != nil {
			logger.Warn("result cache disabled", "error", err)
		} else {
			s.cache = c
		}
	}

	if checkFlags.record {
		if err := requireDB(cfg); err != nil {
			return err
		}
		store, err := db.OpenStore(cfg.DB.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
		s.store = store
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if checkFlags.watch {
		return s.watch(ctx, cmd.ErrOrStderr())
	}

	runs, err := s.run(ctx)
	if err != nil {
		return err
	}
	if err := s.write(runs); err != nil {
		return err
	}
	if checkFlags.failOn {
		if n := report.Summarize(runs).Diagnostics; n > 0 {
			return &ExitError{Code: 2}
		}
	}
	return nil
}

func (s *checkSession) newChecker() (*check.Checker, error) {
	repo, err := loadRepository(s.cfg.Check.RulesFile, s.cfg.Check.DefaultStyle)
	if err != nil {
		return nil, err
	}
	opts := check.Options{Tolerances: &s.cfg.Check.Tolerances, Logger: logger}
	if s.cache != nil {
		opts.Cache = s.cache
	}
	return check.New(repo, opts), nil
}

// run checks every file in parallel. Results keep argument order.
func (s *checkSession) run(ctx context.Context) ([]*types.CheckRun, error) {
	checker, err := s.newChecker()
	if err != nil {
		return nil, err
	}

	runs := make([]*types.CheckRun, len(s.files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Check.Jobs)
	for i, path := range s.files {
		g.Go(func() error {
			run, err := checker.CheckFile(gctx, path)
			if err != nil {
				return err
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.store != nil {
		for _, run := range runs {
			if err := s.store.SaveRun(ctx, run); err != nil {
				return nil, err
			}
			logger.Info("run recorded", "run_id", run.ID, "document", run.Document)
		}
	}
	return runs, nil
}

func (s *checkSession) write(runs []*types.CheckRun) error {
	if checkFlags.output == "" {
		return s.renderer.Render(os.Stdout, runs)
	}
	f, err := os.Create(checkFlags.output)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := s.renderer.Render(f, runs); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// watch re-runs the whole check whenever a document or the rule file
// changes, until ctx is done.
func (s *checkSession) watch(ctx context.Context, status io.Writer) error {
	recheck := func() {
		runs, err := s.run(ctx)
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintln(status, "check failed:", err)
			}
			return
		}
		if err := s.write(runs); err != nil {
			fmt.Fprintln(status, "check failed:", err)
			return
		}
		fmt.Fprintln(status, report.Summarize(runs).String())
	}
	recheck()

	watched := append([]string{s.cfg.Check.RulesFile}, s.files...)
	w, err := watch.New(watched, watch.Options{Logger: logger})
	if err != nil {
		return err
	}
	fmt.Fprintf(status, "watching %d file(s), press Ctrl-C to stop\n", len(watched))

	err = w.Run(ctx, func(paths []string) {
		names := make([]string, len(paths))
		for i, p := range paths {
			names[i] = filepath.Base(p)
		}
		fmt.Fprintf(status, "changed: %v\n", names)
		recheck()
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
