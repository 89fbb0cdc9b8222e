// Package checker orchestrates a run: it reads migration files, parses them,
// applies suppression blocks and dispatches statements to the enabled checks.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"pg-guard/internal/checks"
	"pg-guard/internal/config"
	"pg-guard/internal/directive"
	"pg-guard/internal/model"
	"pg-guard/internal/parser"
)

// Checker runs the enabled checks over SQL text, files and migration trees.
type Checker struct {
	registry    *checks.Registry
	cfg         *config.Config
	concurrency int
}

// New builds a Checker from configuration.
func New(cfg *config.Config) *Checker {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Checker{
		registry:    checks.NewRegistry(cfg.DisableChecks, cfg.Policy()),
		cfg:         cfg,
		concurrency: runtime.NumCPU(),
	}
}

// CheckSQL runs every enabled check over a single file's SQL text.
//
// Directive errors are fatal: with a malformed suppression block the file's
// intent is ambiguous. A parse failure on SQL matching a known hard-to-parse
// DDL shape degrades the file to zero statements with a warning instead of
// failing the run.
func (c *Checker) CheckSQL(sql string) ([]model.Violation, error) {
	ranges, err := directive.Parse(sql)
	if err != nil {
		return nil, err
	}

	stmts, err := parser.Parse(sql)
	if err != nil {
		if parser.ContainsUnsupportedSyntax(sql) {
			slog.Warn("file contains SQL the parser cannot handle, skipping its statements", "error", err)
			return nil, nil
		}
		return nil, err
	}

	lines := parser.StatementLines(stmts, sql)
	ignored := directive.IgnoredLines(ranges)

	return c.registry.CheckStatements(stmts, lines, ignored), nil
}

// CheckFile reads and checks one SQL file.
func (c *Checker) CheckFile(path string) model.FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FileResult{Path: path, Err: fmt.Errorf("reading %s: %w", path, err)}
	}

	violations, err := c.CheckSQL(string(data))
	if err != nil {
		return model.FileResult{Path: path, Err: fmt.Errorf("%s: %w", path, err)}
	}
	return model.FileResult{Path: path, Violations: violations}
}

// CheckPath checks a single file or a migration directory.
func (c *Checker) CheckPath(ctx context.Context, path string) ([]model.FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []model.FileResult{c.CheckFile(path)}, nil
	}
	return c.CheckDirectory(ctx, path)
}

// CheckDirectory walks a migrations directory and checks each migration
// concurrently. The expected layout is one subdirectory per migration
// holding up.sql and optionally down.sql; loose .sql files in the directory
// itself are checked too. The start_after filter applies only to migration
// subdirectories, whose names carry the timestamp.
func (c *Checker) CheckDirectory(ctx context.Context, dir string) ([]model.FileResult, error) {
	paths, err := c.collectFiles(dir)
	if err != nil {
		return nil, err
	}

	results := c.runPool(ctx, paths)

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}

func (c *Checker) collectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		if !entry.IsDir() {
			if strings.EqualFold(filepath.Ext(name), ".sql") {
				paths = append(paths, filepath.Join(dir, name))
			}
			continue
		}

		if !c.cfg.ShouldCheckMigration(name) {
			continue
		}

		up := filepath.Join(dir, name, "up.sql")
		if _, err := os.Stat(up); err == nil {
			paths = append(paths, up)
		}
		if c.cfg.CheckDown {
			down := filepath.Join(dir, name, "down.sql")
			if _, err := os.Stat(down); err == nil {
				paths = append(paths, down)
			}
		}
	}
	return paths, nil
}

// runPool fans the file list out to a fixed set of workers. Results carry
// per-file errors so one broken file does not abort the batch.
func (c *Checker) runPool(ctx context.Context, paths []string) []model.FileResult {
	jobs := make(chan string)
	out := make(chan model.FileResult)

	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				select {
				case out <- c.CheckFile(path):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]model.FileResult, 0, len(paths))
	for res := range out {
		results = append(results, res)
	}
	return results
}
