// Package cache keeps the outcome of the previous run per project so failed
// scenarios can be re-run on their own.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
)

const lastRunFile = "last-run.json"

// projectNamespace scopes the IDs derived from project roots.
var projectNamespace = uuid.MustParse("5c0f1d2e-8a7b-4c3d-9e6f-0a1b2c3d4e5f")

// LastRun is the stored outcome of a run.
type LastRun struct {
	FinishedAt time.Time `json:"finishedAt"`
	Failed     []string  `json:"failed"`
	Passed     []string  `json:"passed"`
}

// RunCache stores the last run of one project.
type RunCache struct {
	dir string
}

// NewRunCache returns the cache for the project rooted at root. The directory
// is <os.UserCacheDir()>/tusk-harness/<project id>/, or
// $TUSK_HARNESS_CACHE_DIR/<project id>/ when that is set.
func NewRunCache(root string) (*RunCache, error) {
	base := os.Getenv("TUSK_HARNESS_CACHE_DIR")
	if base == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user cache directory: %w", err)
		}
		base = filepath.Join(userCacheDir, "tusk-harness")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return NewRunCacheAt(filepath.Join(base, ProjectID(abs)))
}

// NewRunCacheAt uses dir directly.
func NewRunCacheAt(dir string) (*RunCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &RunCache{dir: dir}, nil
}

// ProjectID is a stable name for a project root.
func ProjectID(root string) string {
	return uuid.NewSHA1(projectNamespace, []byte(filepath.Clean(root))).String()
}

// Load returns the last run, or nil when there is none. A corrupted file is
// treated as missing.
func (c *RunCache) Load() (*LastRun, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, lastRunFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}
	var run LastRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, nil
	}
	return &run, nil
}

// Save merges a run into the stored one. Scenarios not part of the run keep
// their previous outcome, so re-running only the failures does not forget
// the rest.
func (c *RunCache) Save(passed, failed []string) error {
	prev, err := c.Load()
	if err != nil {
		return err
	}
	run := LastRun{FinishedAt: time.Now().UTC()}
	if prev != nil {
		run.Passed, run.Failed = prev.Passed, prev.Failed
	}
	run.Passed = merge(run.Passed, passed, failed)
	run.Failed = merge(run.Failed, failed, passed)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal last run: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, lastRunFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write last run: %w", err)
	}
	return nil
}

// Clear removes the stored run.
func (c *RunCache) Clear() error {
	if err := os.Remove(filepath.Join(c.dir, lastRunFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete last run: %w", err)
	}
	return nil
}

// merge adds ids to base and drops the ones in remove. The result is sorted.
func merge(base, ids, remove []string) []string {
	set := make(map[string]struct{}, len(base)+len(ids))
	for _, id := range base {
		set[id] = struct{}{}
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, id := range remove {
		delete(set, id)
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
