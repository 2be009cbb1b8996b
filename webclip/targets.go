package webclip

import (
	"context"
	"fmt"

	"github.com/hazyhaar/webclip/internal/config"
	"github.com/hazyhaar/webclip/internal/store"
)

// Store is the SQLite job history, also holding stored capture targets.
type Store = store.Store

// Job is one row of the job history.
type Job = store.Job

// OpenStore opens the job store at path and ensures the capture_targets
// table exists next to the jobs.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureSchema(ctx, st.DB()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Targets returns the configured targets followed by the active targets
// stored in the job store. A stored target with the ID of a configured
// one is skipped.
func (s *Service) Targets(ctx context.Context) ([]Target, error) {
	out := append([]Target(nil), s.cfg.Targets...)
	if s.jobs == nil {
		return out, nil
	}
	stored, err := config.LoadTargets(ctx, s.jobs.DB())
	if err != nil {
		return nil, fmt.Errorf("webclip: load targets: %w", err)
	}
	seen := make(map[string]bool, len(out))
	for _, t := range out {
		if t.ID != "" {
			seen[t.ID] = true
		}
	}
	for _, t := range stored {
		if !seen[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

// SaveTarget stores a target for later capture runs.
func (s *Service) SaveTarget(ctx context.Context, t Target) error {
	if s.jobs == nil {
		return ErrNoStore
	}
	switch t.Mode {
	case "", ModeAuto, ModeCapture, ModeText:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, t.Mode)
	}
	return config.SaveTarget(ctx, s.jobs.DB(), t)
}

// DisableTarget deactivates a stored target.
func (s *Service) DisableTarget(ctx context.Context, id string) error {
	if s.jobs == nil {
		return ErrNoStore
	}
	return config.DisableTarget(ctx, s.jobs.DB(), id)
}
