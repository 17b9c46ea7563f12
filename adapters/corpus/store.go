package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cloneops/domain/persona"
	"cloneops/internal/errors"
	"cloneops/ports"
)

// Store reads the persona corpus and writes simulation results using flat
// JSON files. The corpus is an immutable read-only array; the results file
// is overwritten on every save. Files are searched across candidate roots so
// local and deployed layouts both resolve.
type Store struct {
	corpusFile  string
	resultsFile string
	roots       []string
}

// NewStore creates a store searching the given roots in order.
func NewStore(corpusFile, resultsFile string, roots []string) *Store {
	if len(roots) == 0 {
		cwd, _ := os.Getwd()
		roots = []string{cwd}
	}
	return &Store{corpusFile: corpusFile, resultsFile: resultsFile, roots: roots}
}

// rawEntry is the on-disk corpus record shape.
type rawEntry struct {
	UserID          string `json:"user_id"`
	Summary         string `json:"summary"`
	Prompt          string `json:"prompt"`
	EngagementScore int    `json:"engagement_score"`
}

// LoadPersonas reads the whole corpus. Index is assigned from array
// position and scores are clamped on the way in, so every consumer sees
// records that already satisfy the domain invariants.
func (s *Store) LoadPersonas(ctx context.Context) ([]persona.Record, error) {
	path, err := s.findFile(s.corpusFile)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read corpus file %s", path)
	}
	var entries []rawEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(err, "corpus file %s is not a JSON array", path)
	}

	records := make([]persona.Record, len(entries))
	for i, e := range entries {
		records[i] = persona.Record{
			Index:           i,
			UserID:          e.UserID,
			Summary:         e.Summary,
			Prompt:          e.Prompt,
			EngagementScore: persona.ClampScore(e.EngagementScore),
		}
		if records[i].UserID == "" {
			records[i].UserID = fmt.Sprintf("%d", i)
		}
	}
	return records, nil
}

// LoadPersonaByIndex returns one record or NotFound past the corpus end.
func (s *Store) LoadPersonaByIndex(ctx context.Context, idx int) (*persona.Record, error) {
	if idx < 0 {
		return nil, errors.InvalidInput("persona index must be non-negative")
	}
	records, err := s.LoadPersonas(ctx)
	if err != nil {
		return nil, err
	}
	if idx >= len(records) {
		return nil, errors.NotFound(fmt.Sprintf("persona at index %d", idx))
	}
	rec := records[idx]
	return &rec, nil
}

// SaveResults overwrites the results file at the first writable candidate
// path and returns where it landed.
func (s *Store) SaveResults(ctx context.Context, results []ports.ConversationResult) (string, error) {
	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode simulation results")
	}
	var lastErr error
	for _, root := range s.roots {
		path := filepath.Join(root, s.resultsFile)
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			lastErr = err
			continue
		}
		return path, nil
	}
	return "", errors.Wrap(lastErr, "failed to save simulation results")
}

// LoadResults reads back the latest saved results.
func (s *Store) LoadResults(ctx context.Context) ([]ports.ConversationResult, error) {
	path, err := s.findFile(s.resultsFile)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read results file %s", path)
	}
	var results []ports.ConversationResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, errors.Wrapf(err, "results file %s is malformed", path)
	}
	return results, nil
}

func (s *Store) findFile(name string) (string, error) {
	for _, root := range s.roots {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.CorpusMissing(name)
}
