package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectpulse/pulsebot/pkg/models"
)

// FileStore keeps one flat JSON document per project key under a data
// directory ("<KEY>_survey.json"). Writes go through a per-key lock and an
// atomic rename so a concurrent save cannot observe a torn file.
type FileStore struct {
	dir   string
	locks *keyLocks
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create survey data dir: %w", err)
	}
	return &FileStore{dir: dir, locks: newKeyLocks()}, nil
}

func (s *FileStore) path(projectKey string) string {
	return filepath.Join(s.dir, projectKey+"_survey.json")
}

func (s *FileStore) read(projectKey string) (models.SurveyRecord, error) {
	data, err := os.ReadFile(s.path(projectKey))
	if os.IsNotExist(err) {
		return models.SurveyRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read survey record for %s: %w", projectKey, err)
	}

	record := models.SurveyRecord{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode survey record for %s: %w", projectKey, err)
	}
	return record, nil
}

// Load returns the stored record, or an empty one when the file is absent.
func (s *FileStore) Load(ctx context.Context, projectKey string) (models.SurveyRecord, error) {
	lock := s.locks.get(projectKey)
	lock.Lock()
	defer lock.Unlock()
	return s.read(projectKey)
}

// Save merges one answer into the record and writes the full document back.
func (s *FileStore) Save(ctx context.Context, projectKey string, question QuestionID, answer string) error {
	lock := s.locks.get(projectKey)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.read(projectKey)
	if err != nil {
		return err
	}
	record[string(question)] = answer

	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode survey record for %s: %w", projectKey, err)
	}

	tmp := s.path(projectKey) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write survey record for %s: %w", projectKey, err)
	}
	if err := os.Rename(tmp, s.path(projectKey)); err != nil {
		return fmt.Errorf("failed to replace survey record for %s: %w", projectKey, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
