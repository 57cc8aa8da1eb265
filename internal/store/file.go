package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/waldjos/zoriapp/internal/model"
)

const (
	scheduleFile = "schedule.json"
	sendLogFile  = "send-log.jsonl"
)

// FileStore keeps the schedule as one JSON document (replaced via temp file
// + rename) and the send log as a line-delimited JSON file opened with
// O_APPEND, so concurrent log writers cannot clobber each other.
type FileStore struct {
	dir string

	mu sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Replace(ctx context.Context, entries []model.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entries == nil {
		entries = []model.ScheduleEntry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	target := filepath.Join(s.dir, scheduleFile)
	tmp, err := os.CreateTemp(s.dir, scheduleFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write schedule: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) ([]model.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, scheduleFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	var entries []model.ScheduleEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	return entries, nil
}

func (s *FileStore) Append(ctx context.Context, entry model.SendLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, sendLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append send log: %w", err)
	}

	if _, err := f.Write(append(b, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append send log: %w", err)
	}
	return f.Close()
}

func (s *FileStore) List(ctx context.Context, limit int) ([]model.SendLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(filepath.Join(s.dir, sendLogFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read send log: %w", err)
	}
	defer f.Close()

	var all []model.SendLogEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e model.SendLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decode send log: %w", err)
		}
		all = append(all, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read send log: %w", err)
	}

	// Newest first.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
