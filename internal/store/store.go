// Package store persists episode records as one front-matter file per identifier.
package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/hpungsan/iapod/internal/episode"
	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/logging"
)

const (
	recordExt = ".md"
	lockName  = ".iapod.lock"
	filePerms = 0o644
)

// Store owns the on-disk representation of episode records.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New prepares dir and returns a store rooted there.
// Failure to create the directory is fatal for the caller.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewFatalIO(dir, err)
	}
	return &Store{dir: dir, logger: logging.OrDefault(logger)}, nil
}

// Dir returns the directory holding the record files.
func (s *Store) Dir() string { return s.dir }

// Path returns the canonical record path for identifier.
func (s *Store) Path(identifier string) string {
	return filepath.Join(s.dir, episode.FileNameFor(identifier))
}

// Exists reports whether a record file exists for identifier. It does not parse it.
func (s *Store) Exists(identifier string) bool {
	if validIdentifier(identifier) != nil {
		return false
	}
	info, err := os.Stat(s.Path(identifier))
	return err == nil && info.Mode().IsRegular()
}

// Load reads the record for identifier, filling and persisting missing
// derived fields. Returns NOT_FOUND or PARSE errors.
func (s *Store) Load(identifier string) (*episode.Episode, error) {
	if err := validIdentifier(identifier); err != nil {
		return nil, err
	}
	path := s.Path(identifier)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(identifier)
		}
		return nil, errors.NewParse(path, err)
	}
	ep, _, err := s.load(path)
	return ep, err
}

// LoadFile reads a record from any path inside the store. A record whose
// file name differs from its canonical name is rewritten under the
// canonical name and the old file removed.
func (s *Store) LoadFile(path string) (*episode.Episode, error) {
	ep, _, err := s.load(path)
	return ep, err
}

// load returns the record and whether it was rewritten.
func (s *Store) load(path string) (*episode.Episode, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errors.NewParse(path, err)
	}
	ep, err := episode.Parse(data)
	if err != nil {
		return nil, false, errors.NewParse(path, err)
	}
	if err := validIdentifier(ep.Identifier); err != nil {
		return nil, false, errors.NewParse(path, err)
	}

	dirty := ep.Derive()
	canonical := s.Path(ep.Identifier)
	moved := filepath.Clean(path) != filepath.Clean(canonical)
	if !dirty && !moved {
		return ep, false, nil
	}

	if err := s.Save(ep); err != nil {
		// The record is still usable; the next load retries.
		s.logger.Warn("cannot persist normalized record", "identifier", ep.Identifier, logging.Err(err))
		return ep, false, nil
	}
	s.logger.Debug("normalized record", "identifier", ep.Identifier, "path", canonical)

	if moved {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("cannot remove relocated record", "path", path, logging.Err(err))
		} else {
			s.logger.Info("relocated record", "from", path, "to", canonical)
		}
	}
	return ep, true, nil
}

// Save writes ep atomically to its canonical path.
func (s *Store) Save(ep *episode.Episode) error {
	if err := validIdentifier(ep.Identifier); err != nil {
		return err
	}
	path := s.Path(ep.Identifier)

	data, err := episode.Marshal(ep)
	if err != nil {
		return errors.NewPersistence(path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.NewPersistence(path, err)
	}
	// atomic.WriteFile keeps the temp file's 0600 mode on new files.
	if err := os.Chmod(path, filePerms); err != nil {
		return errors.NewPersistence(path, err)
	}
	return nil
}

// List loads every record, most recent first. Unreadable files are logged and skipped.
func (s *Store) List() ([]*episode.Episode, error) {
	episodes, _, err := s.scan()
	return episodes, err
}

// Normalize loads every record, persisting derived fields and canonical
// file names where needed. Returns the number of files rewritten.
func (s *Store) Normalize() (int, error) {
	_, rewritten, err := s.scan()
	return rewritten, err
}

func (s *Store) scan() ([]*episode.Episode, int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, 0, errors.NewFatalIO(s.dir, err)
	}

	var (
		episodes  []*episode.Episode
		seen      = make(map[string]bool)
		rewritten int
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		ep, changed, err := s.load(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping record", "file", name, logging.Err(err))
			continue
		}
		if changed {
			rewritten++
		}
		if seen[ep.Identifier] {
			continue
		}
		seen[ep.Identifier] = true
		episodes = append(episodes, ep)
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		if !episodes[i].Datetime.Equal(episodes[j].Datetime) {
			return episodes[i].Datetime.After(episodes[j].Datetime)
		}
		return episodes[i].Identifier < episodes[j].Identifier
	})
	return episodes, rewritten, nil
}

// Lock takes an exclusive, non-blocking lock on the store directory.
// The returned function releases it.
func (s *Store) Lock() (func() error, error) {
	path := filepath.Join(s.dir, lockName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewFatalIO(path, err)
	}
	if !ok {
		return nil, errors.NewFatalIO(path, fmt.Errorf("another sync holds the lock"))
	}
	return lock.Unlock, nil
}

func validIdentifier(identifier string) error {
	if identifier == "" {
		return errors.NewInvalidRequest("identifier is required")
	}
	if identifier != filepath.Base(identifier) || identifier == "." || identifier == ".." ||
		strings.ContainsAny(identifier, `/\`) {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid identifier: %q", identifier))
	}
	return nil
}
