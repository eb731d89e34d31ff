package store

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/tgienger/ruidmap/internal/logging"
	"github.com/tgienger/ruidmap/internal/models"
)

// Store is a loaded roadmap bound to its file. Every mutating method applies
// the change to a copy, saves it, and only then makes it visible, so a failed
// save leaves both the file and the in-memory roadmap as they were.
//
// A Store is meant for one goroutine (the UI loop); it has no locking.
type Store struct {
	path    string
	author  string
	logger  *log.Logger
	roadmap *models.Roadmap
	state   State
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithAuthor sets the author recorded on new comments.
func WithAuthor(name string) Option {
	return func(s *Store) { s.author = name }
}

// New opens the roadmap at path, creating or migrating it as needed.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, author: "me", logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the file from disk.
func (s *Store) Reload() error {
	res, err := Load(s.path, s.logger)
	if err != nil {
		return err
	}
	s.roadmap = res.Roadmap
	s.state = res.State
	return nil
}

// Path returns the data file path.
func (s *Store) Path() string { return s.path }

// LoadState reports what the last load found on disk.
func (s *Store) LoadState() State { return s.state }

// Roadmap returns the live roadmap. Callers must treat it as read-only and
// go through Store methods to change it.
func (s *Store) Roadmap() *models.Roadmap { return s.roadmap }

// Save writes the current roadmap to disk.
func (s *Store) Save() error {
	return Save(s.path, s.roadmap)
}

// update runs fn against a copy of the roadmap and commits it if fn succeeds
// and the copy is saved.
func (s *Store) update(fn func(r *models.Roadmap) error) error {
	next, err := cloneRoadmap(s.roadmap)
	if err != nil {
		return err
	}
	if err := fn(next); err != nil {
		return err
	}
	if err := Save(s.path, next); err != nil {
		s.logger.Error("save roadmap", "path", s.path, "err", err)
		return err
	}
	s.roadmap = next
	return nil
}

func cloneRoadmap(r *models.Roadmap) (*models.Roadmap, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out models.Roadmap
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Theme returns the stored theme name.
func (s *Store) Theme() string {
	if s.roadmap.Theme == "" {
		return models.DefaultTheme
	}
	return s.roadmap.Theme
}

// SetTheme persists a theme preference.
func (s *Store) SetTheme(name string) error {
	if err := validateName("theme", name, 50); err != nil {
		return err
	}
	return s.update(func(r *models.Roadmap) error {
		r.SetTheme(name)
		return nil
	})
}

// Backup copies the data file to dst (or the default backup path when dst is
// empty) and returns the path written.
func (s *Store) Backup(dst string) (string, error) {
	out, err := Backup(s.path, dst)
	if err != nil {
		return "", err
	}
	s.logger.Info("backed up roadmap", "from", s.path, "to", out)
	return out, nil
}

// Restore replaces the data file with src and reloads it.
func (s *Store) Restore(src string) error {
	r, err := Restore(s.path, src)
	if err != nil {
		return err
	}
	s.roadmap = r
	s.state = StateCurrent
	s.logger.Info("restored roadmap", "from", src, "to", s.path)
	return nil
}

// Stats summarizes the roadmap.
type Stats struct {
	Total      int
	Completed  int
	InProgress int
	NotStarted int
	Blocked    int
	Folders    int
	Progress   float64
}

// Stats computes counts and overall progress.
func (s *Store) Stats() Stats {
	r := s.roadmap
	counts := r.StatusCounts()
	return Stats{
		Total:      len(r.Milestones),
		Completed:  counts[models.StatusCompleted],
		InProgress: counts[models.StatusInProgress],
		NotStarted: counts[models.StatusNotStarted],
		Blocked:    counts[models.StatusBlocked],
		Folders:    len(r.Folders),
		Progress:   r.OverallProgress(),
	}
}
