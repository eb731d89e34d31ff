package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/jsonfile"
	"github.com/tgienger/ruidmap/internal/logging"
	"github.com/tgienger/ruidmap/internal/schema"
)

// legacyData is the file layout from before projects existed.
type legacyData struct {
	Tasks   []Task  `json:"tasks"`
	Theme   *string `json:"theme"`
	Version *string `json:"version"`
}

// Storage reads and writes the workspace file. It holds no state besides
// the path, so every call sees what is on disk.
type Storage struct {
	path   string
	logger *log.Logger
}

// NewStorage returns a Storage for path. A nil logger discards output.
func NewStorage(path string, logger *log.Logger) *Storage {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Storage{path: path, logger: logger}
}

// Path returns the data file path.
func (s *Storage) Path() string { return s.path }

// Load reads the file, creating it with NewData when absent and migrating
// older shapes. A file matching no known shape is never overwritten.
func (s *Storage) Load() (*Data, error) {
	raw, err := jsonfile.Read(s.path)
	if errors.Is(err, os.ErrNotExist) {
		d := NewData()
		if err := s.Save(d); err != nil {
			return nil, err
		}
		s.logger.Info("created workspace", "path", s.path)
		return d, nil
	}
	if err != nil {
		return nil, err
	}

	decoded, err := decode(raw, schema.WorkspaceShapes...)
	if err != nil {
		var corrupt *apperr.CorruptDataError
		if errors.As(err, &corrupt) {
			corrupt.Path = s.path
			s.logger.Warn("workspace matches no known shape", "path", s.path, "problems", len(corrupt.Diagnostics))
		}
		return nil, err
	}
	if decoded.migrated {
		if err := s.Save(decoded.data); err != nil {
			return nil, err
		}
		s.logger.Info("migrated workspace", "path", s.path, "from", decoded.shape, "version", CurrentVersion)
	}
	return decoded.data, nil
}

// Save writes d as pretty JSON, replacing the file atomically.
func (s *Storage) Save(d *Data) error {
	return jsonfile.Write(s.path, d)
}

// Backup copies the data file verbatim to dst, or to "<path>.backup" when
// dst is empty, and returns the path written.
func (s *Storage) Backup(dst string) (string, error) {
	if dst == "" {
		dst = s.path + ".backup"
	}
	if err := jsonfile.Copy(s.path, dst); err != nil {
		return "", err
	}
	s.logger.Info("backed up workspace", "from", s.path, "to", dst)
	return dst, nil
}

// Restore replaces the data file with the contents of src after checking
// that src is a known shape. Legacy sources are migrated on the way in.
func (s *Storage) Restore(src string) (*Data, error) {
	raw, err := jsonfile.Read(src)
	if err != nil {
		return nil, err
	}
	decoded, err := decode(raw, schema.WorkspaceShapes...)
	if err != nil {
		var corrupt *apperr.CorruptDataError
		if errors.As(err, &corrupt) {
			corrupt.Path = src
		}
		return nil, err
	}
	if err := s.Save(decoded.data); err != nil {
		return nil, err
	}
	s.logger.Info("restored workspace", "from", src, "to", s.path)
	return decoded.data, nil
}

type decoded struct {
	data     *Data
	shape    schema.Shape
	migrated bool
	// version is the data version tag as found, before migration.
	version string
	// envelope is set when shape is schema.Export.
	envelope *Export
}

// decode detects which of shapes raw has and converts it to current Data.
func decode(raw []byte, shapes ...schema.Shape) (*decoded, error) {
	shape, err := schema.Detect(raw, shapes...)
	if err != nil {
		var mismatch *schema.MismatchError
		if errors.As(err, &mismatch) {
			return nil, &apperr.CorruptDataError{Diagnostics: mismatch.Diagnostics(), Err: err}
		}
		return nil, &apperr.CorruptDataError{Err: err}
	}

	switch shape {
	case schema.WorkspaceCurrent:
		var d Data
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, &apperr.CorruptDataError{Err: err}
		}
		out := &decoded{data: &d, shape: shape, version: d.Version}
		out.migrated = d.Normalize()
		if d.Version != CurrentVersion {
			d.adoptOrphans()
			d.Version = CurrentVersion
			out.migrated = true
		}
		return out, nil

	case schema.WorkspaceLegacy:
		var legacy legacyData
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, &apperr.CorruptDataError{Err: err}
		}
		out := &decoded{data: legacy.upgrade(), shape: shape, migrated: true}
		if legacy.Version != nil {
			out.version = *legacy.Version
		}
		return out, nil

	case schema.Export:
		var env Export
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, &apperr.CorruptDataError{Err: err}
		}
		if env.Data == nil {
			return nil, &apperr.CorruptDataError{Err: errors.New("export has no data")}
		}
		version := env.Data.Version
		env.Data.Normalize()
		if env.Data.Version != CurrentVersion {
			env.Data.adoptOrphans()
			env.Data.Version = CurrentVersion
		}
		return &decoded{data: env.Data, shape: shape, migrated: true, version: version, envelope: &env}, nil
	}
	return nil, &apperr.CorruptDataError{Err: fmt.Errorf("unhandled shape %s", shape)}
}

// upgrade puts every legacy task into a new default project with id 1.
func (l *legacyData) upgrade() *Data {
	d := NewData()
	if l.Theme != nil && *l.Theme != "" {
		d.Theme = *l.Theme
	}
	for _, t := range l.Tasks {
		one := 1
		t.ProjectID = &one
		d.Tasks = append(d.Tasks, t)
	}
	d.Normalize()
	return d
}
