package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/jsonfile"
	"github.com/tgienger/ruidmap/internal/logging"
	"github.com/tgienger/ruidmap/internal/models"
	"github.com/tgienger/ruidmap/internal/schema"
)

// State describes what Load found on disk.
type State int

const (
	// StateAbsent means no file existed and a default roadmap was written.
	StateAbsent State = iota
	// StateCurrent means the file already had the current shape.
	StateCurrent
	// StateLegacy means the file had an older shape and was rewritten.
	StateLegacy
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCurrent:
		return "current"
	case StateLegacy:
		return "legacy"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// LoadResult is what Load returns.
type LoadResult struct {
	Roadmap *models.Roadmap
	State   State
	Shape   schema.Shape
	// Saved is true when Load rewrote the file.
	Saved bool
}

// Load reads the roadmap at path, migrating older shapes. A missing file is
// replaced by the default roadmap; a file matching no known shape is left
// untouched and reported as *apperr.CorruptDataError.
func Load(path string, logger *log.Logger) (*LoadResult, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	data, err := jsonfile.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		r := models.DefaultRoadmap()
		if err := Save(path, r); err != nil {
			return nil, err
		}
		logger.Info("created default roadmap", "path", path)
		return &LoadResult{Roadmap: r, State: StateAbsent, Shape: schema.RoadmapV2, Saved: true}, nil
	}
	if err != nil {
		return nil, err
	}

	d, err := Decode(data)
	if err != nil {
		var corrupt *apperr.CorruptDataError
		if errors.As(err, &corrupt) {
			corrupt.Path = path
			logger.Warn("roadmap matches no known shape", "path", path, "problems", len(corrupt.Diagnostics))
		}
		return nil, err
	}

	res := &LoadResult{Roadmap: d.Roadmap, State: StateCurrent, Shape: d.Shape}
	if d.Shape != schema.RoadmapV2 {
		res.State = StateLegacy
	}
	if d.Migrated {
		if err := Save(path, d.Roadmap); err != nil {
			return nil, err
		}
		res.Saved = true
		logger.Info("migrated roadmap", "path", path, "from", d.Shape, "version", models.CurrentVersion)
	} else if d.Repaired {
		logger.Debug("repaired roadmap references in memory", "path", path)
	}
	return res, nil
}

// Save writes r to path as pretty JSON, replacing the file atomically.
func Save(path string, r *models.Roadmap) error {
	return jsonfile.Write(path, r)
}

// Decoded is a parsed roadmap document.
type Decoded struct {
	Roadmap *models.Roadmap
	Shape   schema.Shape
	// Migrated means the document must be rewritten: it had a legacy shape
	// or a stale version tag.
	Migrated bool
	// Repaired means cross references were fixed in memory only.
	Repaired bool
}

// Decode detects the shape of data and converts it to the current roadmap.
func Decode(data []byte) (*Decoded, error) {
	shape, err := schema.Detect(data, schema.RoadmapShapes...)
	if err != nil {
		return nil, corruptData(err)
	}

	switch shape {
	case schema.RoadmapV2:
		var r models.Roadmap
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, &apperr.CorruptDataError{Err: err}
		}
		d := &Decoded{Roadmap: &r, Shape: shape}
		if r.Version != models.CurrentVersion {
			r.Reconcile()
			r.Version = models.CurrentVersion
			d.Migrated = true
		} else {
			d.Repaired = r.Reconcile()
		}
		return d, nil

	case schema.RoadmapV1, schema.RoadmapV0:
		var legacy legacyRoadmap
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, &apperr.CorruptDataError{Err: err}
		}
		return &Decoded{Roadmap: legacy.upgrade(), Shape: shape, Migrated: true}, nil
	}
	return nil, &apperr.CorruptDataError{Err: fmt.Errorf("unhandled shape %s", shape)}
}

func corruptData(err error) error {
	var mismatch *schema.MismatchError
	if errors.As(err, &mismatch) {
		return &apperr.CorruptDataError{Diagnostics: mismatch.Diagnostics(), Err: err}
	}
	return &apperr.CorruptDataError{Err: err}
}

// BackupPath is the default backup location for path.
func BackupPath(path string) string {
	return path + ".backup"
}

// Backup copies the file at path verbatim to dst, or to BackupPath(path)
// when dst is empty. It returns the path written.
func Backup(path, dst string) (string, error) {
	if dst == "" {
		dst = BackupPath(path)
	}
	if err := jsonfile.Copy(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Restore replaces the file at path with the roadmap stored in src. The
// source must have a known shape; legacy sources are migrated first. Nothing
// is merged with the existing file.
func Restore(path, src string) (*models.Roadmap, error) {
	data, err := jsonfile.Read(src)
	if err != nil {
		return nil, err
	}
	d, err := Decode(data)
	if err != nil {
		var corrupt *apperr.CorruptDataError
		if errors.As(err, &corrupt) {
			corrupt.Path = src
		}
		return nil, err
	}
	if err := Save(path, d.Roadmap); err != nil {
		return nil, err
	}
	return d.Roadmap, nil
}
