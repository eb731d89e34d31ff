package store

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/models"
)

func validateName(field, value string, maxLen int) error {
	err := validation.Errors{
		field: validation.Validate(strings.TrimSpace(value), validation.Required, validation.RuneLength(1, maxLen)),
	}.Filter()
	return apperr.FromRules("invalid "+field, err)
}

// CreateFolder creates a new folder
func (s *Store) CreateFolder(name, description string) (*models.Folder, error) {
	if err := validateName("name", name, 100); err != nil {
		return nil, err
	}
	f := models.NewFolder(strings.TrimSpace(name), description)
	if err := s.update(func(r *models.Roadmap) error {
		r.AddFolder(f)
		return nil
	}); err != nil {
		return nil, err
	}
	s.logger.Debug("created folder", "id", f.ID, "name", f.Name)
	return s.GetFolder(f.ID)
}

// GetFolder retrieves a folder by ID
func (s *Store) GetFolder(id uuid.UUID) (*models.Folder, error) {
	f := s.roadmap.FindFolder(id)
	if f == nil {
		return nil, apperr.NotFound("folder", id)
	}
	out := *f
	out.MilestoneIDs = append([]uuid.UUID(nil), f.MilestoneIDs...)
	return &out, nil
}

// ListFolders returns all folders in storage order
func (s *Store) ListFolders() []models.Folder {
	return append([]models.Folder(nil), s.roadmap.Folders...)
}

// UpdateFolder renames a folder
func (s *Store) UpdateFolder(id uuid.UUID, name, description string) error {
	if err := validateName("name", name, 100); err != nil {
		return err
	}
	return s.update(func(r *models.Roadmap) error {
		f := r.FindFolder(id)
		if f == nil {
			return apperr.NotFound("folder", id)
		}
		f.Rename(strings.TrimSpace(name), description)
		return nil
	})
}

// ToggleFolder flips a folder between expanded and collapsed
func (s *Store) ToggleFolder(id uuid.UUID) error {
	return s.update(func(r *models.Roadmap) error {
		f := r.FindFolder(id)
		if f == nil {
			return apperr.NotFound("folder", id)
		}
		f.ToggleExpanded()
		return nil
	})
}

// DeleteFolder deletes a folder; its milestones become unorganized
func (s *Store) DeleteFolder(id uuid.UUID) error {
	if err := s.update(func(r *models.Roadmap) error {
		return r.RemoveFolder(id)
	}); err != nil {
		return err
	}
	s.logger.Debug("deleted folder", "id", id)
	return nil
}

// FolderCount returns the number of folders
func (s *Store) FolderCount() int {
	return len(s.roadmap.Folders)
}
