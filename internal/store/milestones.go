package store

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/models"
)

// MilestoneInput holds the fields a user supplies when creating a milestone.
type MilestoneInput struct {
	Title       string
	Description string
	Priority    models.Priority
	FolderID    *uuid.UUID
	Tags        []string
	DueDate     *time.Time
}

// CreateMilestone creates a new milestone, optionally inside a folder
func (s *Store) CreateMilestone(in MilestoneInput) (*models.Milestone, error) {
	if err := validateName("title", in.Title, 200); err != nil {
		return nil, err
	}
	m := models.NewMilestone(strings.TrimSpace(in.Title), in.Description)
	if in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, apperr.Invalid("unknown priority %q", in.Priority)
		}
		m.Priority = in.Priority
	}
	for _, tag := range in.Tags {
		m.AddTag(tag)
	}
	m.DueDate = in.DueDate

	if err := s.update(func(r *models.Roadmap) error {
		if in.FolderID != nil && r.FindFolder(*in.FolderID) == nil {
			return apperr.NotFound("folder", *in.FolderID)
		}
		m.FolderID = in.FolderID
		r.AddMilestone(m)
		return nil
	}); err != nil {
		return nil, err
	}
	s.logger.Debug("created milestone", "id", m.ID, "title", m.Title)
	return s.GetMilestone(m.ID)
}

// GetMilestone retrieves a milestone by ID
func (s *Store) GetMilestone(id uuid.UUID) (*models.Milestone, error) {
	m := s.roadmap.FindMilestone(id)
	if m == nil {
		return nil, apperr.NotFound("milestone", id)
	}
	out := *m
	return &out, nil
}

// ListMilestones returns the milestones of a folder, or the unorganized ones
// when folderID is nil, in storage order
func (s *Store) ListMilestones(folderID *uuid.UUID) []models.Milestone {
	return s.roadmap.MilestonesInFolder(folderID)
}

// AllMilestones returns every milestone in storage order
func (s *Store) AllMilestones() []models.Milestone {
	return append([]models.Milestone(nil), s.roadmap.Milestones...)
}

// SearchMilestones returns milestones in folderID whose title, description or
// tags contain query, case-insensitively. An empty query matches everything.
func (s *Store) SearchMilestones(folderID *uuid.UUID, query string) []models.Milestone {
	all := s.roadmap.MilestonesInFolder(folderID)
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all
	}
	out := []models.Milestone{}
	for _, m := range all {
		if matches(m, query) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m models.Milestone, query string) bool {
	if strings.Contains(strings.ToLower(m.Title), query) ||
		strings.Contains(strings.ToLower(m.Description), query) {
		return true
	}
	for _, t := range m.Tags {
		if strings.Contains(strings.ToLower(t), query) {
			return true
		}
	}
	return false
}

// ListByStatus returns every milestone in status st
func (s *Store) ListByStatus(st models.Status) []models.Milestone {
	out := []models.Milestone{}
	for _, m := range s.roadmap.Milestones {
		if m.Status == st {
			out = append(out, m)
		}
	}
	return out
}

// editMilestone applies fn to one milestone inside an update.
func (s *Store) editMilestone(id uuid.UUID, fn func(m *models.Milestone) error) error {
	return s.update(func(r *models.Roadmap) error {
		m := r.FindMilestone(id)
		if m == nil {
			return apperr.NotFound("milestone", id)
		}
		if err := fn(m); err != nil {
			return err
		}
		r.UpdatedAt = m.UpdatedAt
		return nil
	})
}

// UpdateMilestone updates a milestone's title and description
func (s *Store) UpdateMilestone(id uuid.UUID, title, description string) error {
	if err := validateName("title", title, 200); err != nil {
		return err
	}
	return s.editMilestone(id, func(m *models.Milestone) error {
		m.UpdateContent(strings.TrimSpace(title), description)
		return nil
	})
}

// MilestoneEdit holds the editable fields of an existing milestone.
type MilestoneEdit struct {
	Title       string
	Description string
	Priority    models.Priority
	DueDate     *time.Time
}

// EditMilestone applies every field of e in a single save
func (s *Store) EditMilestone(id uuid.UUID, e MilestoneEdit) error {
	if err := validateName("title", e.Title, 200); err != nil {
		return err
	}
	if !e.Priority.Valid() {
		return apperr.Invalid("unknown priority %q", e.Priority)
	}
	return s.editMilestone(id, func(m *models.Milestone) error {
		m.UpdateContent(strings.TrimSpace(e.Title), e.Description)
		m.UpdatePriority(e.Priority)
		m.SetDueDate(e.DueDate)
		return nil
	})
}

// SetStatus sets a milestone's status
func (s *Store) SetStatus(id uuid.UUID, st models.Status) error {
	if !st.Valid() {
		return apperr.Invalid("unknown status %q", st)
	}
	return s.editMilestone(id, func(m *models.Milestone) error {
		m.UpdateStatus(st)
		return nil
	})
}

// AdvanceStatus moves a milestone to its next status and returns it
func (s *Store) AdvanceStatus(id uuid.UUID) (models.Status, error) {
	var next models.Status
	err := s.editMilestone(id, func(m *models.Milestone) error {
		next = m.AdvanceStatus()
		return nil
	})
	return next, err
}

// CyclePriority moves a milestone to its next priority and returns it
func (s *Store) CyclePriority(id uuid.UUID) (models.Priority, error) {
	var next models.Priority
	err := s.editMilestone(id, func(m *models.Milestone) error {
		next = m.CyclePriority()
		return nil
	})
	return next, err
}

// SetDueDate sets or clears a milestone's due date
func (s *Store) SetDueDate(id uuid.UUID, due *time.Time) error {
	return s.editMilestone(id, func(m *models.Milestone) error {
		m.SetDueDate(due)
		return nil
	})
}

// MoveMilestone moves a milestone into a folder, or out of all folders when
// folderID is nil
func (s *Store) MoveMilestone(id uuid.UUID, folderID *uuid.UUID) error {
	return s.update(func(r *models.Roadmap) error {
		return r.Reassign(id, folderID)
	})
}

// DeleteMilestone deletes a milestone
func (s *Store) DeleteMilestone(id uuid.UUID) error {
	if err := s.update(func(r *models.Roadmap) error {
		return r.RemoveMilestone(id)
	}); err != nil {
		return err
	}
	s.logger.Debug("deleted milestone", "id", id)
	return nil
}

// AddTag adds a tag to a milestone. It reports whether the tag was new; an
// existing tag leaves the file untouched.
func (s *Store) AddTag(id uuid.UUID, tag string) (bool, error) {
	if err := validateName("tag", tag, 50); err != nil {
		return false, err
	}
	m, err := s.GetMilestone(id)
	if err != nil {
		return false, err
	}
	if m.HasTag(strings.TrimSpace(tag)) {
		return false, nil
	}
	return true, s.editMilestone(id, func(m *models.Milestone) error {
		m.AddTag(tag)
		return nil
	})
}

// RemoveTag removes a tag from a milestone and reports whether it was there
func (s *Store) RemoveTag(id uuid.UUID, tag string) (bool, error) {
	m, err := s.GetMilestone(id)
	if err != nil {
		return false, err
	}
	if !m.HasTag(strings.TrimSpace(tag)) {
		return false, nil
	}
	return true, s.editMilestone(id, func(m *models.Milestone) error {
		m.RemoveTag(tag)
		return nil
	})
}

// AllTags returns every tag in use, sorted and without duplicates
func (s *Store) AllTags() []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, m := range s.roadmap.Milestones {
		for _, t := range m.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}
