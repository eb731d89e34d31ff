package store

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/models"
)

// AddComment adds a comment to a milestone, signed with the store's author
func (s *Store) AddComment(milestoneID uuid.UUID, text string) (*models.Comment, error) {
	if err := validateName("text", text, 2000); err != nil {
		return nil, err
	}
	var c models.Comment
	if err := s.editMilestone(milestoneID, func(m *models.Milestone) error {
		c = m.AddComment(strings.TrimSpace(text), s.author)
		return nil
	}); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns a milestone's comments, oldest first
func (s *Store) ListComments(milestoneID uuid.UUID) ([]models.Comment, error) {
	m, err := s.GetMilestone(milestoneID)
	if err != nil {
		return nil, err
	}
	return append([]models.Comment(nil), m.Comments...), nil
}

// AddSubtask appends a subtask to a milestone
func (s *Store) AddSubtask(milestoneID uuid.UUID, title string) (*models.Subtask, error) {
	if err := validateName("title", title, 200); err != nil {
		return nil, err
	}
	var st models.Subtask
	if err := s.editMilestone(milestoneID, func(m *models.Milestone) error {
		st = m.AddSubtask(strings.TrimSpace(title))
		return nil
	}); err != nil {
		return nil, err
	}
	return &st, nil
}

// ToggleSubtask flips a subtask's completed flag
func (s *Store) ToggleSubtask(milestoneID uuid.UUID, subtaskID int) error {
	return s.editMilestone(milestoneID, func(m *models.Milestone) error {
		return m.ToggleSubtask(subtaskID)
	})
}

// AddTime records minutes spent on a milestone
func (s *Store) AddTime(milestoneID uuid.UUID, minutes int) error {
	return s.editMilestone(milestoneID, func(m *models.Milestone) error {
		return m.AddTime(minutes)
	})
}

// SetEstimate sets or clears a milestone's estimate in minutes
func (s *Store) SetEstimate(milestoneID uuid.UUID, minutes *int) error {
	return s.editMilestone(milestoneID, func(m *models.Milestone) error {
		return m.SetEstimatedTime(minutes)
	})
}
