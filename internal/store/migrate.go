package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/models"
)

// legacyRoadmap covers roadmap/v1 and roadmap/v0. Folders is nil for v0.
type legacyRoadmap struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Milestones  []legacyMilestone `json:"milestones"`
	Folders     []legacyFolder    `json:"folders"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// legacyMilestone tracked whole hours instead of minutes and had no
// subtasks, comments or attachments.
type legacyMilestone struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Priority       models.Priority `json:"priority"`
	Status         models.Status   `json:"status"`
	EstimatedHours *int            `json:"estimated_hours"`
	ActualHours    *int            `json:"actual_hours"`
	Resources      []string        `json:"resources"`
	Tags           []string        `json:"tags"`
	FolderID       *uuid.UUID      `json:"folder_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DueDate        *time.Time      `json:"due_date"`
	CompletedAt    *time.Time      `json:"completed_at"`
}

type legacyFolder struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Expanded     *bool       `json:"expanded"`
	MilestoneIDs []uuid.UUID `json:"milestone_ids"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// upgrade converts the legacy document into a current roadmap. Missing
// timestamps fall back to the roadmap's own, so the result does not depend on
// the wall clock.
func (l *legacyRoadmap) upgrade() *models.Roadmap {
	r := &models.Roadmap{
		Title:       l.Title,
		Description: l.Description,
		Version:     models.CurrentVersion,
		Theme:       models.DefaultTheme,
		Milestones:  make([]models.Milestone, 0, len(l.Milestones)),
		Folders:     make([]models.Folder, 0, len(l.Folders)),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}

	for _, f := range l.Folders {
		expanded := true
		if f.Expanded != nil {
			expanded = *f.Expanded
		}
		created := orDefault(f.CreatedAt, r.CreatedAt)
		r.Folders = append(r.Folders, models.Folder{
			ID:           f.ID,
			Name:         f.Name,
			Description:  f.Description,
			Expanded:     expanded,
			MilestoneIDs: f.MilestoneIDs,
			CreatedAt:    created,
			UpdatedAt:    orDefault(f.UpdatedAt, created),
		})
	}

	for _, m := range l.Milestones {
		created := orDefault(m.CreatedAt, r.CreatedAt)
		r.Milestones = append(r.Milestones, models.Milestone{
			ID:               m.ID,
			Title:            m.Title,
			Description:      m.Description,
			Priority:         m.Priority,
			Status:           m.Status,
			EstimatedMinutes: hoursToMinutes(m.EstimatedHours),
			TimeSpent:        valueOr(hoursToMinutes(m.ActualHours), 0),
			Resources:        m.Resources,
			Tags:             m.Tags,
			FolderID:         m.FolderID,
			CreatedAt:        created,
			UpdatedAt:        orDefault(m.UpdatedAt, created),
			DueDate:          m.DueDate,
			CompletedAt:      m.CompletedAt,
		})
	}

	r.Reconcile()
	return r
}

func orDefault(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t
}

func hoursToMinutes(h *int) *int {
	if h == nil {
		return nil
	}
	m := *h * 60
	return &m
}

func valueOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
