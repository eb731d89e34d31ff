package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/apperr"
)

// NewMilestone creates a not-started, medium priority milestone with a fresh id.
func NewMilestone(title, description string) Milestone {
	t := now()
	return Milestone{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Priority:    PriorityMedium,
		Status:      StatusNotStarted,
		Resources:   []string{},
		Tags:        []string{},
		Subtasks:    []Subtask{},
		Comments:    []Comment{},
		Attachments: []Attachment{},
		CreatedAt:   t,
		UpdatedAt:   t,
	}
}

// touch refreshes UpdatedAt, never letting it fall behind CreatedAt.
func (m *Milestone) touch() {
	m.UpdatedAt = later(now(), m.CreatedAt)
}

func later(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

// ProgressPercentage is derived from the status alone.
func (m *Milestone) ProgressPercentage() float64 {
	return statusProgress[m.Status]
}

// IsCompleted reports whether the milestone is in the terminal state.
func (m *Milestone) IsCompleted() bool {
	return m.Status == StatusCompleted
}

// MarkCompleted is shorthand for UpdateStatus(StatusCompleted).
func (m *Milestone) MarkCompleted() {
	m.UpdateStatus(StatusCompleted)
}

// UpdateStatus sets the status and keeps CompletedAt in step with it.
func (m *Milestone) UpdateStatus(s Status) {
	m.Status = s
	m.touch()
	if s == StatusCompleted {
		t := m.UpdatedAt
		m.CompletedAt = &t
	} else {
		m.CompletedAt = nil
	}
}

// AdvanceStatus moves to the next status in the cycle and returns it.
func (m *Milestone) AdvanceStatus() Status {
	m.UpdateStatus(m.Status.Next())
	return m.Status
}

// UpdatePriority sets the priority.
func (m *Milestone) UpdatePriority(p Priority) {
	m.Priority = p
	m.touch()
}

// CyclePriority moves to the next priority and returns it.
func (m *Milestone) CyclePriority() Priority {
	m.UpdatePriority(m.Priority.Next())
	return m.Priority
}

// UpdateContent replaces title and description.
func (m *Milestone) UpdateContent(title, description string) {
	m.Title = title
	m.Description = description
	m.touch()
}

// HasTag reports whether tag is present.
func (m *Milestone) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds tag if absent. It reports whether the tag set changed;
// UpdatedAt is only refreshed when it did.
func (m *Milestone) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || m.HasTag(tag) {
		return false
	}
	m.Tags = append(m.Tags, tag)
	m.touch()
	return true
}

// RemoveTag removes tag if present and reports whether it did.
func (m *Milestone) RemoveTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for i, t := range m.Tags {
		if t == tag {
			m.Tags = append(m.Tags[:i], m.Tags[i+1:]...)
			m.touch()
			return true
		}
	}
	return false
}

// AddSubtask appends an open subtask with the next free id.
func (m *Milestone) AddSubtask(title string) Subtask {
	id := 0
	for _, s := range m.Subtasks {
		id = max(id, s.ID)
	}
	st := Subtask{ID: id + 1, Title: title, CreatedAt: now()}
	m.Subtasks = append(m.Subtasks, st)
	m.touch()
	return st
}

// ToggleSubtask flips the completed flag of subtask id.
func (m *Milestone) ToggleSubtask(id int) error {
	for i := range m.Subtasks {
		if m.Subtasks[i].ID == id {
			m.Subtasks[i].Completed = !m.Subtasks[i].Completed
			m.touch()
			return nil
		}
	}
	return apperr.NotFound("subtask", id)
}

// AddComment appends a comment with the next free id.
func (m *Milestone) AddComment(text, author string) Comment {
	id := 0
	for _, c := range m.Comments {
		id = max(id, c.ID)
	}
	c := Comment{ID: id + 1, Text: text, Author: author, CreatedAt: now()}
	m.Comments = append(m.Comments, c)
	m.touch()
	return c
}

// AddTime adds minutes to the time spent.
func (m *Milestone) AddTime(minutes int) error {
	if minutes < 0 {
		return apperr.Invalid("minutes must not be negative, got %d", minutes)
	}
	m.TimeSpent += minutes
	m.touch()
	return nil
}

// SetEstimatedTime sets or clears the estimate in minutes.
func (m *Milestone) SetEstimatedTime(minutes *int) error {
	if minutes != nil && *minutes < 0 {
		return apperr.Invalid("estimate must not be negative, got %d", *minutes)
	}
	m.EstimatedMinutes = minutes
	m.touch()
	return nil
}

// SetDueDate sets or clears the due date.
func (m *Milestone) SetDueDate(due *time.Time) {
	m.DueDate = due
	m.touch()
}

// IsOverdue reports whether an open milestone is past its due date.
func (m *Milestone) IsOverdue(at time.Time) bool {
	return m.DueDate != nil && !m.IsCompleted() && m.DueDate.Before(at)
}
