package workspace

import (
	"strings"
	"time"

	"github.com/tgienger/ruidmap/internal/apperr"
)

// NewTask creates a todo, medium priority task.
func NewTask(id int, projectID *int, title, description string) Task {
	t := now()
	return Task{
		ID:          id,
		ProjectID:   copyInt(projectID),
		Title:       title,
		Description: description,
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		CreatedAt:   t,
		UpdatedAt:   t,
		Tags:        []string{},
		Subtasks:    []Subtask{},
		Comments:    []Comment{},
		Attachments: []Attachment{},
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (t *Task) touch() {
	ts := now()
	if ts.Before(t.CreatedAt) {
		ts = t.CreatedAt
	}
	t.UpdatedAt = ts
}

// InProject reports whether the task belongs to projectID; nil matches
// tasks without a project.
func (t *Task) InProject(projectID *int) bool {
	if projectID == nil || t.ProjectID == nil {
		return projectID == nil && t.ProjectID == nil
	}
	return *t.ProjectID == *projectID
}

// ProgressPercentage is derived from the status alone.
func (t *Task) ProgressPercentage() float64 {
	switch t.Status {
	case StatusInProgress:
		return 50
	case StatusDone:
		return 100
	}
	return 0
}

// UpdateStatus sets the status; CompletedAt is set iff the task is done.
func (t *Task) UpdateStatus(s Status) {
	t.Status = s
	t.touch()
	if s == StatusDone {
		ts := t.UpdatedAt
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
}

// ToggleStatus advances to the next status and returns it.
func (t *Task) ToggleStatus() Status {
	t.UpdateStatus(t.Status.Next())
	return t.Status
}

func (t *Task) UpdatePriority(p Priority) {
	t.Priority = p
	t.touch()
}

func (t *Task) UpdateContent(title, description string) {
	t.Title = title
	t.Description = description
	t.touch()
}

func (t *Task) SetDueDate(due *time.Time) {
	t.DueDate = due
	t.touch()
}

func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// AddTag adds tag if absent and reports whether the tag set changed.
func (t *Task) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || t.HasTag(tag) {
		return false
	}
	t.Tags = append(t.Tags, tag)
	t.touch()
	return true
}

// RemoveTag removes tag if present and reports whether the tag set changed.
func (t *Task) RemoveTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for i, existing := range t.Tags {
		if existing == tag {
			t.Tags = append(t.Tags[:i], t.Tags[i+1:]...)
			t.touch()
			return true
		}
	}
	return false
}

// SetTags replaces the tag set, dropping blanks and duplicates.
func (t *Task) SetTags(tags []string) {
	t.Tags = []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !t.HasTag(tag) {
			t.Tags = append(t.Tags, tag)
		}
	}
	t.touch()
}

func (t *Task) AddSubtask(title string) Subtask {
	id := 0
	for _, s := range t.Subtasks {
		id = max(id, s.ID)
	}
	st := Subtask{ID: id + 1, Title: title, CreatedAt: now()}
	t.Subtasks = append(t.Subtasks, st)
	t.touch()
	return st
}

func (t *Task) ToggleSubtask(id int) error {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			t.Subtasks[i].Completed = !t.Subtasks[i].Completed
			t.touch()
			return nil
		}
	}
	return apperr.NotFound("subtask", id)
}

func (t *Task) AddComment(text, author string) Comment {
	id := 0
	for _, c := range t.Comments {
		id = max(id, c.ID)
	}
	c := Comment{ID: id + 1, Text: text, Author: author, CreatedAt: now()}
	t.Comments = append(t.Comments, c)
	t.touch()
	return c
}

func (t *Task) AddTime(minutes int) error {
	if minutes < 0 {
		return apperr.Invalid("minutes must not be negative, got %d", minutes)
	}
	t.TimeSpent += minutes
	t.touch()
	return nil
}

func (t *Task) SetEstimatedTime(minutes *int) error {
	if minutes != nil && *minutes < 0 {
		return apperr.Invalid("estimate must not be negative, got %d", *minutes)
	}
	t.EstimatedTime = copyInt(minutes)
	t.touch()
	return nil
}

// IsOverdue reports whether an unfinished task is past its due date.
func (t *Task) IsOverdue(at time.Time) bool {
	return t.DueDate != nil && t.Status != StatusDone && t.DueDate.Before(at)
}

// DueOn reports whether the task is due on the calendar day of day, in UTC.
func (t *Task) DueOn(day time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	y1, m1, d1 := t.DueDate.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
