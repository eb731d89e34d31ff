package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is written into every saved roadmap.
const CurrentVersion = "2.0.0"

// DefaultTheme is the theme a roadmap gets when none is stored.
const DefaultTheme = "tokyo-night"

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// Status is the lifecycle state of a milestone.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusBlocked    Status = "Blocked"
)

// Statuses lists every status in cycle order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked}

var statusCycle = map[Status]Status{
	StatusNotStarted: StatusInProgress,
	StatusInProgress: StatusCompleted,
	StatusCompleted:  StatusBlocked,
	StatusBlocked:    StatusNotStarted,
}

var statusProgress = map[Status]float64{
	StatusNotStarted: 0,
	StatusInProgress: 50,
	StatusCompleted:  100,
	StatusBlocked:    25,
}

var statusLabels = map[Status]string{
	StatusNotStarted: "Not Started",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
	StatusBlocked:    "Blocked",
}

// Next returns the status that follows s in the cycle.
func (s Status) Next() Status {
	if next, ok := statusCycle[s]; ok {
		return next
	}
	return StatusNotStarted
}

// Valid reports whether s is a known status token.
func (s Status) Valid() bool {
	_, ok := statusCycle[s]
	return ok
}

// Label returns the human readable form.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts the wire token or the label, case-insensitively.
func ParseStatus(v string) (Status, error) {
	for _, s := range Statuses {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, s.Label()) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", v)
}

// Priority ranks milestones.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every priority in cycle order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

var priorityCycle = map[Priority]Priority{
	PriorityLow:      PriorityMedium,
	PriorityMedium:   PriorityHigh,
	PriorityHigh:     PriorityCritical,
	PriorityCritical: PriorityLow,
}

// Next returns the priority that follows p in the cycle.
func (p Priority) Next() Priority {
	if next, ok := priorityCycle[p]; ok {
		return next
	}
	return PriorityMedium
}

// Valid reports whether p is a known priority token.
func (p Priority) Valid() bool {
	_, ok := priorityCycle[p]
	return ok
}

// ParsePriority accepts the wire token case-insensitively.
func ParsePriority(v string) (Priority, error) {
	for _, p := range Priorities {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", v)
}

// Subtask is a checklist entry inside a milestone
type Subtask struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a note attached to a milestone
type Comment struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment references a file on disk
type Attachment struct {
	ID        int       `json:"id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"file_path"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Folder groups milestones. MilestoneIDs mirrors the FolderID of its members.
type Folder struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Expanded     bool        `json:"expanded"`
	MilestoneIDs []uuid.UUID `json:"milestone_ids"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Milestone is a single unit of work on the roadmap
type Milestone struct {
	ID               uuid.UUID    `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Priority         Priority     `json:"priority"`
	Status           Status       `json:"status"`
	EstimatedMinutes *int         `json:"estimated_minutes"`
	TimeSpent        int          `json:"time_spent"`
	Resources        []string     `json:"resources"`
	Tags             []string     `json:"tags"`
	Subtasks         []Subtask    `json:"subtasks"`
	Comments         []Comment    `json:"comments"`
	Attachments      []Attachment `json:"attachments"`
	FolderID         *uuid.UUID   `json:"folder_id"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	DueDate          *time.Time   `json:"due_date"`
	CompletedAt      *time.Time   `json:"completed_at"`
}

// Roadmap is the root aggregate persisted to disk
type Roadmap struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Theme       string      `json:"theme"`
	Milestones  []Milestone `json:"milestones"`
	Folders     []Folder    `json:"folders"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
