// Package workspace implements the project-based task list: tasks with
// integer ids grouped into projects, persisted as one JSON file and served
// through a mutex-gated Service.
package workspace

import (
	"fmt"
	"time"

	"github.com/tgienger/ruidmap/internal/models"
)

// Version tags.
const (
	CurrentVersion      = "1.0.0"
	ExportFormatVersion = "0.2.1"
	DefaultTheme        = "light"
	DefaultProjectName  = "Default Project"
)

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// Status is a task's lifecycle state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in cycle order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

var statusCycle = map[Status]Status{
	StatusTodo:       StatusInProgress,
	StatusInProgress: StatusDone,
	StatusDone:       StatusTodo,
}

// Next returns the status that follows s.
func (s Status) Next() Status {
	if next, ok := statusCycle[s]; ok {
		return next
	}
	return StatusTodo
}

// Valid reports whether s is a known token.
func (s Status) Valid() bool {
	_, ok := statusCycle[s]
	return ok
}

// ParseStatus converts a wire token.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Priority ranks tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known token.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ParsePriority converts a wire token.
func ParsePriority(v string) (Priority, error) {
	p := Priority(v)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", v)
	}
	return p, nil
}

// Value objects shared with the roadmap model.
type (
	Subtask    = models.Subtask
	Comment    = models.Comment
	Attachment = models.Attachment
)

// Task is one unit of work. ProjectID is nil when the task belongs to no
// project, which happens after its project is deleted.
type Task struct {
	ID            int          `json:"id"`
	ProjectID     *int         `json:"project_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Status        Status       `json:"status"`
	Priority      Priority     `json:"priority"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	DueDate       *time.Time   `json:"due_date"`
	CompletedAt   *time.Time   `json:"completed_at"`
	Tags          []string     `json:"tags"`
	Subtasks      []Subtask    `json:"subtasks"`
	Comments      []Comment    `json:"comments"`
	TimeSpent     int          `json:"time_spent"`
	EstimatedTime *int         `json:"estimated_time"`
	Attachments   []Attachment `json:"attachments"`
}

// TaskTemplate pre-fills new tasks created in a project.
type TaskTemplate struct {
	TitlePrefix          *string  `json:"title_prefix"`
	DefaultDescription   *string  `json:"default_description"`
	DefaultTags          []string `json:"default_tags"`
	DefaultEstimatedTime *int     `json:"default_estimated_time"`
}

// ProjectSettings are per-project defaults.
type ProjectSettings struct {
	TaskTemplate       *TaskTemplate `json:"task_template"`
	DefaultPriority    Priority      `json:"default_priority"`
	AutoArchiveDone    bool          `json:"auto_archive_done"`
	ShowCompletedTasks bool          `json:"show_completed_tasks"`
	DefaultTags        []string      `json:"default_tags"`
}

// DefaultSettings returns the settings of a new project.
func DefaultSettings() ProjectSettings {
	return ProjectSettings{
		DefaultPriority:    PriorityMedium,
		ShowCompletedTasks: true,
		DefaultTags:        []string{},
	}
}

// Project groups tasks. Membership is the ProjectID on each task.
type Project struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Color       *string         `json:"color"`
	Icon        *string         `json:"icon"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	IsActive    bool            `json:"is_active"`
	TaskCount   int             `json:"task_count"`
	Settings    ProjectSettings `json:"settings"`
}

// Data is the root aggregate stored on disk.
type Data struct {
	Tasks            []Task    `json:"tasks"`
	Projects         []Project `json:"projects"`
	CurrentProjectID *int      `json:"current_project_id"`
	Theme            string    `json:"theme"`
	Version          string    `json:"version"`
}
