package workspace

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/jsonfile"
	"github.com/tgienger/ruidmap/internal/logging"
)

// Service is the command surface over one workspace file. Every command runs
// one load, mutate, save cycle while holding a single lock, so concurrently
// dispatched commands never interleave. Nothing is cached between commands.
//
// The lock is per process only; two processes writing the same file race
// and the last writer wins.
type Service struct {
	mu      sync.Mutex
	storage *Storage
	logger  *log.Logger
	author  string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAuthor sets the author recorded on new comments.
func WithAuthor(name string) Option {
	return func(s *Service) { s.author = name }
}

// NewService returns a Service for the workspace file at path.
func NewService(path string, opts ...Option) *Service {
	s := &Service{author: "me", logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.storage = NewStorage(path, s.logger)
	return s
}

// Path returns the data file path.
func (s *Service) Path() string { return s.storage.Path() }

// view loads the workspace and hands it to fn without saving.
func (s *Service) view(fn func(d *Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.storage.Load()
	if err != nil {
		return err
	}
	return fn(d)
}

// update loads the workspace, applies fn and saves the result. When fn fails
// nothing is written.
func (s *Service) update(fn func(d *Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.storage.Load()
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	return s.storage.Save(d)
}

func findTask(d *Data, id int) (*Task, error) {
	t := d.FindTask(id)
	if t == nil {
		return nil, apperr.NotFound("task", id)
	}
	return t, nil
}

func findProject(d *Data, id int) (*Project, error) {
	p := d.FindProject(id)
	if p == nil {
		return nil, apperr.NotFound("project", id)
	}
	return p, nil
}

// editTask runs fn on one task inside an update and returns the task as
// saved.
func (s *Service) editTask(id int, fn func(t *Task) error) (*Task, error) {
	var out Task
	err := s.update(func(d *Data) error {
		t, err := findTask(d, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadData returns the whole workspace.
func (s *Service) LoadData() (*Data, error) {
	var out *Data
	err := s.view(func(d *Data) error {
		out = d
		return nil
	})
	return out, err
}

// SaveData replaces the workspace with d after normalizing it.
func (s *Service) SaveData(d *Data) error {
	if d == nil {
		return apperr.Invalid("no data to save")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d.Normalize()
	d.Version = CurrentVersion
	return s.storage.Save(d)
}

// GetTasks returns every task in storage order.
func (s *Service) GetTasks() ([]Task, error) {
	var out []Task
	err := s.view(func(d *Data) error {
		out = d.Tasks
		return nil
	})
	return out, err
}

// GetTask returns one task.
func (s *Service) GetTask(id int) (*Task, error) {
	var out *Task
	err := s.view(func(d *Data) error {
		t, err := findTask(d, id)
		out = t
		return err
	})
	return out, err
}

// AddTask creates a task. Without a ProjectID it goes to the current
// project.
func (s *Service) AddTask(req TaskCreateRequest) (*Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Task
	err := s.update(func(d *Data) error {
		var p *Project
		switch {
		case req.ProjectID != nil:
			found, err := findProject(d, *req.ProjectID)
			if err != nil {
				return err
			}
			p = found
		default:
			p = d.CurrentProject()
		}
		out = *d.AddTask(req.build(d.NextTaskID(), p))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("added task", "id", out.ID, "project", out.ProjectID)
	return &out, nil
}

// UpdateTask applies the non-nil fields of req.
func (s *Service) UpdateTask(req TaskUpdateRequest) (*Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.editTask(req.ID, req.apply)
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(id int) error {
	return s.update(func(d *Data) error {
		return d.RemoveTask(id)
	})
}

// GetTasksByStatus returns tasks in status st.
func (s *Service) GetTasksByStatus(st Status) ([]Task, error) {
	if !st.Valid() {
		return nil, apperr.Invalid("unknown status %q", st)
	}
	var out []Task
	err := s.view(func(d *Data) error {
		out = d.TasksByStatus(st)
		return nil
	})
	return out, err
}

// ToggleTaskStatus advances a task through todo, in-progress and done.
func (s *Service) ToggleTaskStatus(id int) (*Task, error) {
	return s.editTask(id, func(t *Task) error {
		t.ToggleStatus()
		return nil
	})
}

// GetTheme returns the stored theme name.
func (s *Service) GetTheme() (string, error) {
	var out string
	err := s.view(func(d *Data) error {
		out = d.Theme
		return nil
	})
	return out, err
}

// SetTheme stores a theme name.
func (s *Service) SetTheme(name string) error {
	name = strings.TrimSpace(name)
	if err := validateText("theme", name, maxThemeLen); err != nil {
		return err
	}
	return s.update(func(d *Data) error {
		d.Theme = name
		return nil
	})
}

// CreateProject adds a project. The first project becomes current.
func (s *Service) CreateProject(req ProjectCreateRequest) (*Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Project
	err := s.update(func(d *Data) error {
		p := NewProject(d.NextProjectID(), strings.TrimSpace(req.Name))
		p.Description = optionalString(req.Description)
		p.Color = optionalString(req.Color)
		p.Icon = optionalString(req.Icon)
		out = *d.AddProject(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("created project", "id", out.ID, "name", out.Name)
	return &out, nil
}

// ListProjects returns every project in storage order.
func (s *Service) ListProjects() ([]Project, error) {
	var out []Project
	err := s.view(func(d *Data) error {
		out = d.Projects
		return nil
	})
	return out, err
}

// GetCurrentProject returns the current project, or nil when there is none.
func (s *Service) GetCurrentProject() (*Project, error) {
	var out *Project
	err := s.view(func(d *Data) error {
		out = d.CurrentProject()
		return nil
	})
	return out, err
}

// SwitchProject makes id the current project.
func (s *Service) SwitchProject(id int) (*Project, error) {
	var out Project
	err := s.update(func(d *Data) error {
		p, err := d.SwitchProject(id)
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject applies the non-nil fields of req.
func (s *Service) UpdateProject(req ProjectUpdateRequest) (*Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Project
	err := s.update(func(d *Data) error {
		p, err := findProject(d, req.ID)
		if err != nil {
			return err
		}
		p.UpdateInfo(req.info())
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject removes a project and detaches its tasks.
func (s *Service) DeleteProject(id int) error {
	err := s.update(func(d *Data) error {
		return d.RemoveProject(id)
	})
	if err == nil {
		s.logger.Debug("deleted project", "id", id)
	}
	return err
}

// ToggleProjectActive flips a project's active flag.
func (s *Service) ToggleProjectActive(id int) (*Project, error) {
	var out Project
	err := s.update(func(d *Data) error {
		p, err := findProject(d, id)
		if err != nil {
			return err
		}
		p.ToggleActive()
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTasksByProject returns the tasks of a project, or the tasks without a
// project when projectID is nil.
func (s *Service) GetTasksByProject(projectID *int) ([]Task, error) {
	var out []Task
	err := s.view(func(d *Data) error {
		if projectID != nil {
			if _, err := findProject(d, *projectID); err != nil {
				return err
			}
		}
		out = d.TasksInProject(projectID)
		return nil
	})
	return out, err
}

// MoveTask reassigns a task to projectID, or detaches it when nil.
func (s *Service) MoveTask(taskID int, projectID *int) (*Task, error) {
	var out Task
	err := s.update(func(d *Data) error {
		if err := d.Reassign(taskID, projectID); err != nil {
			return err
		}
		out = *d.FindTask(taskID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddTag adds a tag to a task. Adding a tag already present writes nothing.
func (s *Service) AddTag(id int, tag string) (*Task, error) {
	if err := validateText("tag", tag, maxNameLen); err != nil {
		return nil, err
	}
	return s.editTagged(id, func(t *Task) bool { return t.AddTag(tag) })
}

// RemoveTag removes a tag from a task. Removing an absent tag writes nothing.
func (s *Service) RemoveTag(id int, tag string) (*Task, error) {
	return s.editTagged(id, func(t *Task) bool { return t.RemoveTag(tag) })
}

func (s *Service) editTagged(id int, fn func(t *Task) bool) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	t, err := findTask(d, id)
	if err != nil {
		return nil, err
	}
	if !fn(t) {
		out := *t
		return &out, nil
	}
	out := *t
	if err := s.storage.Save(d); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDueDate sets or, with nil, clears a task's due date.
func (s *Service) SetDueDate(id int, due *time.Time) (*Task, error) {
	return s.editTask(id, func(t *Task) error {
		t.SetDueDate(due)
		return nil
	})
}

// AddSubtask appends a subtask to a task.
func (s *Service) AddSubtask(id int, title string) (*Task, error) {
	if err := validateText("title", title, maxTitleLen); err != nil {
		return nil, err
	}
	return s.editTask(id, func(t *Task) error {
		t.AddSubtask(strings.TrimSpace(title))
		return nil
	})
}

// ToggleSubtask flips a subtask's completed flag.
func (s *Service) ToggleSubtask(id, subtaskID int) (*Task, error) {
	return s.editTask(id, func(t *Task) error {
		return t.ToggleSubtask(subtaskID)
	})
}

// AddComment appends a comment signed by the service author.
func (s *Service) AddComment(id int, text string) (*Task, error) {
	if err := validateText("text", text, maxCommentLen); err != nil {
		return nil, err
	}
	return s.editTask(id, func(t *Task) error {
		t.AddComment(strings.TrimSpace(text), s.author)
		return nil
	})
}

// AddTime adds minutes to a task's time spent.
func (s *Service) AddTime(id, minutes int) (*Task, error) {
	return s.editTask(id, func(t *Task) error {
		return t.AddTime(minutes)
	})
}

// SetEstimatedTime sets or, with nil, clears a task's estimate in minutes.
func (s *Service) SetEstimatedTime(id int, minutes *int) (*Task, error) {
	return s.editTask(id, func(t *Task) error {
		return t.SetEstimatedTime(minutes)
	})
}

// TaskStats counts tasks per status across the workspace.
type TaskStats struct {
	Total              int     `json:"total"`
	Todo               int     `json:"todo"`
	InProgress         int     `json:"in_progress"`
	Done               int     `json:"done"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// ProjectStats counts tasks per status within one project.
type ProjectStats struct {
	ProjectID          int     `json:"project_id"`
	TotalTasks         int     `json:"total_tasks"`
	TodoTasks          int     `json:"todo_tasks"`
	InProgressTasks    int     `json:"in_progress_tasks"`
	DoneTasks          int     `json:"done_tasks"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// GetTaskStats summarizes every task.
func (s *Service) GetTaskStats() (TaskStats, error) {
	var out TaskStats
	err := s.view(func(d *Data) error {
		out = TaskStats{
			Total:              len(d.Tasks),
			Todo:               d.CountByStatus(StatusTodo),
			InProgress:         d.CountByStatus(StatusInProgress),
			Done:               d.CountByStatus(StatusDone),
			ProgressPercentage: d.Progress(),
		}
		return nil
	})
	return out, err
}

// GetProjectStats summarizes the tasks of one project.
func (s *Service) GetProjectStats(projectID int) (ProjectStats, error) {
	var out ProjectStats
	err := s.view(func(d *Data) error {
		if _, err := findProject(d, projectID); err != nil {
			return err
		}
		tasks := d.TasksInProject(&projectID)
		out = ProjectStats{
			ProjectID:          projectID,
			TotalTasks:         len(tasks),
			TodoTasks:          countStatus(tasks, StatusTodo),
			InProgressTasks:    countStatus(tasks, StatusInProgress),
			DoneTasks:          countStatus(tasks, StatusDone),
			ProgressPercentage: doneShare(tasks),
		}
		return nil
	})
	return out, err
}

// GetTasksByTag returns tasks carrying tag.
func (s *Service) GetTasksByTag(tag string) ([]Task, error) {
	tag = strings.TrimSpace(tag)
	return s.filter(func(t *Task) bool { return t.HasTag(tag) })
}

// GetTasksByDueDate returns tasks due on the calendar day of day (UTC).
func (s *Service) GetTasksByDueDate(day time.Time) ([]Task, error) {
	return s.filter(func(t *Task) bool { return t.DueOn(day) })
}

// GetOverdueTasks returns unfinished tasks whose due date has passed.
func (s *Service) GetOverdueTasks() ([]Task, error) {
	at := now()
	return s.filter(func(t *Task) bool { return t.IsOverdue(at) })
}

func (s *Service) filter(keep func(t *Task) bool) ([]Task, error) {
	out := []Task{}
	err := s.view(func(d *Data) error {
		for i := range d.Tasks {
			if keep(&d.Tasks[i]) {
				out = append(out, d.Tasks[i])
			}
		}
		return nil
	})
	return out, err
}

// GetAllTags returns every tag in use, sorted.
func (s *Service) GetAllTags() ([]string, error) {
	var out []string
	err := s.view(func(d *Data) error {
		out = d.AllTags()
		return nil
	})
	return out, err
}

// ExportData returns the workspace wrapped in an export envelope as pretty
// JSON.
func (s *Service) ExportData() (string, error) {
	var out []byte
	err := s.view(func(d *Data) error {
		b, err := jsonfile.Marshal(newExport(d))
		out = b
		return err
	})
	return string(out), err
}

// ExportDataToFile writes the export envelope to path.
func (s *Service) ExportDataToFile(path string) error {
	err := s.view(func(d *Data) error {
		return jsonfile.Write(path, newExport(d))
	})
	if err == nil {
		s.logger.Info("exported workspace", "to", path)
	}
	return err
}

// ImportData imports an export envelope, a current file or a legacy file.
// With merge false the workspace is replaced; with merge true every incoming
// project and task gets a fresh id and is appended.
func (s *Service) ImportData(content string, merge bool) (ImportResult, error) {
	var res ImportResult
	err := s.update(func(d *Data) error {
		next, r, err := applyImport(d, []byte(content), merge)
		if err != nil {
			return err
		}
		*d = *next
		res = r
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.Info("imported workspace", "merge", merge, "format", res.FormatType,
		"tasks", res.ImportedTasks, "projects", res.ImportedProjects)
	return res, nil
}

// ValidateImportPayload reports what ImportData would do with content
// without changing anything.
func (s *Service) ValidateImportPayload(content string) ImportValidation {
	return ValidatePayload([]byte(content))
}

// Backup copies the data file verbatim to dst, or to "<path>.backup" when
// dst is empty.
func (s *Service) Backup(dst string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Backup(dst)
}

// Restore replaces the workspace with the contents of src.
func (s *Service) Restore(src string) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Restore(src)
}
