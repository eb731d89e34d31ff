package workspace

import (
	"sort"

	"github.com/tgienger/ruidmap/internal/apperr"
)

// NewData returns a fresh aggregate holding one default project.
func NewData() *Data {
	one := 1
	return &Data{
		Tasks:            []Task{},
		Projects:         []Project{NewProject(1, DefaultProjectName)},
		CurrentProjectID: &one,
		Theme:            DefaultTheme,
		Version:          CurrentVersion,
	}
}

// NextTaskID returns max task id + 1.
func (d *Data) NextTaskID() int {
	id := 0
	for _, t := range d.Tasks {
		id = max(id, t.ID)
	}
	return id + 1
}

// NextProjectID returns max project id + 1.
func (d *Data) NextProjectID() int {
	id := 0
	for _, p := range d.Projects {
		id = max(id, p.ID)
	}
	return id + 1
}

// FindTask returns the task with id, or nil.
func (d *Data) FindTask(id int) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

// FindProject returns the project with id, or nil.
func (d *Data) FindProject(id int) *Project {
	for i := range d.Projects {
		if d.Projects[i].ID == id {
			return &d.Projects[i]
		}
	}
	return nil
}

// CurrentProject returns the current project, or nil.
func (d *Data) CurrentProject() *Project {
	if d.CurrentProjectID == nil {
		return nil
	}
	return d.FindProject(*d.CurrentProjectID)
}

// AddTask appends t. A ProjectID naming no project is cleared.
func (d *Data) AddTask(t Task) *Task {
	if t.ProjectID != nil && d.FindProject(*t.ProjectID) == nil {
		t.ProjectID = nil
	}
	d.Tasks = append(d.Tasks, t)
	d.RefreshTaskCounts()
	return &d.Tasks[len(d.Tasks)-1]
}

// AddProject appends p and makes it current if there was none.
func (d *Data) AddProject(p Project) *Project {
	d.Projects = append(d.Projects, p)
	if d.CurrentProject() == nil {
		id := p.ID
		d.CurrentProjectID = &id
	}
	d.RefreshTaskCounts()
	return &d.Projects[len(d.Projects)-1]
}

// RemoveTask deletes the task with id.
func (d *Data) RemoveTask(id int) error {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			d.Tasks = append(d.Tasks[:i], d.Tasks[i+1:]...)
			d.RefreshTaskCounts()
			return nil
		}
	}
	return apperr.NotFound("task", id)
}

// RemoveProject deletes a project and detaches its tasks. The only project
// cannot be removed while tasks exist. If it was current, the first
// remaining project becomes current.
func (d *Data) RemoveProject(id int) error {
	idx := -1
	for i := range d.Projects {
		if d.Projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.NotFound("project", id)
	}
	if len(d.Projects) == 1 && len(d.Tasks) > 0 {
		return &apperr.LastContainerError{Kind: "project"}
	}

	for i := range d.Tasks {
		if d.Tasks[i].ProjectID != nil && *d.Tasks[i].ProjectID == id {
			d.Tasks[i].ProjectID = nil
			d.Tasks[i].touch()
		}
	}
	d.Projects = append(d.Projects[:idx], d.Projects[idx+1:]...)

	if d.CurrentProjectID != nil && *d.CurrentProjectID == id {
		d.CurrentProjectID = nil
		if len(d.Projects) > 0 {
			first := d.Projects[0].ID
			d.CurrentProjectID = &first
		}
	}
	d.RefreshTaskCounts()
	return nil
}

// Reassign moves a task to projectID, or out of every project when nil.
// Repeating the call changes nothing.
func (d *Data) Reassign(taskID int, projectID *int) error {
	t := d.FindTask(taskID)
	if t == nil {
		return apperr.NotFound("task", taskID)
	}
	if projectID != nil && d.FindProject(*projectID) == nil {
		return apperr.NotFound("project", *projectID)
	}
	if t.InProject(projectID) {
		return nil
	}
	t.ProjectID = copyInt(projectID)
	t.touch()
	d.RefreshTaskCounts()
	return nil
}

// SwitchProject makes id the current project.
func (d *Data) SwitchProject(id int) (*Project, error) {
	p := d.FindProject(id)
	if p == nil {
		return nil, apperr.NotFound("project", id)
	}
	current := id
	d.CurrentProjectID = &current
	return p, nil
}

// TasksInProject returns tasks whose ProjectID equals projectID, in storage
// order. Nil selects tasks without a project.
func (d *Data) TasksInProject(projectID *int) []Task {
	out := []Task{}
	for _, t := range d.Tasks {
		if t.InProject(projectID) {
			out = append(out, t)
		}
	}
	return out
}

// TasksByStatus returns tasks in status s, in storage order.
func (d *Data) TasksByStatus(s Status) []Task {
	out := []Task{}
	for _, t := range d.Tasks {
		if t.Status == s {
			out = append(out, t)
		}
	}
	return out
}

// CountByStatus counts tasks in status s.
func (d *Data) CountByStatus(s Status) int {
	return countStatus(d.Tasks, s)
}

func countStatus(tasks []Task, s Status) int {
	n := 0
	for _, t := range tasks {
		if t.Status == s {
			n++
		}
	}
	return n
}

// Progress is the share of done tasks as a percentage, 0 when empty.
func (d *Data) Progress() float64 {
	return doneShare(d.Tasks)
}

func doneShare(tasks []Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	return float64(countStatus(tasks, StatusDone)) / float64(len(tasks)) * 100
}

// AllTags returns every tag in use, sorted and deduplicated.
func (d *Data) AllTags() []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, t := range d.Tasks {
		for _, tag := range t.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// RefreshTaskCounts recomputes every project's TaskCount and reports
// whether any changed. UpdatedAt is left alone.
func (d *Data) RefreshTaskCounts() bool {
	counts := make(map[int]int, len(d.Projects))
	for _, t := range d.Tasks {
		if t.ProjectID != nil {
			counts[*t.ProjectID]++
		}
	}
	changed := false
	for i := range d.Projects {
		if n := counts[d.Projects[i].ID]; d.Projects[i].TaskCount != n {
			d.Projects[i].TaskCount = n
			changed = true
		}
	}
	return changed
}

// Normalize fills defaults a decoded file may lack, makes CompletedAt agree
// with the status and repairs project references. It reports whether
// anything changed.
func (d *Data) Normalize() bool {
	changed := false
	if d.Tasks == nil {
		d.Tasks = []Task{}
		changed = true
	}
	if d.Projects == nil {
		d.Projects = []Project{}
		changed = true
	}
	if d.Theme == "" {
		d.Theme = DefaultTheme
		changed = true
	}
	for i := range d.Tasks {
		if normalizeTask(&d.Tasks[i]) {
			changed = true
		}
	}
	for i := range d.Projects {
		if normalizeSettings(&d.Projects[i].Settings) {
			changed = true
		}
	}
	if d.repairReferences() {
		changed = true
	}
	if d.RefreshTaskCounts() {
		changed = true
	}
	return changed
}

func normalizeTask(t *Task) bool {
	changed := false
	if t.Tags == nil {
		t.Tags = []string{}
		changed = true
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
		changed = true
	}
	if t.Comments == nil {
		t.Comments = []Comment{}
		changed = true
	}
	if t.Attachments == nil {
		t.Attachments = []Attachment{}
		changed = true
	}
	if !t.Status.Valid() {
		t.Status = StatusTodo
		changed = true
	}
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
		changed = true
	}
	if t.Status == StatusDone && t.CompletedAt == nil {
		ts := t.UpdatedAt
		t.CompletedAt = &ts
		changed = true
	}
	if t.Status != StatusDone && t.CompletedAt != nil {
		t.CompletedAt = nil
		changed = true
	}
	return changed
}

// repairReferences makes every project reference valid. A task's
// ProjectID of 0 means no project. A ProjectID naming no project moves the
// task to the current project. CurrentProjectID is pointed at the first
// project when it is unset or dangling. Tasks with no project to hold them
// get a default project.
func (d *Data) repairReferences() bool {
	changed := false
	if len(d.Projects) == 0 && len(d.Tasks) > 0 {
		d.Projects = append(d.Projects, NewProject(1, DefaultProjectName))
		changed = true
	}
	if len(d.Projects) == 0 {
		if d.CurrentProjectID != nil {
			d.CurrentProjectID = nil
			changed = true
		}
		return changed
	}
	if d.CurrentProject() == nil {
		first := d.Projects[0].ID
		d.CurrentProjectID = &first
		changed = true
	}
	for i := range d.Tasks {
		t := &d.Tasks[i]
		switch {
		case t.ProjectID == nil:
		case *t.ProjectID == 0:
			t.ProjectID = nil
			changed = true
		case d.FindProject(*t.ProjectID) == nil:
			id := *d.CurrentProjectID
			t.ProjectID = &id
			changed = true
		}
	}
	return changed
}

// adoptOrphans is the reference repair run when the version tag is stale:
// it guarantees a project exists, points CurrentProjectID at a real
// project, and moves tasks with a missing or dangling ProjectID into the
// current project.
func (d *Data) adoptOrphans() {
	if len(d.Projects) == 0 {
		d.Projects = append(d.Projects, NewProject(1, DefaultProjectName))
	}
	d.repairReferences()
	target := *d.CurrentProjectID
	for i := range d.Tasks {
		t := &d.Tasks[i]
		if t.ProjectID == nil {
			id := target
			t.ProjectID = &id
		}
	}
	d.RefreshTaskCounts()
}
