package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/ruidmap/internal/apperr"
)

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewService(filepath.Join(t.TempDir(), "tasks.json"), opts...)
}

func addTask(t *testing.T, s *Service, title string) *Task {
	t.Helper()
	task, err := s.AddTask(TaskCreateRequest{Title: title})
	require.NoError(t, err)
	return task
}

func problemsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	return ve.Problems
}

func TestServiceAddTaskGoesToCurrentProject(t *testing.T) {
	s := newService(t)

	task := addTask(t, s, "first")

	assert.Equal(t, 1, task.ID)
	require.NotNil(t, task.ProjectID)
	assert.Equal(t, 1, *task.ProjectID)
	assert.Equal(t, StatusTodo, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)

	_, err = s.GetTask(99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceAddTaskValidation(t *testing.T) {
	s := newService(t)
	negative := -3
	bad := Priority("urgent")

	_, err := s.AddTask(TaskCreateRequest{Title: "", EstimatedTime: &negative, Priority: &bad})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	problems := problemsOf(t, err)
	assert.Contains(t, problems, "title")
	assert.Contains(t, problems, "estimated_time")
	assert.Contains(t, problems, "priority")

	_, err = s.AddTask(TaskCreateRequest{Title: "x", ProjectID: intp(5)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	tasks, err := s.GetTasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestServiceAddTaskUsesProjectSettings(t *testing.T) {
	s := newService(t)
	p, err := s.CreateProject(ProjectCreateRequest{Name: "Ops", Color: "#336699"})
	require.NoError(t, err)
	assert.Equal(t, 2, p.ID)

	prefix, desc, estimate := "[ops] ", "runbook", 30
	settings := DefaultSettings()
	settings.DefaultPriority = PriorityHigh
	settings.DefaultTags = []string{"ops"}
	settings.TaskTemplate = &TaskTemplate{
		TitlePrefix:          &prefix,
		DefaultDescription:   &desc,
		DefaultTags:          []string{"oncall"},
		DefaultEstimatedTime: &estimate,
	}
	_, err = s.UpdateProject(ProjectUpdateRequest{ID: p.ID, Settings: &settings})
	require.NoError(t, err)

	task, err := s.AddTask(TaskCreateRequest{Title: "restart db", ProjectID: &p.ID, Tags: []string{"db", "ops"}})
	require.NoError(t, err)

	assert.Equal(t, "[ops] restart db", task.Title)
	assert.Equal(t, "runbook", task.Description)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, []string{"ops", "oncall", "db"}, task.Tags)
	require.NotNil(t, task.EstimatedTime)
	assert.Equal(t, 30, *task.EstimatedTime)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)

	low := PriorityLow
	task, err = s.AddTask(TaskCreateRequest{Title: "x", ProjectID: &p.ID, Priority: &low})
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, task.Priority)
}

func TestServiceUpdateTask(t *testing.T) {
	clock := freezeClock(t)
	s := newService(t)
	task := addTask(t, s, "draft")

	title, done := "final", StatusDone
	due := clock.AddDate(0, 0, 3)
	*clock = clock.Add(time.Hour)
	updated, err := s.UpdateTask(TaskUpdateRequest{ID: task.ID, Title: &title, Status: &done, DueDate: &due, Tags: []string{"a"}})
	require.NoError(t, err)

	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, StatusDone, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, *clock, *updated.CompletedAt)
	assert.Equal(t, due, *updated.DueDate)
	assert.Equal(t, []string{"a"}, updated.Tags)

	updated, err = s.UpdateTask(TaskUpdateRequest{ID: task.ID, ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)

	empty := ""
	_, err = s.UpdateTask(TaskUpdateRequest{ID: task.ID, Title: &empty})
	assert.Contains(t, problemsOf(t, err), "title")

	_, err = s.UpdateTask(TaskUpdateRequest{ID: 42, Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceToggleStatusCycle(t *testing.T) {
	s := newService(t)
	task := addTask(t, s, "Ship v1")

	for _, want := range []Status{StatusInProgress, StatusDone, StatusTodo} {
		got, err := s.ToggleTaskStatus(task.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
		assert.Equal(t, want == StatusDone, got.CompletedAt != nil)
	}
}

func TestServiceConcurrentAddsGetUniqueIDs(t *testing.T) {
	s := newService(t)
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddTask(TaskCreateRequest{Title: "task"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tasks, err := s.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, n)
	seen := map[int]bool{}
	for _, task := range tasks {
		assert.False(t, seen[task.ID], "duplicate id %d", task.ID)
		seen[task.ID] = true
	}
	current, err := s.GetCurrentProject()
	require.NoError(t, err)
	assert.Equal(t, n, current.TaskCount)
}

func TestServiceProjectLifecycle(t *testing.T) {
	s := newService(t)
	inbox, err := s.CreateProject(ProjectCreateRequest{Name: "Inbox"})
	require.NoError(t, err)
	done, err := s.CreateProject(ProjectCreateRequest{Name: "Done", Description: "finished work"})
	require.NoError(t, err)
	require.NotNil(t, done.Description)

	x, err := s.AddTask(TaskCreateRequest{Title: "X", ProjectID: &inbox.ID})
	require.NoError(t, err)
	_, err = s.MoveTask(x.ID, &done.ID)
	require.NoError(t, err)
	_, err = s.MoveTask(x.ID, &done.ID)
	require.NoError(t, err)

	inInbox, err := s.GetTasksByProject(&inbox.ID)
	require.NoError(t, err)
	assert.Empty(t, inInbox)
	inDone, err := s.GetTasksByProject(&done.ID)
	require.NoError(t, err)
	require.Len(t, inDone, 1)
	assert.Equal(t, x.ID, inDone[0].ID)

	switched, err := s.SwitchProject(done.ID)
	require.NoError(t, err)
	assert.Equal(t, "Done", switched.Name)
	current, err := s.GetCurrentProject()
	require.NoError(t, err)
	assert.Equal(t, done.ID, current.ID)

	toggled, err := s.ToggleProjectActive(inbox.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	name, color := "Archive", "#000"
	renamed, err := s.UpdateProject(ProjectUpdateRequest{ID: done.ID, Name: &name, Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Archive", renamed.Name)
	assert.Equal(t, "#000", *renamed.Color)

	require.NoError(t, s.DeleteProject(done.ID))
	loose, err := s.GetTasksByProject(nil)
	require.NoError(t, err)
	require.Len(t, loose, 1)
	assert.Equal(t, x.ID, loose[0].ID)

	projects, err := s.ListProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 2)
	current, err = s.GetCurrentProject()
	require.NoError(t, err)
	assert.Equal(t, 1, current.ID)

	assert.ErrorIs(t, s.DeleteProject(done.ID), apperr.ErrNotFound)
	_, err = s.SwitchProject(done.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceProjectValidation(t *testing.T) {
	s := newService(t)

	_, err := s.CreateProject(ProjectCreateRequest{Name: "", Color: "red"})
	problems := problemsOf(t, err)
	assert.Contains(t, problems, "name")
	assert.Contains(t, problems, "color")

	bad := Priority("urgent")
	settings := DefaultSettings()
	settings.DefaultPriority = bad
	_, err = s.UpdateProject(ProjectUpdateRequest{ID: 1, Settings: &settings})
	assert.Contains(t, problemsOf(t, err), "settings")
}

func TestServiceDeleteLastProjectFails(t *testing.T) {
	s := newService(t)
	addTask(t, s, "keep me")
	before := readFile(t, s.Path())

	err := s.DeleteProject(1)

	assert.ErrorIs(t, err, apperr.ErrLastContainer)
	assert.Equal(t, before, readFile(t, s.Path()))
}

func TestServiceDeleteTask(t *testing.T) {
	s := newService(t)
	task := addTask(t, s, "gone")

	require.NoError(t, s.DeleteTask(task.ID))
	assert.ErrorIs(t, s.DeleteTask(task.ID), apperr.ErrNotFound)

	p, err := s.GetCurrentProject()
	require.NoError(t, err)
	assert.Equal(t, 0, p.TaskCount)
}

func TestServiceTagNoOpWritesNothing(t *testing.T) {
	s := newService(t)
	task := addTask(t, s, "tagged")

	got, err := s.AddTag(task.ID, "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, got.Tags)
	before := readFile(t, s.Path())

	_, err = s.AddTag(task.ID, "go")
	require.NoError(t, err)
	_, err = s.RemoveTag(task.ID, "rust")
	require.NoError(t, err)
	assert.Equal(t, before, readFile(t, s.Path()))

	got, err = s.RemoveTag(task.ID, "go")
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	_, err = s.AddTag(task.ID, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.AddTag(77, "go")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceItemMutators(t *testing.T) {
	s := newService(t, WithAuthor("dana"))
	task := addTask(t, s, "work")

	got, err := s.AddSubtask(task.ID, "step")
	require.NoError(t, err)
	require.Len(t, got.Subtasks, 1)

	got, err = s.ToggleSubtask(task.ID, got.Subtasks[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Subtasks[0].Completed)
	_, err = s.ToggleSubtask(task.ID, 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err = s.AddComment(task.ID, "  looks good ")
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "looks good", got.Comments[0].Text)
	assert.Equal(t, "dana", got.Comments[0].Author)
	_, err = s.AddComment(task.ID, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err = s.AddTime(task.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, got.TimeSpent)
	_, err = s.AddTime(task.ID, -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err = s.SetEstimatedTime(task.ID, intp(60))
	require.NoError(t, err)
	assert.Equal(t, 60, *got.EstimatedTime)

	reloaded, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.JSONEq(t, mustJSON(t, got), mustJSON(t, reloaded))
}

func TestServiceStatsAndFilters(t *testing.T) {
	clock := freezeClock(t)
	s := newService(t)
	side, err := s.CreateProject(ProjectCreateRequest{Name: "Side"})
	require.NoError(t, err)

	a := addTask(t, s, "a")
	b := addTask(t, s, "b")
	c, err := s.AddTask(TaskCreateRequest{Title: "c", ProjectID: &side.ID, Tags: []string{"home"}})
	require.NoError(t, err)

	_, err = s.ToggleTaskStatus(a.ID)
	require.NoError(t, err)
	_, err = s.ToggleTaskStatus(a.ID)
	require.NoError(t, err)
	_, err = s.ToggleTaskStatus(b.ID)
	require.NoError(t, err)

	yesterday := clock.AddDate(0, 0, -1)
	tomorrow := clock.AddDate(0, 0, 1)
	_, err = s.SetDueDate(b.ID, &yesterday)
	require.NoError(t, err)
	_, err = s.SetDueDate(c.ID, &tomorrow)
	require.NoError(t, err)
	_, err = s.SetDueDate(a.ID, &yesterday)
	require.NoError(t, err)

	stats, err := s.GetTaskStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Todo)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Done)
	assert.InDelta(t, 33.33, stats.ProgressPercentage, 0.01)

	ps, err := s.GetProjectStats(1)
	require.NoError(t, err)
	assert.Equal(t, ProjectStats{ProjectID: 1, TotalTasks: 2, InProgressTasks: 1, DoneTasks: 1, ProgressPercentage: 50}, ps)
	_, err = s.GetProjectStats(9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	overdue, err := s.GetOverdueTasks()
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, b.ID, overdue[0].ID)

	due, err := s.GetTasksByDueDate(tomorrow)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, c.ID, due[0].ID)

	tagged, err := s.GetTasksByTag("home")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, c.ID, tagged[0].ID)

	byStatus, err := s.GetTasksByStatus(StatusDone)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)
	_, err = s.GetTasksByStatus("blocked")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	tags, err := s.GetAllTags()
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, tags)
}

func TestServiceTheme(t *testing.T) {
	s := newService(t)

	theme, err := s.GetTheme()
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme, theme)

	require.NoError(t, s.SetTheme("dark"))
	theme, err = s.GetTheme()
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)

	assert.ErrorIs(t, s.SetTheme(" "), apperr.ErrValidation)
}

func TestServiceExportImportRoundTrip(t *testing.T) {
	src := newService(t)
	addTask(t, src, "one")
	_, err := src.CreateProject(ProjectCreateRequest{Name: "Two"})
	require.NoError(t, err)
	exported, err := src.ExportData()
	require.NoError(t, err)

	v := src.ValidateImportPayload(exported)
	assert.True(t, v.Valid)
	assert.Equal(t, FormatExport, v.FormatType)

	dst := newService(t)
	addTask(t, dst, "existing")

	res, err := dst.ImportData(exported, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedTasks)
	tasks, err := dst.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "one", tasks[0].Title)

	res, err = dst.ImportData(exported, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedProjects)
	tasks, err = dst.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 2, tasks[1].ID)
	assert.Equal(t, 3, *tasks[1].ProjectID)
}

func TestServiceImportInvalidLeavesFile(t *testing.T) {
	s := newService(t)
	addTask(t, s, "keep")
	before := readFile(t, s.Path())

	_, err := s.ImportData(`{"nothing": true}`, false)

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, before, readFile(t, s.Path()))
}

func TestServiceExportToFile(t *testing.T) {
	s := newService(t)
	addTask(t, s, "one")
	path := filepath.Join(t.TempDir(), "export.json")

	require.NoError(t, s.ExportDataToFile(path))

	v := ValidatePayload([]byte(readFile(t, path)))
	assert.True(t, v.Valid)
	assert.Equal(t, 1, v.TaskCount)
}

func TestServiceBackupRestore(t *testing.T) {
	s := newService(t)
	addTask(t, s, "before backup")

	dst, err := s.Backup("")
	require.NoError(t, err)
	addTask(t, s, "after backup")

	restored, err := s.Restore(dst)
	require.NoError(t, err)
	assert.Len(t, restored.Tasks, 1)

	tasks, err := s.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "before backup", tasks[0].Title)
}

func TestServiceSaveData(t *testing.T) {
	s := newService(t)
	d := NewData()
	d.AddTask(NewTask(1, intp(1), "saved", ""))
	d.Version = "0.1.0"

	require.NoError(t, s.SaveData(d))

	loaded, err := s.LoadData()
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, loaded.Version)
	require.Len(t, loaded.Tasks, 1)
	assert.ErrorIs(t, s.SaveData(nil), apperr.ErrValidation)
}

func TestServiceTrimsTitlesBeforeValidating(t *testing.T) {
	s := newService(t)

	_, err := s.AddTask(TaskCreateRequest{Title: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, problemsOf(t, err), "title")

	task, err := s.AddTask(TaskCreateRequest{Title: "  padded  "})
	require.NoError(t, err)
	assert.Equal(t, "padded", task.Title)

	blank := "  "
	_, err = s.UpdateTask(TaskUpdateRequest{ID: task.ID, Title: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "  ", blank)

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "padded", got.Title)

	_, err = s.CreateProject(ProjectCreateRequest{Name: " \t "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UpdateProject(ProjectUpdateRequest{ID: 1, Name: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestServiceRepairsReferencesOnLoad(t *testing.T) {
	s := newService(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(danglingWorkspace), 0o644))

	task, err := s.AddTask(TaskCreateRequest{Title: "new"})
	require.NoError(t, err)
	require.NotNil(t, task.ProjectID)
	assert.Equal(t, 1, *task.ProjectID)

	stats, err := s.GetProjectStats(1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
}

func TestServiceImportReplaceRepairsReferences(t *testing.T) {
	s := newService(t)
	addTask(t, s, "existing")

	_, err := s.ImportData(danglingWorkspace, false)
	require.NoError(t, err)

	current, err := s.GetCurrentProject()
	require.NoError(t, err)
	assert.Equal(t, 1, current.ID)
	stats, err := s.GetProjectStats(1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTasks)
}

func TestServiceSaveDataRepairsReferences(t *testing.T) {
	s := newService(t)
	d := NewData()
	d.Tasks = append(d.Tasks, NewTask(1, intp(42), "lost", ""), NewTask(2, intp(0), "zero", ""))
	d.CurrentProjectID = intp(9)

	require.NoError(t, s.SaveData(d))

	loaded, err := s.LoadData()
	require.NoError(t, err)
	assert.Equal(t, 1, *loaded.CurrentProjectID)
	assert.Equal(t, 1, *loaded.Tasks[0].ProjectID)
	assert.Nil(t, loaded.Tasks[1].ProjectID)
	assert.Equal(t, 1, loaded.Projects[0].TaskCount)
}

func TestServiceUpdateTaskEstimate(t *testing.T) {
	s := newService(t)
	task := addTask(t, s, "estimate me")

	got, err := s.UpdateTask(TaskUpdateRequest{ID: task.ID, EstimatedTime: intp(45)})
	require.NoError(t, err)
	require.NotNil(t, got.EstimatedTime)
	assert.Equal(t, 45, *got.EstimatedTime)

	req := TaskUpdateRequest{ID: task.ID, EstimatedTime: intp(-5)}
	assert.ErrorIs(t, req.apply(got), apperr.ErrValidation)
	assert.Equal(t, 45, *got.EstimatedTime)
}
