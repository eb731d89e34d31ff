package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/ruidmap/internal/apperr"
)

const legacyWorkspace = `{
  "tasks": [
    {
      "id": 1,
      "title": "Write report",
      "description": "",
      "status": "done",
      "priority": "high",
      "created_at": "2023-02-01T08:00:00Z",
      "updated_at": "2023-02-02T08:00:00Z",
      "tags": ["work"]
    },
    {
      "id": 2,
      "title": "Call bank",
      "status": "todo",
      "priority": "low",
      "created_at": "2023-02-01T09:00:00Z",
      "updated_at": "2023-02-01T09:00:00Z"
    }
  ],
  "theme": "dark"
}`

const staleWorkspace = `{
  "tasks": [
    {"id": 1, "project_id": null, "title": "a", "status": "todo", "priority": "low",
     "created_at": "2023-03-01T00:00:00Z", "updated_at": "2023-03-01T00:00:00Z"},
    {"id": 2, "project_id": 9, "title": "b", "status": "in-progress", "priority": "medium",
     "created_at": "2023-03-01T00:00:00Z", "updated_at": "2023-03-01T00:00:00Z"},
    {"id": 3, "project_id": 4, "title": "c", "status": "todo", "priority": "high",
     "created_at": "2023-03-01T00:00:00Z", "updated_at": "2023-03-01T00:00:00Z"}
  ],
  "projects": [
    {"id": 3, "name": "Home", "created_at": "2023-03-01T00:00:00Z", "updated_at": "2023-03-01T00:00:00Z"},
    {"id": 4, "name": "Work", "created_at": "2023-03-01T00:00:00Z", "updated_at": "2023-03-01T00:00:00Z"}
  ],
  "current_project_id": 7,
  "theme": "light",
  "version": "0.9.0"
}`

// danglingWorkspace carries the current version tag but broken references:
// task 1 names a missing project, task 2 uses 0 for "no project" and the
// current project does not exist.
const danglingWorkspace = `{
  "tasks": [
    {"id": 1, "project_id": 42, "title": "lost", "status": "todo", "priority": "low",
     "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"},
    {"id": 2, "project_id": 0, "title": "zero", "status": "todo", "priority": "low",
     "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"},
    {"id": 3, "project_id": null, "title": "loose", "status": "todo", "priority": "low",
     "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"},
    {"id": 4, "project_id": 1, "title": "home", "status": "done", "priority": "high",
     "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-02T00:00:00Z",
     "completed_at": "2024-01-02T00:00:00Z"}
  ],
  "projects": [
    {"id": 1, "name": "Inbox", "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"}
  ],
  "current_project_id": 7,
  "theme": "light",
  "version": "1.0.0"
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestLoadAbsentCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := NewStorage(path, nil)

	d, err := s.Load()
	require.NoError(t, err)

	require.Len(t, d.Projects, 1)
	assert.Equal(t, DefaultProjectName, d.Projects[0].Name)
	assert.Equal(t, 1, *d.CurrentProjectID)
	assert.Equal(t, CurrentVersion, d.Version)
	assert.FileExists(t, path)

	first := readFile(t, path)
	_, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, first, readFile(t, path))
}

func TestLoadMigratesLegacy(t *testing.T) {
	path := writeFile(t, "tasks.json", legacyWorkspace)
	s := NewStorage(path, nil)

	d, err := s.Load()
	require.NoError(t, err)

	require.Len(t, d.Projects, 1)
	assert.Equal(t, 1, d.Projects[0].ID)
	assert.Equal(t, 2, d.Projects[0].TaskCount)
	assert.Equal(t, "dark", d.Theme)
	assert.Equal(t, CurrentVersion, d.Version)
	for _, task := range d.Tasks {
		require.NotNil(t, task.ProjectID)
		assert.Equal(t, 1, *task.ProjectID)
	}
	require.NotNil(t, d.Tasks[0].CompletedAt)
	assert.Equal(t, d.Tasks[0].UpdatedAt, *d.Tasks[0].CompletedAt)
	assert.Equal(t, []string{}, d.Tasks[1].Tags)

	migrated := readFile(t, path)
	assert.NotEqual(t, legacyWorkspace, migrated)

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, migrated, readFile(t, path))
	assert.Equal(t, d.Tasks, again.Tasks)
}

func TestLoadStaleVersionAdoptsOrphans(t *testing.T) {
	path := writeFile(t, "tasks.json", staleWorkspace)
	s := NewStorage(path, nil)

	d, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, d.Version)
	assert.Equal(t, 3, *d.CurrentProjectID)
	assert.Equal(t, 3, *d.Tasks[0].ProjectID)
	assert.Equal(t, 3, *d.Tasks[1].ProjectID)
	assert.Equal(t, 4, *d.Tasks[2].ProjectID)
	assert.Equal(t, 2, d.FindProject(3).TaskCount)
	assert.Equal(t, 1, d.FindProject(4).TaskCount)

	migrated := readFile(t, path)
	_, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, migrated, readFile(t, path))
}

func TestLoadCurrentDoesNotRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := NewStorage(path, nil)
	d := NewData()
	d.AddTask(NewTask(1, intp(1), "a", ""))
	require.NoError(t, s.Save(d))
	info, err := os.Stat(path)
	require.NoError(t, err)
	before := readFile(t, path)

	_, err = s.Load()
	require.NoError(t, err)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before, readFile(t, path))
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestLoadCurrentRepairsDanglingReferences(t *testing.T) {
	path := writeFile(t, "tasks.json", danglingWorkspace)
	s := NewStorage(path, nil)

	d, err := s.Load()
	require.NoError(t, err)

	require.NotNil(t, d.CurrentProjectID)
	assert.Equal(t, 1, *d.CurrentProjectID)
	require.NotNil(t, d.Tasks[0].ProjectID)
	assert.Equal(t, 1, *d.Tasks[0].ProjectID)
	assert.Nil(t, d.Tasks[1].ProjectID)
	assert.Nil(t, d.Tasks[2].ProjectID)
	assert.Equal(t, 1, *d.Tasks[3].ProjectID)
	assert.Equal(t, 2, d.FindProject(1).TaskCount)

	repaired := readFile(t, path)
	assert.NotEqual(t, danglingWorkspace, repaired)
	_, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, repaired, readFile(t, path))
}

func TestLoadCurrentWithoutProjectsGetsDefault(t *testing.T) {
	path := writeFile(t, "tasks.json", `{
  "tasks": [
    {"id": 1, "project_id": 3, "title": "a", "status": "todo", "priority": "low",
     "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"}
  ],
  "projects": [],
  "version": "1.0.0"
}`)

	d, err := NewStorage(path, nil).Load()
	require.NoError(t, err)

	require.Len(t, d.Projects, 1)
	assert.Equal(t, DefaultProjectName, d.Projects[0].Name)
	assert.Equal(t, 1, *d.CurrentProjectID)
	assert.Equal(t, 1, *d.Tasks[0].ProjectID)
}

func TestLoadCorruptLeavesFileUntouched(t *testing.T) {
	cases := map[string]string{
		"unknown shape": `{"items": []}`,
		"not json":      `{"tasks": [`,
		"bad enum": `{"tasks": [{"id": 1, "title": "a", "status": "blocked", "priority": "low",
			"created_at": "2023-03-01T00:00:00Z", "updated_at": "2023-03-01T00:00:00Z"}],
			"projects": [], "version": "1.0.0"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "tasks.json", content)

			_, err := NewStorage(path, nil).Load()

			var corrupt *apperr.CorruptDataError
			require.ErrorAs(t, err, &corrupt)
			assert.ErrorIs(t, err, apperr.ErrCorruptData)
			assert.Equal(t, path, corrupt.Path)
			assert.Equal(t, content, readFile(t, path))
		})
	}
}

func TestBackupIsVerbatim(t *testing.T) {
	path := writeFile(t, "tasks.json", legacyWorkspace)
	s := NewStorage(path, nil)

	dst, err := s.Backup("")
	require.NoError(t, err)
	assert.Equal(t, path+".backup", dst)
	assert.Equal(t, legacyWorkspace, readFile(t, dst))

	custom := filepath.Join(t.TempDir(), "copy.json")
	dst, err = s.Backup(custom)
	require.NoError(t, err)
	assert.Equal(t, custom, dst)
}

func TestBackupMissingFile(t *testing.T) {
	s := NewStorage(filepath.Join(t.TempDir(), "missing.json"), nil)
	_, err := s.Backup("")
	assert.ErrorIs(t, err, apperr.ErrIO)
}

func TestRestoreReplacesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := NewStorage(path, nil)
	d := NewData()
	d.AddTask(NewTask(1, intp(1), "will be gone", ""))
	require.NoError(t, s.Save(d))

	src := writeFile(t, "old.json", legacyWorkspace)
	restored, err := s.Restore(src)
	require.NoError(t, err)
	require.Len(t, restored.Tasks, 2)
	assert.Equal(t, "Write report", restored.Tasks[0].Title)

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Tasks, 2)
	assert.Equal(t, legacyWorkspace, readFile(t, src))
}

func TestRestoreRejectsUnknownShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := NewStorage(path, nil)
	require.NoError(t, s.Save(NewData()))
	before := readFile(t, path)

	src := writeFile(t, "junk.json", `{"hello": "world"}`)
	_, err := s.Restore(src)

	var corrupt *apperr.CorruptDataError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, src, corrupt.Path)
	assert.Equal(t, before, readFile(t, path))
}
