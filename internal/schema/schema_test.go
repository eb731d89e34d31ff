package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stamp = "2024-03-01T10:00:00Z"
	idA   = "6f1c2a4e-8b7d-4c3e-9a1f-2d5e6b7c8d9e"
	idB   = "0a9b8c7d-6e5f-4a3b-8c1d-0e9f8a7b6c5d"
)

var roadmapV2Doc = `{
  "title": "Go",
  "description": "learn it",
  "version": "2.0.0",
  "theme": "tokyo-night",
  "created_at": "` + stamp + `",
  "updated_at": "` + stamp + `",
  "milestones": [{
    "id": "` + idA + `",
    "title": "Read the tour",
    "description": "",
    "priority": "High",
    "status": "InProgress",
    "estimated_minutes": 90,
    "time_spent": 15,
    "resources": [],
    "tags": ["basics"],
    "subtasks": [],
    "comments": [],
    "attachments": [],
    "folder_id": "` + idB + `",
    "created_at": "` + stamp + `",
    "updated_at": "` + stamp + `",
    "due_date": null,
    "completed_at": null
  }],
  "folders": [{
    "id": "` + idB + `",
    "name": "Basics",
    "description": "",
    "expanded": true,
    "milestone_ids": ["` + idA + `"],
    "created_at": "` + stamp + `",
    "updated_at": "` + stamp + `"
  }]
}`

var roadmapV1Doc = `{
  "title": "Go",
  "description": "",
  "created_at": "` + stamp + `",
  "updated_at": "` + stamp + `",
  "milestones": [{"id": "` + idA + `", "title": "a", "status": "Completed", "priority": "Low", "estimated_hours": 2, "folder_id": null}],
  "folders": [{"id": "` + idB + `", "name": "f", "milestone_ids": []}]
}`

var roadmapV0Doc = `{
  "title": "X",
  "description": "",
  "created_at": "` + stamp + `",
  "updated_at": "` + stamp + `",
  "milestones": [{"id": "` + idA + `", "title": "a", "status": "NotStarted", "priority": "Medium"}]
}`

var workspaceCurrentDoc = `{
  "tasks": [{"id": 1, "project_id": 1, "title": "t", "description": "", "status": "todo", "priority": "low",
             "created_at": "` + stamp + `", "updated_at": "` + stamp + `", "tags": [], "subtasks": [], "comments": [],
             "time_spent": 0, "estimated_time": null, "attachments": []}],
  "projects": [{"id": 1, "name": "Default Project", "created_at": "` + stamp + `", "updated_at": "` + stamp + `",
                "is_active": true, "task_count": 1}],
  "current_project_id": 1,
  "theme": "light",
  "version": "1.0.0"
}`

var workspaceLegacyDoc = `{
  "tasks": [{"id": 3, "title": "old", "status": "done", "priority": "high", "created_at": "` + stamp + `", "updated_at": "` + stamp + `"}],
  "theme": "dark"
}`

func TestDetectRoadmapShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Shape
	}{
		{"current", roadmapV2Doc, RoadmapV2},
		{"folders without version", roadmapV1Doc, RoadmapV1},
		{"flat milestones", roadmapV0Doc, RoadmapV0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect([]byte(tt.doc), RoadmapShapes...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectWorkspaceShapes(t *testing.T) {
	got, err := Detect([]byte(workspaceCurrentDoc), WorkspaceShapes...)
	require.NoError(t, err)
	assert.Equal(t, WorkspaceCurrent, got)

	got, err = Detect([]byte(workspaceLegacyDoc), WorkspaceShapes...)
	require.NoError(t, err)
	assert.Equal(t, WorkspaceLegacy, got)
}

func TestDetectExportEnvelope(t *testing.T) {
	doc := `{"version": "0.2.1", "export_date": "` + stamp + `", "data": ` + workspaceCurrentDoc + `}`

	got, err := Detect([]byte(doc), ImportShapes...)
	require.NoError(t, err)
	assert.Equal(t, Export, got)
}

func TestShapesAreMutuallyExclusive(t *testing.T) {
	docs := map[Shape]string{
		RoadmapV2:        roadmapV2Doc,
		RoadmapV1:        roadmapV1Doc,
		RoadmapV0:        roadmapV0Doc,
		WorkspaceCurrent: workspaceCurrentDoc,
		WorkspaceLegacy:  workspaceLegacyDoc,
	}
	for owner, doc := range docs {
		for shape := range docs {
			problems, err := Validate(shape, []byte(doc))
			require.NoError(t, err)
			if shape == owner {
				assert.Empty(t, problems, "%s should satisfy its own shape", owner)
			} else {
				assert.NotEmpty(t, problems, "%s document must not satisfy %s", owner, shape)
			}
		}
	}
}

func TestDetectMismatchCarriesProblems(t *testing.T) {
	_, err := Detect([]byte(`{"title": 5}`), RoadmapShapes...)
	require.Error(t, err)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Len(t, mismatch.Problems, 3)
	assert.NotEmpty(t, mismatch.Diagnostics())
	assert.Contains(t, err.Error(), "roadmap/v2")
}

func TestDetectRejectsBadEnumWithPath(t *testing.T) {
	doc := `{
  "title": "X", "description": "", "created_at": "` + stamp + `", "updated_at": "` + stamp + `",
  "milestones": [{"id": "` + idA + `", "title": "a", "status": "Paused"}]
}`
	problems, err := Validate(RoadmapV0, []byte(doc))
	require.NoError(t, err)
	require.NotEmpty(t, problems)

	var paths []string
	for _, p := range problems {
		paths = append(paths, p.Path)
	}
	assert.Contains(t, paths, "milestones[0].status")
}

func TestDetectInvalidJSON(t *testing.T) {
	_, err := Detect([]byte(`{not json`), RoadmapShapes...)
	require.Error(t, err)

	var mismatch *MismatchError
	assert.False(t, errors.As(err, &mismatch))
}

func TestJSONPointerToPath(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"/":                    "",
		"/milestones/0/status": "milestones[0].status",
		"#/folders/2":          "folders[2]",
		"/a~1b/c~0d":           "a/b.c~d",
		"/tasks/10/subtasks/1": "tasks[10].subtasks[1]",
	}
	for in, want := range tests {
		assert.Equal(t, want, jsonPointerToPath(in), in)
	}
}
