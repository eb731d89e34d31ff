package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/jsonfile"
)

func exportOf(t *testing.T, d *Data) []byte {
	t.Helper()
	b, err := jsonfile.Marshal(newExport(d))
	require.NoError(t, err)
	return b
}

// incoming builds a workspace with one project (id 1) and three tasks: one in
// that project, one without a project and one pointing at a project that is
// not part of the export.
func incoming() *Data {
	d := emptyData()
	d.AddProject(NewProject(1, "Other"))
	d.AddTask(NewTask(1, intp(1), "in project", ""))
	d.AddTask(NewTask(2, nil, "loose", ""))
	d.Tasks = append(d.Tasks, NewTask(3, intp(7), "dangling", ""))
	return d
}

func TestValidatePayloadExport(t *testing.T) {
	v := ValidatePayload(exportOf(t, incoming()))

	assert.True(t, v.Valid)
	assert.Equal(t, FormatExport, v.FormatType)
	assert.Equal(t, ExportFormatVersion, v.Version)
	assert.NotNil(t, v.ExportDate)
	assert.Equal(t, 3, v.TaskCount)
	assert.Equal(t, 1, v.ProjectCount)
	assert.Empty(t, v.Warnings)
	assert.Empty(t, v.Errors)
}

func TestValidatePayloadCurrentFile(t *testing.T) {
	b, err := jsonfile.Marshal(incoming())
	require.NoError(t, err)

	v := ValidatePayload(b)

	assert.True(t, v.Valid)
	assert.Equal(t, FormatCurrent, v.FormatType)
	assert.Equal(t, CurrentVersion, v.Version)
	assert.Nil(t, v.ExportDate)
}

func TestValidatePayloadLegacy(t *testing.T) {
	v := ValidatePayload([]byte(legacyWorkspace))

	assert.True(t, v.Valid)
	assert.Equal(t, FormatLegacy, v.FormatType)
	assert.Equal(t, FormatLegacy, v.Version)
	assert.Equal(t, 2, v.TaskCount)
	assert.Equal(t, 1, v.ProjectCount)
	assert.Len(t, v.Warnings, 1)
}

func TestValidatePayloadStaleVersionWarns(t *testing.T) {
	v := ValidatePayload([]byte(staleWorkspace))

	assert.True(t, v.Valid)
	assert.Equal(t, "0.9.0", v.Version)
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "0.9.0")
}

func TestValidatePayloadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"unknown shape": `{"items": []}`,
		"not json":      `nope`,
	} {
		t.Run(name, func(t *testing.T) {
			v := ValidatePayload([]byte(content))

			assert.False(t, v.Valid)
			assert.Equal(t, FormatInvalid, v.FormatType)
			assert.Equal(t, "unknown", v.Version)
			assert.Greater(t, len(v.Errors), 1)
		})
	}
}

func TestApplyImportReplace(t *testing.T) {
	current := NewData()
	current.AddTask(NewTask(1, intp(1), "mine", ""))

	next, res, err := applyImport(current, exportOf(t, incoming()), false)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, FormatExport, res.FormatType)
	assert.Equal(t, ExportFormatVersion, res.ExportVersion)
	assert.Equal(t, 3, res.ImportedTasks)
	assert.Equal(t, 1, res.ImportedProjects)
	require.Len(t, next.Projects, 1)
	assert.Equal(t, "Other", next.Projects[0].Name)
	assert.Len(t, next.Tasks, 3)
}

func TestApplyImportMergeRemapsIDs(t *testing.T) {
	current := NewData()
	current.AddTask(NewTask(1, intp(1), "mine", ""))
	current.AddTask(NewTask(2, intp(1), "mine too", ""))

	merged, res, err := applyImport(current, exportOf(t, incoming()), true)
	require.NoError(t, err)

	assert.Equal(t, 3, res.ImportedTasks)
	assert.Equal(t, 1, res.ImportedProjects)

	require.Len(t, merged.Projects, 2)
	assert.Equal(t, 2, merged.Projects[1].ID)
	assert.Equal(t, "Other", merged.Projects[1].Name)
	assert.Equal(t, 1, *merged.CurrentProjectID)

	require.Len(t, merged.Tasks, 5)
	ids := []int{}
	for _, task := range merged.Tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)

	assert.Equal(t, 2, *merged.FindTask(3).ProjectID)
	assert.Nil(t, merged.FindTask(4).ProjectID)
	// The dangling task was re-homed to the export's current project.
	assert.Equal(t, 2, *merged.FindTask(5).ProjectID)
	assert.Equal(t, 2, merged.FindProject(1).TaskCount)
	assert.Equal(t, 2, merged.FindProject(2).TaskCount)
}

func TestApplyImportReplaceRepairsReferences(t *testing.T) {
	next, res, err := applyImport(NewData(), []byte(danglingWorkspace), false)
	require.NoError(t, err)

	assert.Equal(t, FormatCurrent, res.FormatType)
	assert.Equal(t, 1, *next.CurrentProjectID)
	assert.Equal(t, 1, *next.FindTask(1).ProjectID)
	assert.Nil(t, next.FindTask(2).ProjectID)
	assert.Equal(t, 2, next.FindProject(1).TaskCount)
}

func TestApplyImportMergeIgnoresDanglingCurrent(t *testing.T) {
	current := NewData()
	current.AddTask(NewTask(1, intp(1), "mine", ""))

	merged, res, err := applyImport(current, []byte(danglingWorkspace), true)
	require.NoError(t, err)

	assert.Equal(t, 4, res.ImportedTasks)
	assert.Equal(t, 1, *merged.CurrentProjectID)
	require.Len(t, merged.Projects, 2)
	assert.Equal(t, 2, *merged.FindTask(2).ProjectID)
	assert.Nil(t, merged.FindTask(3).ProjectID)
	assert.Nil(t, merged.FindTask(4).ProjectID)
	assert.Equal(t, 2, *merged.FindTask(5).ProjectID)
	assert.Equal(t, 1, merged.FindProject(1).TaskCount)
	assert.Equal(t, 2, merged.FindProject(2).TaskCount)
	for _, task := range merged.Tasks {
		if task.ProjectID != nil {
			assert.NotNil(t, merged.FindProject(*task.ProjectID))
		}
	}
}

func TestApplyImportMergeLegacy(t *testing.T) {
	current := NewData()
	current.AddTask(NewTask(1, intp(1), "mine", ""))

	merged, res, err := applyImport(current, []byte(legacyWorkspace), true)
	require.NoError(t, err)

	assert.Equal(t, FormatLegacy, res.FormatType)
	require.Len(t, merged.Projects, 2)
	assert.Equal(t, DefaultProjectName, merged.Projects[1].Name)
	assert.Equal(t, 2, merged.FindProject(2).TaskCount)
	assert.Equal(t, 3, merged.NextTaskID()-1)
}

func TestApplyImportRejectsUnknownShape(t *testing.T) {
	_, _, err := applyImport(NewData(), []byte(`{"items": []}`), false)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Problems)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
