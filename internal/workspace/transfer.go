package workspace

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/schema"
)

// Export is the envelope written by ExportData.
type Export struct {
	Version    string    `json:"version"`
	ExportDate time.Time `json:"export_date"`
	Data       *Data     `json:"data"`
}

// Format types reported by validation.
const (
	FormatExport  = "export"
	FormatCurrent = "current"
	FormatLegacy  = "legacy"
	FormatInvalid = "invalid"
)

// ImportResult summarizes an import.
type ImportResult struct {
	Success          bool       `json:"success"`
	ImportedTasks    int        `json:"imported_tasks"`
	ImportedProjects int        `json:"imported_projects"`
	Message          string     `json:"message"`
	ExportVersion    string     `json:"export_version"`
	ExportDate       *time.Time `json:"export_date"`
	FormatType       string     `json:"format_type"`
}

// ImportValidation is the outcome of a dry-run import.
type ImportValidation struct {
	Valid        bool       `json:"valid"`
	Version      string     `json:"version"`
	ExportDate   *time.Time `json:"export_date"`
	TaskCount    int        `json:"task_count"`
	ProjectCount int        `json:"project_count"`
	FormatType   string     `json:"format_type"`
	Warnings     []string   `json:"warnings"`
	Errors       []string   `json:"errors"`
}

func newExport(d *Data) *Export {
	return &Export{Version: ExportFormatVersion, ExportDate: now(), Data: d}
}

func formatOf(shape schema.Shape) string {
	switch shape {
	case schema.Export:
		return FormatExport
	case schema.WorkspaceCurrent:
		return FormatCurrent
	case schema.WorkspaceLegacy:
		return FormatLegacy
	}
	return FormatInvalid
}

// decodePayload accepts an export envelope, a bare current file or a legacy
// file. Anything else is a *apperr.ValidationError.
func decodePayload(content []byte) (*decoded, error) {
	d, err := decode(content, schema.ImportShapes...)
	if err == nil {
		return d, nil
	}
	var corrupt *apperr.CorruptDataError
	if !errors.As(err, &corrupt) {
		return nil, err
	}
	ve := &apperr.ValidationError{
		Message:  "payload is not a recognized workspace document",
		Problems: map[string]string{},
	}
	var mismatch *schema.MismatchError
	if errors.As(corrupt.Err, &mismatch) {
		for shape, problems := range mismatch.Problems {
			for _, p := range problems {
				ve.Problems[string(shape)+" "+p.Path] = p.Message
			}
		}
	} else if corrupt.Err != nil {
		ve.Problems["json"] = corrupt.Err.Error()
	}
	return nil, ve
}

// ValidatePayload inspects content without changing anything.
func ValidatePayload(content []byte) ImportValidation {
	d, err := decodePayload(content)
	if err != nil {
		v := ImportValidation{
			Version:    "unknown",
			FormatType: FormatInvalid,
			Warnings:   []string{},
			Errors:     []string{"unrecognized data structure"},
		}
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			v.Errors = append(v.Errors, diagnosticsOf(ve)...)
		}
		return v
	}

	v := ImportValidation{
		Valid:        true,
		Version:      d.version,
		TaskCount:    len(d.data.Tasks),
		ProjectCount: len(d.data.Projects),
		FormatType:   formatOf(d.shape),
		Warnings:     []string{},
		Errors:       []string{},
	}
	switch d.shape {
	case schema.Export:
		v.Version = d.envelope.Version
		date := d.envelope.ExportDate
		v.ExportDate = &date
		if d.envelope.Version != ExportFormatVersion {
			v.Warnings = append(v.Warnings, fmt.Sprintf("export format %s differs from %s", d.envelope.Version, ExportFormatVersion))
		}
		if d.version != CurrentVersion {
			v.Warnings = append(v.Warnings, fmt.Sprintf("data version %s will be migrated to %s", d.version, CurrentVersion))
		}
	case schema.WorkspaceCurrent:
		if d.version != CurrentVersion {
			v.Warnings = append(v.Warnings, fmt.Sprintf("data version %s will be migrated to %s", d.version, CurrentVersion))
		}
	case schema.WorkspaceLegacy:
		if v.Version == "" {
			v.Version = FormatLegacy
		}
		v.Warnings = append(v.Warnings, "legacy data without projects; tasks will be placed in a default project")
	}
	return v
}

func diagnosticsOf(ve *apperr.ValidationError) []string {
	out := make([]string, 0, len(ve.Problems))
	for k, msg := range ve.Problems {
		out = append(out, k+": "+msg)
	}
	sort.Strings(out)
	return out
}

// applyImport returns the aggregate that results from importing content into
// current. Replace mode returns the incoming aggregate as is. Merge mode
// gives every incoming project and task a fresh id after the current
// maximum, rewrites task project references to the new ids, and appends
// them; a task whose project is not part of the import has no project.
func applyImport(current *Data, content []byte, merge bool) (*Data, ImportResult, error) {
	d, err := decodePayload(content)
	if err != nil {
		return nil, ImportResult{}, err
	}

	res := ImportResult{
		Success:    true,
		FormatType: formatOf(d.shape),
	}
	if d.envelope != nil {
		res.ExportVersion = d.envelope.Version
		date := d.envelope.ExportDate
		res.ExportDate = &date
	} else {
		res.ExportVersion = res.FormatType
	}

	incoming := d.data
	if !merge {
		res.ImportedTasks = len(incoming.Tasks)
		res.ImportedProjects = len(incoming.Projects)
		res.Message = fmt.Sprintf("Imported %d tasks and %d projects", res.ImportedTasks, res.ImportedProjects)
		return incoming, res, nil
	}

	merged := current
	nextProject := merged.NextProjectID()
	nextTask := merged.NextTaskID()
	remap := make(map[int]int, len(incoming.Projects))

	for _, p := range incoming.Projects {
		remap[p.ID] = nextProject
		p.ID = nextProject
		p.TaskCount = 0
		merged.Projects = append(merged.Projects, p)
		nextProject++
		res.ImportedProjects++
	}
	for _, t := range incoming.Tasks {
		t.ID = nextTask
		if t.ProjectID != nil {
			if id, ok := remap[*t.ProjectID]; ok {
				t.ProjectID = &id
			} else {
				t.ProjectID = nil
			}
		}
		merged.Tasks = append(merged.Tasks, t)
		nextTask++
		res.ImportedTasks++
	}
	if merged.CurrentProject() == nil && len(merged.Projects) > 0 {
		first := merged.Projects[0].ID
		merged.CurrentProjectID = &first
	}
	merged.RefreshTaskCounts()
	res.Message = fmt.Sprintf("Merged %d tasks and %d projects", res.ImportedTasks, res.ImportedProjects)
	return merged, res, nil
}
