package workspace

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tgienger/ruidmap/internal/apperr"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 5000
	maxNameLen        = 100
	maxCommentLen     = 2000
	maxThemeLen       = 50
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// TaskCreateRequest carries the fields of a new task. Nil fields fall back to
// the target project's settings.
type TaskCreateRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ProjectID     *int       `json:"project_id"`
	Priority      *Priority  `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	Tags          []string   `json:"tags"`
	EstimatedTime *int       `json:"estimated_time"`
}

// Validate checks field rules only; project existence is checked by the
// service.
func (r *TaskCreateRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	err := validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&r.Description, validation.RuneLength(0, maxDescriptionLen)),
		validation.Field(&r.Priority, validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
		validation.Field(&r.EstimatedTime, validation.Min(0)),
	)
	return apperr.FromRules("invalid task", err)
}

// build turns the request into a task with id inside project p, which may
// be nil. Template prefix, description and estimate apply only when the
// request leaves them empty.
func (r *TaskCreateRequest) build(id int, p *Project) Task {
	var projectID *int
	if p != nil {
		projectID = &p.ID
	}
	title := strings.TrimSpace(r.Title)
	description := r.Description
	estimate := r.EstimatedTime
	priority := PriorityMedium
	tags := []string{}

	if p != nil {
		s := p.Settings
		priority = s.DefaultPriority
		tags = append(tags, s.DefaultTags...)
		if tpl := s.TaskTemplate; tpl != nil {
			if tpl.TitlePrefix != nil && !strings.HasPrefix(title, *tpl.TitlePrefix) {
				title = *tpl.TitlePrefix + title
			}
			if description == "" && tpl.DefaultDescription != nil {
				description = *tpl.DefaultDescription
			}
			if estimate == nil {
				estimate = tpl.DefaultEstimatedTime
			}
			tags = append(tags, tpl.DefaultTags...)
		}
	}
	if r.Priority != nil {
		priority = *r.Priority
	}

	t := NewTask(id, projectID, title, description)
	t.Priority = priority
	t.DueDate = r.DueDate
	t.EstimatedTime = copyInt(estimate)
	t.SetTags(append(tags, r.Tags...))
	t.UpdatedAt = t.CreatedAt
	return t
}

// TaskUpdateRequest replaces the non-nil fields of a task.
type TaskUpdateRequest struct {
	ID            int        `json:"id"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Status        *Status    `json:"status"`
	Priority      *Priority  `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	ClearDueDate  bool       `json:"clear_due_date"`
	Tags          []string   `json:"tags"`
	EstimatedTime *int       `json:"estimated_time"`
}

func (r *TaskUpdateRequest) Validate() error {
	r.Title = trimmed(r.Title)
	err := validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required, validation.Min(1)),
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&r.Description, validation.RuneLength(0, maxDescriptionLen)),
		validation.Field(&r.Status, validation.In(StatusTodo, StatusInProgress, StatusDone)),
		validation.Field(&r.Priority, validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
		validation.Field(&r.EstimatedTime, validation.Min(0)),
	)
	return apperr.FromRules("invalid task update", err)
}

// apply writes the request onto t.
func (r *TaskUpdateRequest) apply(t *Task) error {
	if r.Title != nil || r.Description != nil {
		title, description := t.Title, t.Description
		if r.Title != nil {
			title = strings.TrimSpace(*r.Title)
		}
		if r.Description != nil {
			description = *r.Description
		}
		t.UpdateContent(title, description)
	}
	if r.Status != nil && *r.Status != t.Status {
		t.UpdateStatus(*r.Status)
	}
	if r.Priority != nil && *r.Priority != t.Priority {
		t.UpdatePriority(*r.Priority)
	}
	switch {
	case r.ClearDueDate:
		t.SetDueDate(nil)
	case r.DueDate != nil:
		due := *r.DueDate
		t.SetDueDate(&due)
	}
	if r.Tags != nil {
		t.SetTags(r.Tags)
	}
	if r.EstimatedTime != nil {
		return t.SetEstimatedTime(r.EstimatedTime)
	}
	return nil
}

// ProjectCreateRequest carries the fields of a new project.
type ProjectCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

func (r *ProjectCreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, maxNameLen)),
		validation.Field(&r.Description, validation.RuneLength(0, maxDescriptionLen)),
		validation.Field(&r.Color, validation.Match(hexColor)),
		validation.Field(&r.Icon, validation.RuneLength(0, 16)),
	)
	return apperr.FromRules("invalid project", err)
}

// ProjectUpdateRequest replaces the non-nil fields of a project. An empty
// Description, Color or Icon clears it.
type ProjectUpdateRequest struct {
	ID          int              `json:"id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Color       *string          `json:"color"`
	Icon        *string          `json:"icon"`
	Settings    *ProjectSettings `json:"settings"`
}

func (r *ProjectUpdateRequest) Validate() error {
	r.Name = trimmed(r.Name)
	err := validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required, validation.Min(1)),
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.RuneLength(1, maxNameLen)),
		validation.Field(&r.Description, validation.RuneLength(0, maxDescriptionLen)),
		validation.Field(&r.Color, validation.Match(hexColor)),
		validation.Field(&r.Icon, validation.RuneLength(0, 16)),
		validation.Field(&r.Settings, validation.By(validateSettings)),
	)
	return apperr.FromRules("invalid project update", err)
}

func (r *ProjectUpdateRequest) info() ProjectInfo {
	info := ProjectInfo{
		Description: r.Description,
		Color:       r.Color,
		Icon:        r.Icon,
		Settings:    r.Settings,
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		info.Name = &name
	}
	return info
}

func validateSettings(value interface{}) error {
	s, _ := value.(*ProjectSettings)
	if s == nil {
		return nil
	}
	rules := []*validation.FieldRules{
		validation.Field(&s.DefaultPriority, validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
	}
	if tpl := s.TaskTemplate; tpl != nil {
		if err := validation.ValidateStruct(tpl,
			validation.Field(&tpl.TitlePrefix, validation.RuneLength(0, maxNameLen)),
			validation.Field(&tpl.DefaultEstimatedTime, validation.Min(0)),
		); err != nil {
			return err
		}
	}
	return validation.ValidateStruct(s, rules...)
}

// trimmed returns a trimmed copy of *s, leaving the caller's string alone.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// validateText checks a free-text field such as a comment or subtask title.
func validateText(field, value string, maxLen int) error {
	err := validation.Errors{
		field: validation.Validate(strings.TrimSpace(value), validation.Required, validation.RuneLength(1, maxLen)),
	}.Filter()
	return apperr.FromRules("invalid "+field, err)
}
