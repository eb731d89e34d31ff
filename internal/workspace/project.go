package workspace

// NewProject creates an active project with default settings.
func NewProject(id int, name string) Project {
	t := now()
	return Project{
		ID:        id,
		Name:      name,
		CreatedAt: t,
		UpdatedAt: t,
		IsActive:  true,
		Settings:  DefaultSettings(),
	}
}

func (p *Project) touch() {
	ts := now()
	if ts.Before(p.CreatedAt) {
		ts = p.CreatedAt
	}
	p.UpdatedAt = ts
}

// ProjectInfo carries optional replacements for a project's descriptive
// fields. Nil leaves a field unchanged.
type ProjectInfo struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
	Settings    *ProjectSettings
}

// UpdateInfo applies the non-nil fields of info.
func (p *Project) UpdateInfo(info ProjectInfo) {
	if info.Name != nil {
		p.Name = *info.Name
	}
	if info.Description != nil {
		p.Description = optionalString(*info.Description)
	}
	if info.Color != nil {
		p.Color = optionalString(*info.Color)
	}
	if info.Icon != nil {
		p.Icon = optionalString(*info.Icon)
	}
	if info.Settings != nil {
		p.Settings = *info.Settings
		normalizeSettings(&p.Settings)
	}
	p.touch()
}

// ToggleActive flips the active flag.
func (p *Project) ToggleActive() {
	p.IsActive = !p.IsActive
	p.touch()
}

// optionalString maps "" to nil.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func normalizeSettings(s *ProjectSettings) bool {
	changed := false
	if !s.DefaultPriority.Valid() {
		s.DefaultPriority = PriorityMedium
		changed = true
	}
	if s.DefaultTags == nil {
		s.DefaultTags = []string{}
		changed = true
	}
	if s.TaskTemplate != nil && s.TaskTemplate.DefaultTags == nil {
		s.TaskTemplate.DefaultTags = []string{}
		changed = true
	}
	return changed
}
