package models

import "github.com/google/uuid"

// NewFolder creates an expanded, empty folder.
func NewFolder(name, description string) Folder {
	t := now()
	return Folder{
		ID:           uuid.New(),
		Name:         name,
		Description:  description,
		Expanded:     true,
		MilestoneIDs: []uuid.UUID{},
		CreatedAt:    t,
		UpdatedAt:    t,
	}
}

func (f *Folder) touch() {
	f.UpdatedAt = later(now(), f.CreatedAt)
}

// Contains reports whether id is listed as a member.
func (f *Folder) Contains(id uuid.UUID) bool {
	for _, m := range f.MilestoneIDs {
		if m == id {
			return true
		}
	}
	return false
}

// addMember lists id once. Callers keep Milestone.FolderID in step.
func (f *Folder) addMember(id uuid.UUID) bool {
	if f.Contains(id) {
		return false
	}
	f.MilestoneIDs = append(f.MilestoneIDs, id)
	f.touch()
	return true
}

func (f *Folder) removeMember(id uuid.UUID) bool {
	for i, m := range f.MilestoneIDs {
		if m == id {
			f.MilestoneIDs = append(f.MilestoneIDs[:i], f.MilestoneIDs[i+1:]...)
			f.touch()
			return true
		}
	}
	return false
}

// Rename replaces name and description.
func (f *Folder) Rename(name, description string) {
	f.Name = name
	f.Description = description
	f.touch()
}

// ToggleExpanded flips the display flag.
func (f *Folder) ToggleExpanded() {
	f.Expanded = !f.Expanded
	f.touch()
}
