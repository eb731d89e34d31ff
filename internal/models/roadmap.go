package models

import (
	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/apperr"
)

// Default roadmap metadata written on first run.
const (
	DefaultTitle       = "My Learning Roadmap"
	DefaultDescription = "A journey of continuous learning and growth"
)

// NewRoadmap creates an empty roadmap at the current version.
func NewRoadmap(title, description string) *Roadmap {
	t := now()
	return &Roadmap{
		Title:       title,
		Description: description,
		Version:     CurrentVersion,
		Theme:       DefaultTheme,
		Milestones:  []Milestone{},
		Folders:     []Folder{},
		CreatedAt:   t,
		UpdatedAt:   t,
	}
}

// DefaultRoadmap is the roadmap created when no file exists yet.
func DefaultRoadmap() *Roadmap {
	return NewRoadmap(DefaultTitle, DefaultDescription)
}

func (r *Roadmap) touch() {
	r.UpdatedAt = later(now(), r.CreatedAt)
}

// AddMilestone appends m and returns the stored copy. A FolderID that names
// an existing folder is honoured and mirrored into its membership list;
// any other FolderID is cleared.
func (r *Roadmap) AddMilestone(m Milestone) *Milestone {
	folderID := m.FolderID
	m.FolderID = nil
	r.Milestones = append(r.Milestones, m)
	stored := &r.Milestones[len(r.Milestones)-1]
	if folderID != nil {
		if f := r.FindFolder(*folderID); f != nil {
			id := f.ID
			stored.FolderID = &id
			f.addMember(stored.ID)
		}
	}
	r.touch()
	return stored
}

// AddFolder appends f with an empty membership list and returns the stored copy.
func (r *Roadmap) AddFolder(f Folder) *Folder {
	f.MilestoneIDs = []uuid.UUID{}
	r.Folders = append(r.Folders, f)
	r.touch()
	return &r.Folders[len(r.Folders)-1]
}

// FindMilestone returns the milestone with id, or nil.
func (r *Roadmap) FindMilestone(id uuid.UUID) *Milestone {
	for i := range r.Milestones {
		if r.Milestones[i].ID == id {
			return &r.Milestones[i]
		}
	}
	return nil
}

// FindFolder returns the folder with id, or nil.
func (r *Roadmap) FindFolder(id uuid.UUID) *Folder {
	for i := range r.Folders {
		if r.Folders[i].ID == id {
			return &r.Folders[i]
		}
	}
	return nil
}

// RemoveMilestone deletes the milestone and scrubs it from every folder.
func (r *Roadmap) RemoveMilestone(id uuid.UUID) error {
	idx := -1
	for i := range r.Milestones {
		if r.Milestones[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.NotFound("milestone", id)
	}

	for i := range r.Folders {
		r.Folders[i].removeMember(id)
	}
	r.Milestones = append(r.Milestones[:idx], r.Milestones[idx+1:]...)
	r.touch()
	return nil
}

// RemoveFolder detaches the folder's milestones and deletes it. The only
// folder cannot be removed while milestones exist.
func (r *Roadmap) RemoveFolder(id uuid.UUID) error {
	idx := -1
	for i := range r.Folders {
		if r.Folders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.NotFound("folder", id)
	}
	if len(r.Folders) == 1 && len(r.Milestones) > 0 {
		return &apperr.LastContainerError{Kind: "folder"}
	}

	for i := range r.Milestones {
		m := &r.Milestones[i]
		if m.FolderID != nil && *m.FolderID == id {
			m.FolderID = nil
			m.touch()
		}
	}
	r.Folders = append(r.Folders[:idx], r.Folders[idx+1:]...)
	r.touch()
	return nil
}

// Reassign moves a milestone into folderID, or out of any folder when
// folderID is nil. Both sides of the relation are updated together and
// repeating the call is a no-op.
func (r *Roadmap) Reassign(milestoneID uuid.UUID, folderID *uuid.UUID) error {
	m := r.FindMilestone(milestoneID)
	if m == nil {
		return apperr.NotFound("milestone", milestoneID)
	}
	var target *Folder
	if folderID != nil {
		if target = r.FindFolder(*folderID); target == nil {
			return apperr.NotFound("folder", *folderID)
		}
	}

	same := (m.FolderID == nil && target == nil) ||
		(m.FolderID != nil && target != nil && *m.FolderID == target.ID)
	if same && (target == nil || target.Contains(m.ID)) {
		return nil
	}

	for i := range r.Folders {
		if target == nil || r.Folders[i].ID != target.ID {
			r.Folders[i].removeMember(m.ID)
		}
	}
	if target == nil {
		m.FolderID = nil
	} else {
		id := target.ID
		m.FolderID = &id
		target.addMember(m.ID)
	}
	m.touch()
	r.touch()
	return nil
}

// MilestonesInFolder returns the milestones whose FolderID equals folderID,
// in storage order. A nil folderID selects unorganized milestones.
func (r *Roadmap) MilestonesInFolder(folderID *uuid.UUID) []Milestone {
	out := []Milestone{}
	for _, m := range r.Milestones {
		switch {
		case folderID == nil && m.FolderID == nil:
			out = append(out, m)
		case folderID != nil && m.FolderID != nil && *m.FolderID == *folderID:
			out = append(out, m)
		}
	}
	return out
}

// UnorganizedMilestones returns milestones that belong to no folder.
func (r *Roadmap) UnorganizedMilestones() []Milestone {
	return r.MilestonesInFolder(nil)
}

// CountByStatus counts milestones in status s.
func (r *Roadmap) CountByStatus(s Status) int {
	n := 0
	for _, m := range r.Milestones {
		if m.Status == s {
			n++
		}
	}
	return n
}

// StatusCounts counts milestones per status; every status has an entry.
func (r *Roadmap) StatusCounts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, m := range r.Milestones {
		counts[m.Status]++
	}
	return counts
}

// OverallProgress is the mean milestone progress, 0 for an empty roadmap.
func (r *Roadmap) OverallProgress() float64 {
	if len(r.Milestones) == 0 {
		return 0
	}
	total := 0.0
	for i := range r.Milestones {
		total += r.Milestones[i].ProgressPercentage()
	}
	return total / float64(len(r.Milestones))
}

// SetTheme records the theme preference.
func (r *Roadmap) SetTheme(name string) {
	r.Theme = name
	r.touch()
}

// Reconcile repairs cross references without touching timestamps:
//   - nil slices become empty
//   - a FolderID naming no folder is cleared
//   - a milestone listed by a folder but without FolderID joins that folder
//   - folder membership lists are rebuilt from FolderID, keeping listed order
//   - CompletedAt is set iff the status is Completed
//   - duplicate tags are dropped
//
// It reports whether anything changed.
func (r *Roadmap) Reconcile() bool {
	changed := false
	if r.Milestones == nil {
		r.Milestones = []Milestone{}
		changed = true
	}
	if r.Folders == nil {
		r.Folders = []Folder{}
		changed = true
	}
	if r.Theme == "" {
		r.Theme = DefaultTheme
		changed = true
	}

	folders := make(map[uuid.UUID]bool, len(r.Folders))
	for _, f := range r.Folders {
		folders[f.ID] = true
	}
	claimed := make(map[uuid.UUID]uuid.UUID)
	for _, f := range r.Folders {
		for _, id := range f.MilestoneIDs {
			if _, ok := claimed[id]; !ok {
				claimed[id] = f.ID
			}
		}
	}

	for i := range r.Milestones {
		m := &r.Milestones[i]
		if reconcileMilestone(m) {
			changed = true
		}
		if m.FolderID != nil && !folders[*m.FolderID] {
			m.FolderID = nil
			changed = true
		}
		if m.FolderID == nil {
			if fid, ok := claimed[m.ID]; ok {
				m.FolderID = &fid
				changed = true
			}
		}
	}

	members := make(map[uuid.UUID][]uuid.UUID, len(r.Folders))
	for _, m := range r.Milestones {
		if m.FolderID != nil {
			members[*m.FolderID] = append(members[*m.FolderID], m.ID)
		}
	}
	for i := range r.Folders {
		f := &r.Folders[i]
		want := orderedMembers(f.MilestoneIDs, members[f.ID])
		if !sameIDs(f.MilestoneIDs, want) || f.MilestoneIDs == nil {
			f.MilestoneIDs = want
			changed = true
		}
	}
	return changed
}

func reconcileMilestone(m *Milestone) bool {
	changed := false
	if m.Resources == nil {
		m.Resources = []string{}
		changed = true
	}
	if m.Tags == nil {
		m.Tags = []string{}
		changed = true
	}
	if m.Subtasks == nil {
		m.Subtasks = []Subtask{}
		changed = true
	}
	if m.Comments == nil {
		m.Comments = []Comment{}
		changed = true
	}
	if m.Attachments == nil {
		m.Attachments = []Attachment{}
		changed = true
	}
	if !m.Status.Valid() {
		m.Status = StatusNotStarted
		changed = true
	}
	if !m.Priority.Valid() {
		m.Priority = PriorityMedium
		changed = true
	}
	if m.IsCompleted() && m.CompletedAt == nil {
		t := m.UpdatedAt
		m.CompletedAt = &t
		changed = true
	}
	if !m.IsCompleted() && m.CompletedAt != nil {
		m.CompletedAt = nil
		changed = true
	}

	seen := make(map[string]bool, len(m.Tags))
	tags := m.Tags[:0]
	for _, t := range m.Tags {
		if seen[t] {
			changed = true
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	m.Tags = tags
	return changed
}

// orderedMembers keeps the ids of listed that are real members, in listed
// order, then appends the remaining members in milestone order.
func orderedMembers(listed, actual []uuid.UUID) []uuid.UUID {
	isMember := make(map[uuid.UUID]bool, len(actual))
	for _, id := range actual {
		isMember[id] = true
	}
	out := make([]uuid.UUID, 0, len(actual))
	used := make(map[uuid.UUID]bool, len(actual))
	for _, id := range listed {
		if isMember[id] && !used[id] {
			out = append(out, id)
			used[id] = true
		}
	}
	for _, id := range actual {
		if !used[id] {
			out = append(out, id)
			used[id] = true
		}
	}
	return out
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
