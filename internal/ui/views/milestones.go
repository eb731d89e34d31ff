package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/models"
	"github.com/tgienger/ruidmap/internal/store"
	"github.com/tgienger/ruidmap/internal/ui/keys"
	"github.com/tgienger/ruidmap/internal/ui/styles"
)

// dueLayout is the date format typed into the edit form.
const dueLayout = "2006-01-02"

// timeStep is the number of minutes one press of + logs.
const timeStep = 15

// Overlay is what sits on top of the milestone list.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlayEdit
	OverlayTags
	OverlayMove
	OverlayComment
	OverlaySubtask
	OverlayConfirmDelete
	OverlayHelp
)

// edit form fields
const (
	fieldTitle = iota
	fieldDesc
	fieldPriority
	fieldDue
	fieldSave
	fieldCount
)

type moveTarget struct {
	id   *uuid.UUID
	name string
}

// MilestoneListView lists the milestones of one folder, or the unorganized
// ones.
type MilestoneListView struct {
	store      *store.Store
	folderID   *uuid.UUID
	folderName string
	milestones []models.Milestone
	cursor     int
	scrollY    int
	styles     *styles.Styles
	keys       keys.KeyMap
	width      int
	height     int

	overlay  Overlay
	returnTo Overlay

	searching   bool
	searchInput textinput.Model

	// Edit form
	editingID    *uuid.UUID
	editTitle    textinput.Model
	editDesc     textarea.Model
	editPriority models.Priority
	editDue      textinput.Model
	editFocusIdx int

	tagInput  textinput.Model
	tagCursor int
	allTags   []string

	moveTargets []moveTarget
	moveCursor  int

	commentInput textarea.Model
	subtaskInput textinput.Model
	subtaskIdx   int

	status    string
	statusErr bool
}

// NewMilestoneListView opens the milestones of folderID; nil selects the
// unorganized milestones.
func NewMilestoneListView(st *store.Store, folderID *uuid.UUID, folderName string) *MilestoneListView {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search..."
	searchInput.CharLimit = 100

	editTitle := textinput.New()
	editTitle.Placeholder = "Milestone title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.SetHeight(4)
	editDesc.ShowLineNumbers = false

	editDue := textinput.New()
	editDue.Placeholder = dueLayout
	editDue.CharLimit = len(dueLayout)

	tagInput := textinput.New()
	tagInput.Placeholder = "Tag name"
	tagInput.CharLimit = 50

	commentInput := textarea.New()
	commentInput.Placeholder = "Write a comment..."
	commentInput.SetHeight(3)
	commentInput.ShowLineNumbers = false

	subtaskInput := textinput.New()
	subtaskInput.Placeholder = "Subtask title"
	subtaskInput.CharLimit = 200

	v := &MilestoneListView{
		store:        st,
		folderID:     folderID,
		folderName:   folderName,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		searchInput:  searchInput,
		editTitle:    editTitle,
		editDesc:     editDesc,
		editDue:      editDue,
		tagInput:     tagInput,
		commentInput: commentInput,
		subtaskInput: subtaskInput,
	}
	v.reload()
	return v
}

// Init implements tea.Model.
func (v *MilestoneListView) Init() tea.Cmd {
	return nil
}

// Restyle rebuilds styles after a theme change.
func (v *MilestoneListView) Restyle() {
	v.styles = styles.NewStyles()
}

// Overlay reports what is currently shown over the list.
func (v *MilestoneListView) Overlay() Overlay { return v.overlay }

// Milestones returns the rows currently listed.
func (v *MilestoneListView) Milestones() []models.Milestone { return v.milestones }

// Status returns the last status line and whether it is an error.
func (v *MilestoneListView) Status() (string, bool) { return v.status, v.statusErr }

// reload re-reads the rows for the current search, keeping the cursor in range.
func (v *MilestoneListView) reload() {
	v.milestones = v.store.SearchMilestones(v.folderID, v.searchInput.Value())
	v.cursor = clamp(v.cursor, 0, max(len(v.milestones)-1, 0))
	v.ensureVisible()
}

func (v *MilestoneListView) selected() *models.Milestone {
	if len(v.milestones) == 0 {
		return nil
	}
	return &v.milestones[v.cursor]
}

func (v *MilestoneListView) setStatus(text string, err error) {
	if err != nil {
		v.status = describeErr(err)
		v.statusErr = true
		return
	}
	v.status = text
	v.statusErr = false
}

// open shows an overlay, remembering where to return to.
func (v *MilestoneListView) open(o Overlay) {
	v.returnTo = v.overlay
	v.overlay = o
}

func (v *MilestoneListView) closeOverlay() {
	v.overlay = v.returnTo
	v.returnTo = OverlayNone
	if v.overlay == OverlayDetail && v.selected() == nil {
		v.overlay = OverlayNone
	}
}

// Update implements tea.Model.
func (v *MilestoneListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.editDesc.SetWidth(clamp(contentWidth-8, 20, 70))
		v.commentInput.SetWidth(clamp(contentWidth-8, 20, 70))
		v.ensureVisible()
		return v, nil

	case tea.KeyMsg:
		switch v.overlay {
		case OverlayHelp:
			v.closeOverlay()
			return v, nil
		case OverlayConfirmDelete:
			return v.updateConfirmDelete(msg)
		case OverlayEdit:
			return v.updateEditing(msg)
		case OverlayTags:
			return v.updateTags(msg)
		case OverlayMove:
			return v.updateMove(msg)
		case OverlayComment:
			return v.updateComment(msg)
		case OverlaySubtask:
			return v.updateSubtask(msg)
		case OverlayDetail:
			return v.updateDetail(msg)
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *MilestoneListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Don't process hotkeys while typing a search
	if v.searching {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.searching = false
			v.searchInput.Blur()
			v.searchInput.Reset()
			v.reload()
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			v.searching = false
			v.searchInput.Blur()
			return v, nil
		default:
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.cursor = 0
			v.scrollY = 0
			v.reload()
			return v, cmd
		}
	}

	v.status = ""
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		if v.searchInput.Value() != "" {
			v.searchInput.Reset()
			v.reload()
			return v, nil
		}
		return v, emit(BackToFolders{})

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.milestones)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.New):
		v.startForm(nil)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Help):
		v.open(OverlayHelp)
		return v, nil

	case key.Matches(msg, v.keys.Theme):
		cmd, err := cycleTheme(v.store)
		v.setStatus("", err)
		return v, cmd

	case key.Matches(msg, v.keys.Backup):
		v.setStatus(backupRoadmap(v.store))
		return v, nil
	}

	if v.selected() == nil {
		return v, nil
	}
	if key.Matches(msg, v.keys.Enter) {
		v.subtaskIdx = 0
		v.open(OverlayDetail)
		return v, nil
	}
	return v.updateSelected(msg)
}

// updateSelected handles the keys that act on the selected milestone, from
// the list and from the detail view alike.
func (v *MilestoneListView) updateSelected(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := v.selected()
	switch {
	case key.Matches(msg, v.keys.Edit):
		v.startForm(m)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Delete):
		v.open(OverlayConfirmDelete)
		return v, nil

	case key.Matches(msg, v.keys.Status):
		next, err := v.store.AdvanceStatus(m.ID)
		text := "Status: " + next.Label()
		if next == models.StatusCompleted {
			text = "Milestone completed!"
		}
		v.setStatus(text, err)
		v.reload()
		return v, nil

	case key.Matches(msg, v.keys.Priority):
		next, err := v.store.CyclePriority(m.ID)
		v.setStatus("Priority: "+string(next), err)
		v.reload()
		return v, nil

	case key.Matches(msg, v.keys.Move):
		v.startMove()
		return v, nil

	case key.Matches(msg, v.keys.Tag):
		v.startTags()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Comment):
		v.commentInput.Reset()
		v.commentInput.Focus()
		v.open(OverlayComment)
		return v, textarea.Blink
	}
	return v, nil
}

func (v *MilestoneListView) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := v.selected()
	if m == nil {
		v.overlay = OverlayNone
		return v, nil
	}
	v.status = ""

	switch {
	case key.Matches(msg, v.keys.Back):
		v.overlay = OverlayNone
		return v, nil
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case msg.Type == tea.KeyUp:
		if v.subtaskIdx > 0 {
			v.subtaskIdx--
		}
		return v, nil
	case msg.Type == tea.KeyDown:
		if v.subtaskIdx < len(m.Subtasks)-1 {
			v.subtaskIdx++
		}
		return v, nil
	case key.Matches(msg, v.keys.Toggle):
		if v.subtaskIdx < len(m.Subtasks) {
			v.setStatus("", v.store.ToggleSubtask(m.ID, m.Subtasks[v.subtaskIdx].ID))
			v.reload()
		}
		return v, nil
	case msg.String() == "a":
		v.subtaskInput.Reset()
		v.subtaskInput.Focus()
		v.open(OverlaySubtask)
		return v, textinput.Blink
	case msg.String() == "+":
		v.setStatus(fmt.Sprintf("Logged %d minutes", timeStep), v.store.AddTime(m.ID, timeStep))
		v.reload()
		return v, nil
	}

	model, cmd := v.updateSelected(msg)
	// A status or priority change may have filtered the row out of a search.
	if v.selected() == nil || v.selected().ID != m.ID {
		v.overlay = OverlayNone
	}
	return model, cmd
}

func (v *MilestoneListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m := v.selected()
		v.overlay = OverlayNone
		v.returnTo = OverlayNone
		if m == nil {
			return v, nil
		}
		v.setStatus("Deleted "+m.Title, v.store.DeleteMilestone(m.ID))
		v.reload()
		return v, nil
	case "n", "N", "esc":
		v.closeOverlay()
		return v, nil
	}
	return v, nil
}

// startForm opens the edit form for m, or an empty one when m is nil.
func (v *MilestoneListView) startForm(m *models.Milestone) {
	v.open(OverlayEdit)
	v.editFocusIdx = fieldTitle
	v.editTitle.Reset()
	v.editDesc.Reset()
	v.editDue.Reset()
	v.editPriority = models.PriorityMedium
	v.editingID = nil

	if m != nil {
		id := m.ID
		v.editingID = &id
		v.editTitle.SetValue(m.Title)
		v.editDesc.SetValue(m.Description)
		v.editPriority = m.Priority
		if m.DueDate != nil {
			v.editDue.SetValue(m.DueDate.Format(dueLayout))
		}
	}
	v.updateEditFocus()
}

func (v *MilestoneListView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()
	v.editDue.Blur()
	switch v.editFocusIdx {
	case fieldTitle:
		v.editTitle.Focus()
	case fieldDesc:
		v.editDesc.Focus()
	case fieldDue:
		v.editDue.Focus()
	}
}

func (v *MilestoneListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.closeOverlay()
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveMilestone()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.editFocusIdx = (v.editFocusIdx + fieldCount - 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.editFocusIdx {
		case fieldTitle, fieldDue:
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		case fieldPriority:
			v.editPriority = v.editPriority.Next()
			return v, nil
		case fieldSave:
			return v, v.saveMilestone()
		}
		// enter inserts a newline in the description

	case msg.String() == " " && v.editFocusIdx == fieldPriority:
		v.editPriority = v.editPriority.Next()
		return v, nil
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case fieldTitle:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case fieldDesc:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case fieldDue:
		v.editDue, cmd = v.editDue.Update(msg)
	}
	return v, cmd
}

// parseDue reads the due date field; empty clears the date.
func parseDue(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dueLayout, value)
	if err != nil {
		return nil, fmt.Errorf("due date must look like %s", dueLayout)
	}
	return &t, nil
}

func (v *MilestoneListView) saveMilestone() tea.Cmd {
	due, err := parseDue(v.editDue.Value())
	if err != nil {
		v.setStatus("", err)
		return nil
	}
	title := v.editTitle.Value()
	desc := strings.TrimSpace(v.editDesc.Value())

	if v.editingID != nil {
		err = v.store.EditMilestone(*v.editingID, store.MilestoneEdit{
			Title:       title,
			Description: desc,
			Priority:    v.editPriority,
			DueDate:     due,
		})
		if err != nil {
			v.setStatus("", err)
			return nil
		}
		v.setStatus("Saved", nil)
	} else {
		m, err := v.store.CreateMilestone(store.MilestoneInput{
			Title:       title,
			Description: desc,
			Priority:    v.editPriority,
			FolderID:    v.folderID,
			DueDate:     due,
		})
		if err != nil {
			v.setStatus("", err)
			return nil
		}
		v.setStatus("Created "+m.Title, nil)
		v.searchInput.Reset()
		v.reload()
		v.cursor = max(len(v.milestones)-1, 0)
	}

	v.closeOverlay()
	v.reload()
	return nil
}

func (v *MilestoneListView) startTags() {
	v.allTags = v.store.AllTags()
	v.tagCursor = 0
	v.tagInput.Reset()
	v.tagInput.Focus()
	v.open(OverlayTags)
}

func (v *MilestoneListView) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := v.selected()
	switch {
	case key.Matches(msg, v.keys.Back):
		v.tagInput.Blur()
		v.closeOverlay()
		return v, nil

	case msg.Type == tea.KeyUp:
		if v.tagCursor > 0 {
			v.tagCursor--
		}
		return v, nil

	case msg.Type == tea.KeyDown:
		if v.tagCursor < len(v.allTags)-1 {
			v.tagCursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if m == nil {
			return v, nil
		}
		tag := strings.TrimSpace(v.tagInput.Value())
		if tag == "" && v.tagCursor < len(v.allTags) {
			tag = v.allTags[v.tagCursor]
		}
		if tag == "" {
			return v, nil
		}
		v.toggleTag(m, tag)
		v.tagInput.Reset()
		v.allTags = v.store.AllTags()
		v.tagCursor = clamp(v.tagCursor, 0, max(len(v.allTags)-1, 0))
		return v, nil
	}

	var cmd tea.Cmd
	v.tagInput, cmd = v.tagInput.Update(msg)
	return v, cmd
}

// toggleTag removes tag when m has it and adds it otherwise.
func (v *MilestoneListView) toggleTag(m *models.Milestone, tag string) {
	id := m.ID
	if m.HasTag(tag) {
		_, err := v.store.RemoveTag(id, tag)
		v.setStatus("Removed tag "+tag, err)
	} else {
		_, err := v.store.AddTag(id, tag)
		v.setStatus("Added tag "+tag, err)
	}
	v.reload()
}

func (v *MilestoneListView) startMove() {
	r := v.store.Roadmap()
	v.moveTargets = v.moveTargets[:0]
	if v.folderID != nil {
		v.moveTargets = append(v.moveTargets, moveTarget{name: unorganizedName})
	}
	for _, f := range r.Folders {
		if v.folderID != nil && *v.folderID == f.ID {
			continue
		}
		id := f.ID
		v.moveTargets = append(v.moveTargets, moveTarget{id: &id, name: f.Name})
	}
	v.moveCursor = 0
	v.open(OverlayMove)
}

func (v *MilestoneListView) updateMove(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.closeOverlay()
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.moveCursor > 0 {
			v.moveCursor--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.moveCursor < len(v.moveTargets)-1 {
			v.moveCursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		m := v.selected()
		if m == nil || len(v.moveTargets) == 0 {
			v.closeOverlay()
			return v, nil
		}
		target := v.moveTargets[v.moveCursor]
		v.setStatus(fmt.Sprintf("Moved %s to %s", m.Title, target.name), v.store.MoveMilestone(m.ID, target.id))
		v.overlay = OverlayNone
		v.returnTo = OverlayNone
		v.reload()
		return v, nil
	}
	return v, nil
}

func (v *MilestoneListView) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.commentInput.Blur()
		v.closeOverlay()
		return v, nil
	case key.Matches(msg, v.keys.Save):
		m := v.selected()
		text := strings.TrimSpace(v.commentInput.Value())
		if m == nil || text == "" {
			return v, nil
		}
		if _, err := v.store.AddComment(m.ID, text); err != nil {
			v.setStatus("", err)
			return v, nil
		}
		v.setStatus("Comment added", nil)
		v.commentInput.Blur()
		v.closeOverlay()
		v.reload()
		return v, nil
	}

	var cmd tea.Cmd
	v.commentInput, cmd = v.commentInput.Update(msg)
	return v, cmd
}

func (v *MilestoneListView) updateSubtask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.subtaskInput.Blur()
		v.closeOverlay()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		m := v.selected()
		if m == nil {
			v.closeOverlay()
			return v, nil
		}
		if _, err := v.store.AddSubtask(m.ID, v.subtaskInput.Value()); err != nil {
			v.setStatus("", err)
			return v, nil
		}
		v.subtaskInput.Blur()
		v.closeOverlay()
		v.reload()
		if s := v.selected(); s != nil {
			v.subtaskIdx = len(s.Subtasks) - 1
		}
		return v, nil
	}

	var cmd tea.Cmd
	v.subtaskInput, cmd = v.subtaskInput.Update(msg)
	return v, cmd
}

func (v *MilestoneListView) ensureVisible() {
	// Each milestone is 2 lines + 1 margin
	visibleItems := max((v.height-10)/3, 1)

	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

// View implements tea.Model.
func (v *MilestoneListView) View() string {
	switch v.overlay {
	case OverlayHelp:
		return v.renderHelpPopup()
	case OverlayConfirmDelete:
		return v.renderDeleteConfirm()
	case OverlayEdit:
		return v.renderEditForm()
	case OverlayTags:
		return v.renderTags()
	case OverlayMove:
		return v.renderMove()
	case OverlayComment, OverlaySubtask, OverlayDetail:
		return v.renderDetail()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		v.renderHeader(),
		v.renderList(),
		v.renderStatus(),
		v.renderHelp(),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *MilestoneListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	done := 0
	var progress float64
	for _, m := range v.milestones {
		if m.IsCompleted() {
			done++
		}
		progress += m.ProgressPercentage()
	}
	if len(v.milestones) > 0 {
		progress /= float64(len(v.milestones))
	}

	title := s.Title.Render("← " + v.folderName)
	counts := s.Muted.Render(fmt.Sprintf("  %d/%d done", done, len(v.milestones)))
	bar := s.Progress.Render(styles.ProgressBar(progress, clamp(contentWidth-30, 10, 40))) +
		s.Muted.Render(fmt.Sprintf(" %5.1f%%", progress))

	searchStyle := s.Search
	if v.searching {
		searchStyle = s.Popup
	}
	search := searchStyle.Width(clamp(contentWidth-6, 20, 60)).Render(v.searchInput.View())

	return lipgloss.NewStyle().Padding(1, 2, 0).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title+counts,
			bar,
			search,
		),
	)
}

func (v *MilestoneListView) renderList() string {
	s := v.styles
	if len(v.milestones) == 0 {
		if v.searchInput.Value() != "" {
			return s.List.Render(s.Muted.Render("Nothing matches the search."))
		}
		return s.List.Render(s.Muted.Render("No milestones. Press 'n' to create one."))
	}

	visibleItems := max((v.height-10)/3, 1)
	end := min(v.scrollY+visibleItems, len(v.milestones))

	var rows []string
	for i := v.scrollY; i < end; i++ {
		rows = append(rows, v.renderItem(v.milestones[i], i == v.cursor))
	}
	return s.List.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

var statusIcons = map[models.Status]string{
	models.StatusNotStarted: "○",
	models.StatusInProgress: "◐",
	models.StatusCompleted:  "●",
	models.StatusBlocked:    "✗",
}

func (v *MilestoneListView) renderItem(m models.Milestone, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-8, 20)

	icon := s.Status(m.Status).Render(statusIcons[m.Status])
	priority := s.Priority(m.Priority).Render(string(m.Priority))
	titleLine := fmt.Sprintf("%s %s  %s", icon, truncate(m.Title, width-16), priority)

	var meta []string
	meta = append(meta, m.Status.Label())
	if m.DueDate != nil {
		due := "due " + m.DueDate.Format(dueLayout)
		if m.IsOverdue(time.Now()) {
			due = s.Overdue.Render(due + " (overdue)")
		}
		meta = append(meta, due)
	}
	if len(m.Tags) > 0 {
		meta = append(meta, "#"+strings.Join(m.Tags, " #"))
	}
	if n := len(m.Comments); n > 0 {
		meta = append(meta, fmt.Sprintf("%d comments", n))
	}
	metaLine := s.Muted.Render(truncate(strings.Join(meta, " • "), width))

	itemStyle := s.Row
	if selected {
		itemStyle = s.RowSelected
	}
	return itemStyle.Width(width).MarginBottom(1).Render(titleLine + "\n" + metaLine)
}

func (v *MilestoneListView) renderStatus() string {
	if v.status == "" {
		return ""
	}
	if v.statusErr {
		return v.styles.ErrorText.Render(v.status)
	}
	return v.styles.StatusBar.Render(v.status)
}

func (v *MilestoneListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 70)

	fieldStyle := func(idx int) lipgloss.Style {
		if v.editFocusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.editFocusIdx == fieldSave {
		btnStyle = s.ButtonFocused
	}

	formTitle := "New Milestone"
	if v.editingID != nil {
		formTitle = "Edit Milestone"
	}

	priority := s.Priority(v.editPriority).Bold(true).Render(string(v.editPriority))

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(formTitle),
		"",
		"Title:",
		fieldStyle(fieldTitle).Width(inputWidth).Render(v.editTitle.View()),
		"Description:",
		fieldStyle(fieldDesc).Render(v.editDesc.View()),
		"Priority:",
		fieldStyle(fieldPriority).Width(14).Render(priority),
		"Due date:",
		fieldStyle(fieldDue).Width(16).Render(v.editDue.View()),
		"",
		btnStyle.Render(" Save "),
		"",
		v.renderStatus(),
		s.Muted.Render("Tab: next • Space/↵ on priority: cycle • Ctrl+S: save • Esc: cancel"),
	)

	padded := lipgloss.NewStyle().Padding(1, 2).Render(form)
	return styles.CenterView(padded, v.width, v.height)
}

func (v *MilestoneListView) renderDetail() string {
	s := v.styles
	m := v.selected()
	if m == nil {
		return ""
	}
	textWidth := clamp(styles.ContentWidth(v.width)-6, 20, 74)
	labelStyle := s.Muted.Bold(true)

	status := s.Status(m.Status).Render(statusIcons[m.Status] + " " + m.Status.Label())
	priority := s.Priority(m.Priority).Render(string(m.Priority))
	progress := s.Progress.Render(styles.ProgressBar(m.ProgressPercentage(), clamp(textWidth-10, 10, 40))) +
		fmt.Sprintf(" %3.0f%%", m.ProgressPercentage())

	due := "none"
	if m.DueDate != nil {
		due = m.DueDate.Format(dueLayout)
		if m.IsOverdue(time.Now()) {
			due = s.Overdue.Render(due + " (overdue)")
		}
	}
	estimate := "no estimate"
	if m.EstimatedMinutes != nil {
		estimate = formatMinutes(*m.EstimatedMinutes) + " estimated"
	}

	tags := s.Muted.Render("no tags")
	if len(m.Tags) > 0 {
		var rendered []string
		for _, t := range m.Tags {
			rendered = append(rendered, s.Tag.Render(t))
		}
		tags = lipgloss.JoinHorizontal(lipgloss.Left, rendered...)
	}

	desc := m.Description
	if desc == "" {
		desc = s.Muted.Render("No description")
	}

	sections := []string{
		s.Title.Render(m.Title),
		"",
		status + "   " + priority,
		progress,
		s.Muted.Render(fmt.Sprintf("due %s • %s spent • %s", due, formatMinutes(m.TimeSpent), estimate)),
		"",
		labelStyle.Render("Tags"),
		tags,
		"",
		labelStyle.Render("Description"),
		lipgloss.NewStyle().Width(textWidth).Render(desc),
		"",
		labelStyle.Render("Subtasks"),
		v.renderSubtasks(m),
		"",
		labelStyle.Render("Comments"),
		v.renderComments(m, textWidth),
	}

	switch v.overlay {
	case OverlayComment:
		sections = append(sections, "", s.InputFocused.Render(v.commentInput.View()),
			s.Help.Render(fmt.Sprintf("%s submit • %s cancel", s.HelpKey.Render("ctrl+s"), s.HelpKey.Render("esc"))))
	case OverlaySubtask:
		sections = append(sections, "", s.InputFocused.Width(textWidth).Render(v.subtaskInput.View()),
			s.Help.Render(fmt.Sprintf("%s add • %s cancel", s.HelpKey.Render("↵"), s.HelpKey.Render("esc"))))
	default:
		sections = append(sections, v.renderStatus(), s.Help.Render(fmt.Sprintf(
			"%s edit • %s status • %s priority • %s tags • %s comment • %s subtask • %s toggle • %s +%dm • %s move • %s back",
			s.HelpKey.Render("e"), s.HelpKey.Render("s"), s.HelpKey.Render("p"), s.HelpKey.Render("t"),
			s.HelpKey.Render("c"), s.HelpKey.Render("a"), s.HelpKey.Render("space"), s.HelpKey.Render("+"), timeStep,
			s.HelpKey.Render("m"), s.HelpKey.Render("esc"))))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	padded := lipgloss.NewStyle().Padding(1, 2).Render(content)
	return styles.CenterView(padded, v.width, v.height)
}

func (v *MilestoneListView) renderSubtasks(m *models.Milestone) string {
	s := v.styles
	if len(m.Subtasks) == 0 {
		return s.Muted.Render("No subtasks")
	}
	var rows []string
	for i, st := range m.Subtasks {
		check := "[ ]"
		if st.Completed {
			check = "[x]"
		}
		row := check + " " + st.Title
		if i == v.subtaskIdx && v.overlay == OverlayDetail {
			rows = append(rows, s.RowSelected.Padding(0, 1).Render(row))
		} else {
			rows = append(rows, s.Row.Padding(0, 1).Render(row))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *MilestoneListView) renderComments(m *models.Milestone, width int) string {
	s := v.styles
	if len(m.Comments) == 0 {
		return s.Muted.Render("No comments yet")
	}
	var rows []string
	for _, c := range m.Comments {
		header := s.Muted.Render(fmt.Sprintf("%s • %s", c.Author, c.CreatedAt.Local().Format("Jan 2, 2006 15:04")))
		rows = append(rows, header, lipgloss.NewStyle().Width(width).Render(c.Text), "")
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}

func (v *MilestoneListView) renderTags() string {
	s := v.styles
	m := v.selected()
	contentWidth := styles.ContentWidth(v.width)

	var items []string
	if len(v.allTags) == 0 {
		items = append(items, s.Muted.Render("No tags yet. Type one below."))
	}
	for i, tag := range v.allTags {
		checkbox := "[ ]"
		if m != nil && m.HasTag(tag) {
			checkbox = "[x]"
		}
		itemStyle := s.Row
		if i == v.tagCursor {
			itemStyle = s.RowSelected
		}
		items = append(items, itemStyle.Render(checkbox+" "+tag))
	}

	title := "Tags"
	if m != nil {
		title = "Tags for: " + truncate(m.Title, 40)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		"",
		lipgloss.JoinVertical(lipgloss.Left, items...),
		"",
		s.InputFocused.Width(clamp(contentWidth-12, 20, 40)).Render(v.tagInput.View()),
		v.renderStatus(),
		s.Muted.Render("↑↓: pick • ↵: toggle picked or typed tag • Esc: done"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *MilestoneListView) renderMove() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	var items []string
	if len(v.moveTargets) == 0 {
		items = append(items, s.Muted.Render("No other folders. Create one first."))
	}
	for i, t := range v.moveTargets {
		itemStyle := s.Row
		if i == v.moveCursor {
			itemStyle = s.RowSelected
		}
		items = append(items, itemStyle.Render(t.name))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Move to folder"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, items...),
		"",
		s.Muted.Render("↑↓: select • ↵: move • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *MilestoneListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 70 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	k := v.styles.HelpKey
	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s new • %s edit • %s del • %s status • %s priority • %s move • %s tags • %s search • %s back",
			k.Render("↵"), k.Render("n"), k.Render("e"), k.Render("d"), k.Render("s"),
			k.Render("p"), k.Render("m"), k.Render("t"), k.Render("/"), k.Render("esc"),
		),
	)
}

func (v *MilestoneListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view milestone",
		s.HelpKey.Render("n") + "      new milestone",
		s.HelpKey.Render("e") + "      edit milestone",
		s.HelpKey.Render("d") + "      delete milestone",
		s.HelpKey.Render("s") + "      next status",
		s.HelpKey.Render("p") + "      next priority",
		s.HelpKey.Render("m") + "      move to folder",
		s.HelpKey.Render("t") + "      add/remove tags",
		s.HelpKey.Render("c") + "      comment",
		s.HelpKey.Render("/") + "      search",
		s.HelpKey.Render("T") + "      next theme",
		s.HelpKey.Render("b") + "      backup",
		s.HelpKey.Render("esc") + "    back",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.Muted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *MilestoneListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	name := ""
	if m := v.selected(); m != nil {
		name = m.Title
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Milestone?"),
		"",
		s.Muted.Render(truncate(name, contentWidth-10)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonDanger.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
