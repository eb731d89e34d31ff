package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/ruidmap/internal/models"
	"github.com/tgienger/ruidmap/internal/store"
	"github.com/tgienger/ruidmap/internal/ui/keys"
	"github.com/tgienger/ruidmap/internal/ui/styles"
)

// folderItem is one row of the folder list. A nil folder is the
// Unorganized entry.
type folderItem struct {
	folder     *models.Folder
	milestones []models.Milestone
}

func (i folderItem) Title() string {
	if i.folder == nil {
		return unorganizedName
	}
	return i.folder.Name
}

func (i folderItem) Description() string {
	done := 0
	for _, m := range i.milestones {
		if m.IsCompleted() {
			done++
		}
	}
	summary := fmt.Sprintf("%d milestones • %d done", len(i.milestones), done)
	if i.folder == nil {
		return summary
	}
	if i.folder.Expanded && len(i.milestones) > 0 {
		titles := make([]string, len(i.milestones))
		for j, m := range i.milestones {
			titles[j] = m.Title
		}
		return "▾ " + strings.Join(titles, ", ")
	}
	if i.folder.Description != "" {
		return "▸ " + summary + " • " + i.folder.Description
	}
	return "▸ " + summary
}

func (i folderItem) FilterValue() string { return i.Title() }

type folderDelegate struct {
	styles *styles.Styles
	width  int
}

func (d folderDelegate) Height() int                               { return 2 }
func (d folderDelegate) Spacing() int                              { return 1 }
func (d folderDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d folderDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	f, ok := item.(folderItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.RowSelected.Width(width)
		descStyle = d.styles.RowSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.Row.Width(width)
		descStyle = d.styles.Row.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	title := titleStyle.Render(f.Title())
	desc := descStyle.Render(truncate(f.Description(), width-4))

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

// FolderListView lists folders plus the Unorganized entry.
type FolderListView struct {
	store            *store.Store
	list             list.Model
	delegate         *folderDelegate
	styles           *styles.Styles
	keys             keys.KeyMap
	width            int
	height           int
	creating         bool
	editTarget       *models.Folder
	confirmingDelete bool
	deleteTarget     *models.Folder
	newName          textinput.Model
	newDesc          textinput.Model
	focusIdx         int // 0=name, 1=desc, 2=confirm
	status           string
	statusErr        bool

	showHelpPopup bool
}

// NewFolderListView builds the folder list over st.
func NewFolderListView(st *store.Store) *FolderListView {
	s := styles.NewStyles()

	newName := textinput.New()
	newName.Placeholder = "Folder name"
	newName.CharLimit = 100

	newDesc := textinput.New()
	newDesc.Placeholder = "Description (optional)"
	newDesc.CharLimit = 200

	delegate := &folderDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Folders"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	v := &FolderListView{
		store:    st,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		newName:  newName,
		newDesc:  newDesc,
	}
	v.Refresh()
	return v
}

// Init implements tea.Model.
func (v *FolderListView) Init() tea.Cmd {
	return nil
}

// Restyle rebuilds styles after a theme change.
func (v *FolderListView) Restyle() {
	v.styles = styles.NewStyles()
	v.delegate.styles = v.styles
	v.list.Styles.Title = v.styles.Title
}

// Refresh reloads the rows from the store, keeping the selection index.
func (v *FolderListView) Refresh() {
	r := v.store.Roadmap()
	items := make([]list.Item, 0, len(r.Folders)+1)
	for i := range r.Folders {
		f := r.Folders[i]
		items = append(items, folderItem{folder: &f, milestones: r.MilestonesInFolder(&f.ID)})
	}
	items = append(items, folderItem{milestones: r.UnorganizedMilestones()})

	idx := v.list.Index()
	v.list.SetItems(items)
	v.list.Select(clamp(idx, 0, len(items)-1))
}

func (v *FolderListView) setStatus(text string, err error) {
	if err != nil {
		v.status = describeErr(err)
		v.statusErr = true
		return
	}
	v.status = text
	v.statusErr = false
}

// Update implements tea.Model.
func (v *FolderListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-9)
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.creating {
			return v.updateCreating(msg)
		}

		// Let the list own the keyboard while its filter is being typed.
		if v.list.FilterState() == list.Filtering {
			break
		}

		v.status = ""
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			return v, nil
		case key.Matches(msg, v.keys.New):
			v.startForm(nil)
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Edit):
			if f := v.selectedFolder(); f != nil {
				v.startForm(f)
				return v, textinput.Blink
			}
			return v, nil
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(folderItem); ok {
				sel := SelectedFolder{Name: item.Title()}
				if item.folder != nil {
					id := item.folder.ID
					sel.FolderID = &id
				}
				return v, emit(sel)
			}
		case key.Matches(msg, v.keys.Toggle):
			if f := v.selectedFolder(); f != nil {
				v.setStatus("", v.store.ToggleFolder(f.ID))
				v.Refresh()
			}
			return v, nil
		case key.Matches(msg, v.keys.Delete):
			if f := v.selectedFolder(); f != nil {
				v.confirmingDelete = true
				v.deleteTarget = f
			}
			return v, nil
		case key.Matches(msg, v.keys.Theme):
			cmd, err := cycleTheme(v.store)
			v.setStatus("", err)
			return v, cmd
		case key.Matches(msg, v.keys.Backup):
			v.setStatus(backupRoadmap(v.store))
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *FolderListView) selectedFolder() *models.Folder {
	item, ok := v.list.SelectedItem().(folderItem)
	if !ok {
		return nil
	}
	return item.folder
}

func (v *FolderListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		if err := v.store.DeleteFolder(v.deleteTarget.ID); err != nil {
			v.setStatus("", err)
			return v, nil
		}
		v.setStatus("Deleted "+v.deleteTarget.Name, nil)
		v.Refresh()
		return v, nil
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

// startForm opens the create form, or the rename form when f is set.
func (v *FolderListView) startForm(f *models.Folder) {
	v.creating = true
	v.editTarget = f
	v.focusIdx = 0
	v.newName.Reset()
	v.newDesc.Reset()
	if f != nil {
		v.newName.SetValue(f.Name)
		v.newDesc.SetValue(f.Description)
	}
	v.updateFocus()
}

func (v *FolderListView) submit() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(v.newName.Value())
	desc := strings.TrimSpace(v.newDesc.Value())
	if name == "" {
		return v, nil
	}

	if v.editTarget != nil {
		if err := v.store.UpdateFolder(v.editTarget.ID, name, desc); err != nil {
			v.setStatus("", err)
			return v, nil
		}
		v.creating = false
		v.Refresh()
		return v, nil
	}

	folder, err := v.store.CreateFolder(name, desc)
	if err != nil {
		v.setStatus("", err)
		return v, nil
	}
	v.creating = false
	v.Refresh()
	id := folder.ID
	return v, emit(SelectedFolder{FolderID: &id, Name: folder.Name})
}

func (v *FolderListView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v.submit()

	case msg.String() == "shift+tab":
		v.focusIdx = (v.focusIdx + 2) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx < 2 {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v.submit()
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.newName, cmd = v.newName.Update(msg)
	case 1:
		v.newDesc, cmd = v.newDesc.Update(msg)
	}
	return v, cmd
}

func (v *FolderListView) updateFocus() {
	v.newName.Blur()
	v.newDesc.Blur()
	switch v.focusIdx {
	case 0:
		v.newName.Focus()
	case 1:
		v.newDesc.Focus()
	}
}

// View implements tea.Model.
func (v *FolderListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.creating {
		return v.renderForm()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		v.renderStats(),
		v.list.View(),
		v.renderStatus(),
		v.renderHelp(),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *FolderListView) renderStats() string {
	s := v.styles
	st := v.store.Stats()
	barWidth := clamp(styles.ContentWidth(v.width)-24, 10, 50)

	header := s.Title.Render(v.store.Roadmap().Title)
	bar := s.Progress.Render(styles.ProgressBar(st.Progress, barWidth)) +
		s.Muted.Render(fmt.Sprintf(" %5.1f%%", st.Progress))
	counts := s.Muted.Render(fmt.Sprintf("%d total • %d done • %d in progress • %d not started • %d blocked",
		st.Total, st.Completed, st.InProgress, st.NotStarted, st.Blocked))

	return lipgloss.NewStyle().Padding(1, 2, 0).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, bar, counts),
	)
}

func (v *FolderListView) renderStatus() string {
	if v.status == "" {
		return ""
	}
	if v.statusErr {
		return v.styles.ErrorText.Render(v.status)
	}
	return v.styles.StatusBar.Render(v.status)
}

func (v *FolderListView) renderForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	nameStyle := s.Input
	descStyle := s.Input
	btnStyle := s.Button

	switch v.focusIdx {
	case 0:
		nameStyle = s.InputFocused
	case 1:
		descStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	title, button := "New Folder", " Create "
	if v.editTarget != nil {
		title, button = "Edit Folder", " Save "
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		"",
		"Name:",
		nameStyle.Width(inputWidth).Render(v.newName.View()),
		"",
		"Description:",
		descStyle.Width(inputWidth).Render(v.newDesc.View()),
		"",
		btnStyle.Render(button),
		"",
		v.renderStatus(),
		s.Muted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *FolderListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 60 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s open • %s new • %s edit • %s del • %s fold • %s theme • %s backup • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("space"),
			v.styles.HelpKey.Render("T"),
			v.styles.HelpKey.Render("b"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *FolderListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      open folder",
		s.HelpKey.Render("n") + "      new folder",
		s.HelpKey.Render("e") + "      rename folder",
		s.HelpKey.Render("d") + "      delete folder",
		s.HelpKey.Render("space") + "  expand/collapse",
		s.HelpKey.Render("/") + "      filter",
		s.HelpKey.Render("T") + "      next theme",
		s.HelpKey.Render("b") + "      backup",
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

func (v *FolderListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Folder?"),
		"",
		s.Muted.Render(fmt.Sprintf("%q will be removed.", v.deleteTarget.Name)),
		s.Muted.Render("Its milestones move to "+unorganizedName+"."),
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

// truncate shortens s to at most width runes, ending in an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
