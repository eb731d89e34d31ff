package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/ruidmap/internal/store"
	"github.com/tgienger/ruidmap/internal/ui/styles"
	"github.com/tgienger/ruidmap/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewFolders View = iota
	ViewMilestones
)

type App struct {
	store         *store.Store
	currentView   View
	folderList    *views.FolderListView
	milestoneList *views.MilestoneListView
	width         int
	height        int
}

// NewApp creates the application, applying the theme stored in the roadmap
func NewApp(st *store.Store) *App {
	styles.Apply(st.Theme())
	return &App{
		store:       st,
		currentView: ViewFolders,
		folderList:  views.NewFolderListView(st),
	}
}

func (a *App) Init() tea.Cmd {
	return a.folderList.Init()
}

// CurrentView reports which view has the keyboard.
func (a *App) CurrentView() View { return a.currentView }

func (a *App) resize() tea.Cmd {
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: a.width, Height: a.height}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Always update folder list size since it persists
		a.folderList.Update(msg)

	case views.SelectedFolder:
		a.currentView = ViewMilestones
		a.milestoneList = views.NewMilestoneListView(a.store, msg.FolderID, msg.Name)
		return a, tea.Batch(a.milestoneList.Init(), a.resize())

	case views.BackToFolders:
		a.currentView = ViewFolders
		a.folderList.Refresh()
		return a, a.resize()

	case views.ThemeChanged:
		a.folderList.Restyle()
		if a.milestoneList != nil {
			a.milestoneList.Restyle()
		}
		return a, nil
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewFolders:
		_, cmd = a.folderList.Update(msg)
	case ViewMilestones:
		_, cmd = a.milestoneList.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewMilestones:
		if a.milestoneList != nil {
			return a.milestoneList.View()
		}
	}
	return a.folderList.View()
}
