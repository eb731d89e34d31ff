package views

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/store"
	"github.com/tgienger/ruidmap/internal/ui/styles"
)

// SelectedFolder opens the milestone list of a folder. A nil FolderID
// selects the unorganized milestones.
type SelectedFolder struct {
	FolderID *uuid.UUID
	Name     string
}

// BackToFolders returns to the folder list.
type BackToFolders struct{}

// ThemeChanged is sent after the stored theme changes.
type ThemeChanged struct {
	Name string
}

// unorganizedName labels milestones outside every folder.
const unorganizedName = "Unorganized"

// emit wraps an already computed message. Store calls happen inside Update
// so the roadmap is only touched from the program loop.
func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// cycleTheme stores the next theme and reports it.
func cycleTheme(st *store.Store) (tea.Cmd, error) {
	next := styles.NextName(st.Theme())
	if err := st.SetTheme(next); err != nil {
		return nil, err
	}
	styles.Apply(next)
	return emit(ThemeChanged{Name: next}), nil
}

// backupRoadmap writes the default backup and returns a status line.
func backupRoadmap(st *store.Store) (string, error) {
	path, err := st.Backup("")
	if err != nil {
		return "", err
	}
	return "Backed up to " + path, nil
}

// describeErr turns store errors into a one-line message.
func describeErr(err error) string {
	switch {
	case errors.Is(err, apperr.ErrLastContainer):
		return "Can't delete the last folder while milestones exist"
	case errors.Is(err, apperr.ErrNotFound):
		return "Not found; it may have been deleted"
	case errors.Is(err, apperr.ErrIO):
		return "Could not write the data file: " + err.Error()
	}
	return err.Error()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
