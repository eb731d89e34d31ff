package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/ruidmap/internal/apperr"
)

// isolate points every source at empty temp locations.
func isolate(t *testing.T) (userDir, workDir string) {
	t.Helper()
	userDir = t.TempDir()
	workDir = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userDir)
	t.Setenv("USER", "tester")
	for _, key := range []string{"RUIDMAP_FILE", "RUIDMAP_LOG_FILE", "RUIDMAP_LOG_LEVEL", "RUIDMAP_LOG_FORMAT", "RUIDMAP_AUTHOR"} {
		t.Setenv(key, "")
	}
	prevDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workDir))
	t.Cleanup(func() { _ = os.Chdir(prevDir) })
	return userDir, workDir
}

func writeUserConfig(t *testing.T, userDir, content string) {
	t.Helper()
	dir := filepath.Join(userDir, "ruidmap")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))
}

func newFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("test", flag.ContinueOnError)
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataFile, cfg.DataFile)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, "tester", cfg.Author)
	assert.Empty(t, cfg.LogFile)
}

func TestLayering(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		project    string
		env        map[string]string
		args       []string
		wantFile   string
		wantLevel  string
		wantAuthor string
	}{
		{
			name:       "user file",
			user:       "data_file = \"user.json\"\nlog_level = \"debug\"\n",
			wantFile:   "user.json",
			wantLevel:  "debug",
			wantAuthor: "tester",
		},
		{
			name:       "project file overrides user file",
			user:       "data_file = \"user.json\"\nlog_level = \"debug\"\n",
			project:    "data_file = \"project.json\"\n",
			wantFile:   "project.json",
			wantLevel:  "debug",
			wantAuthor: "tester",
		},
		{
			name:       "env overrides files",
			project:    "data_file = \"project.json\"\nauthor = \"file\"\n",
			env:        map[string]string{"RUIDMAP_FILE": "env.json", "RUIDMAP_AUTHOR": "env"},
			wantFile:   "env.json",
			wantLevel:  "info",
			wantAuthor: "env",
		},
		{
			name:       "flags override env",
			env:        map[string]string{"RUIDMAP_FILE": "env.json", "RUIDMAP_LOG_LEVEL": "warn"},
			args:       []string{"-file", "flag.json", "-author", "flag"},
			wantFile:   "flag.json",
			wantLevel:  "warn",
			wantAuthor: "flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userDir, workDir := isolate(t)
			if tt.user != "" {
				writeUserConfig(t, userDir, tt.user)
			}
			if tt.project != "" {
				require.NoError(t, os.WriteFile(filepath.Join(workDir, "ruidmap.toml"), []byte(tt.project), 0o644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(newFlagSet(), tt.args)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFile, cfg.DataFile)
			assert.Equal(t, tt.wantLevel, cfg.LogLevel)
			assert.Equal(t, tt.wantAuthor, cfg.Author)
		})
	}
}

func TestHiddenProjectFile(t *testing.T) {
	_, workDir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".ruidmap.toml"), []byte("log_format = \"json\"\n"), 0o644))

	cfg, err := Load(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestPositionalArgsRemain(t *testing.T) {
	isolate(t)
	fs := newFlagSet()

	_, err := Load(fs, []string{"-log-level", "DEBUG", "tasks", "list"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "list"}, fs.Args())
}

func TestInvalidValues(t *testing.T) {
	isolate(t)

	_, err := Load(newFlagSet(), []string{"-log-level", "loud", "-log-format", "xml"})

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Problems, "log_level")
	assert.Contains(t, ve.Problems, "log_format")
}

func TestBadTOML(t *testing.T) {
	userDir, _ := isolate(t)
	writeUserConfig(t, userDir, "data_file = ")

	_, err := Load(newFlagSet(), nil)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("RUIDMAP_TEST_DIR", "/srv/data")

	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, filepath.Join(home, "notes.json"), expandPath("~/notes.json"))
	assert.Equal(t, "/srv/data/x.json", expandPath("$RUIDMAP_TEST_DIR/x.json"))
	assert.Equal(t, "plain.json", expandPath("plain.json"))
}

func TestDefaultLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")
	assert.Equal(t, "/var/state/ruidmap/ruidmap.log", DefaultLogFile())
}
