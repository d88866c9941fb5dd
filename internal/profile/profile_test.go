package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus3301/freechat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHonoursOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv("FREECHAT_HOME", base)
	assert.Equal(t, base, Root())
	assert.Equal(t, filepath.Join(base, "config.toml"), ConfigPath())

	t.Setenv("FREECHAT_HOME", "")
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".freechat"), Root())
}

func TestOpenPaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv("FREECHAT_HOME", base)

	p, err := Open("work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "profiles", "work"), p.Dir)
	assert.Equal(t, filepath.Join(p.Dir, "credential"), p.CredentialPath())
	assert.Equal(t, filepath.Join(p.Dir, "logs", "freechat.log"), p.LogPath())
	assert.Equal(t, "work", p.String())
}

func TestOpenRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "Main", "my profile", "my.profile", "a/b", "../x", strings.Repeat("a", 65)} {
		_, err := Open(name)
		assert.Error(t, err, "name %q", name)
	}
	for _, name := range []string{"main", "work123", "my-profile", "my_profile"} {
		_, err := Open(name)
		assert.NoError(t, err, "name %q", name)
	}
}

func TestEnsureCreatesPrivateTree(t *testing.T) {
	t.Setenv("FREECHAT_HOME", t.TempDir())
	p, err := Open("work")
	require.NoError(t, err)

	require.NoError(t, p.Ensure())
	info, err := os.Stat(filepath.Dir(p.LogPath()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	assert.Error(t, Profile{Name: "zero"}.Ensure())
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		flag string
		cfg  *config.Config
		want string
	}{
		{"flag wins", "work", &config.Config{DefaultProfile: "home"}, "work"},
		{"config default", "", &config.Config{DefaultProfile: "home"}, "home"},
		{"no config", "", nil, DefaultName},
		{"empty config", "", &config.Config{}, DefaultName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Select(tt.flag, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}

	_, err := Select("", &config.Config{DefaultProfile: "Bad Name"})
	assert.Error(t, err)
}
