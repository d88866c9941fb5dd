package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveParamsLayers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FREECHAT_HOME", home)
	t.Setenv("FREECHAT_LOG_LEVEL", "debug")
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte(`
default_profile = "work"

[server]
base_url = "https://chat.example.com"

[search]
debounce = "250ms"
`), 0o600))

	p, err := ResolveParams("")
	require.NoError(t, err)
	require.Equal(t, "work", p.Profile.Name)
	require.Equal(t, filepath.Join(home, "profiles", "work"), p.Profile.Dir)
	require.Equal(t, "https://chat.example.com", p.Config.Server.BaseURL)
	require.Equal(t, "wss://chat.example.com", p.Config.WebSocketURL())
	require.Equal(t, "250ms", p.Config.Search.Debounce.String())
	require.Equal(t, "debug", p.Config.Log.Level)

	p, err = ResolveParams("other")
	require.NoError(t, err)
	require.Equal(t, "other", p.Profile.Name)
}

func TestResolveParamsRejectsBadProfile(t *testing.T) {
	t.Setenv("FREECHAT_HOME", t.TempDir())

	_, err := ResolveParams("Not Valid")
	require.Error(t, err)
}
