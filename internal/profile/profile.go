// Package profile locates the on-disk state of a named account profile:
// the stored credential, the log file and the client lock.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/matheus3301/freechat/internal/config"
)

// DefaultName is used when neither a flag nor the config names a profile.
const DefaultName = "main"

var validName = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Root returns $FREECHAT_HOME, or ~/.freechat when unset. It holds
// config.toml and one directory per profile.
func Root() string {
	if dir := os.Getenv("FREECHAT_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".freechat")
}

// ConfigPath returns the shared config file.
func ConfigPath() string {
	return filepath.Join(Root(), "config.toml")
}

// Profile is a validated profile name and its directory.
type Profile struct {
	Name string
	Dir  string
}

// Open validates name and returns its profile. Nothing is created on disk.
func Open(name string) (Profile, error) {
	if !validName.MatchString(name) {
		return Profile{}, fmt.Errorf("invalid profile name %q: use 1-64 of a-z, 0-9, '_' and '-'", name)
	}
	return Profile{Name: name, Dir: filepath.Join(Root(), "profiles", name)}, nil
}

// Select opens the profile named by flag, else the config default, else
// DefaultName.
func Select(flag string, cfg *config.Config) (Profile, error) {
	name := flag
	if name == "" && cfg != nil {
		name = cfg.DefaultProfile
	}
	if name == "" {
		name = DefaultName
	}
	return Open(name)
}

func (p Profile) String() string { return p.Name }

// CredentialPath is the file holding the bearer token.
func (p Profile) CredentialPath() string { return filepath.Join(p.Dir, "credential") }

// LogPath is the JSON log file.
func (p Profile) LogPath() string { return filepath.Join(p.Dir, "logs", "freechat.log") }

// Ensure creates the profile directory tree, private to the user.
func (p Profile) Ensure() error {
	if p.Dir == "" {
		return fmt.Errorf("profile %q has no directory", p.Name)
	}
	return os.MkdirAll(filepath.Dir(p.LogPath()), 0700)
}
