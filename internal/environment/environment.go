package environment

import (
	"os"
	"sort"
	"strings"

	"fernspiel/internal/platform"
	"fernspiel/pkg/logging"
)

const subsystem = "Environment"

// DependencyMarker identifies library path entries that already point at the
// media engine.
const DependencyMarker = "vlc"

// Env is a process environment as a key/value mapping.
type Env map[string]string

// FromOS captures the ambient environment of the current process.
func FromOS() Env {
	return FromList(os.Environ())
}

// FromList parses KEY=VALUE entries. Entries without "=" are ignored, later
// duplicates win.
func FromList(list []string) Env {
	env := make(Env, len(list))
	for _, kv := range list {
		key, value, ok := strings.Cut(kv, "=")
		// Windows keeps per-drive working directories as "=C:=C:\..." entries.
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// List returns the environment as sorted KEY=VALUE entries, suitable for
// exec.Cmd.Env.
func (e Env) List() []string {
	list := make([]string, 0, len(e))
	for k, v := range e {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

// Clone returns an independent copy of the environment.
func (e Env) Clone() Env {
	c := make(Env, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

// lookup finds key the way the platform compares environment keys and
// returns the key as spelled in the environment.
func (e Env) lookup(p platform.Descriptor, key string) (string, string, bool) {
	if v, ok := e[key]; ok {
		return key, v, true
	}
	if p.CaseInsensitiveEnv {
		for k, v := range e {
			if p.EqualFold(k, key) {
				return k, v, true
			}
		}
	}
	return key, "", false
}

// Resolve returns a copy of ambient with the overlays the runtime needs to
// find the media engine's shared libraries and plugins. ambient is never
// modified.
func Resolve(ambient Env, p platform.Descriptor) Env {
	env := ambient.Clone()

	if p.LibraryPathVar != "" && p.DefaultLibraryDir != "" {
		key, value, _ := env.lookup(p, p.LibraryPathVar)
		if !referencesDependency(value, p.ListSeparator) {
			if value == "" {
				env[key] = p.DefaultLibraryDir
			} else {
				env[key] = strings.TrimSuffix(value, p.ListSeparator) + p.ListSeparator + p.DefaultLibraryDir
			}
			logging.Debug(subsystem, "Appended %s to %s", p.DefaultLibraryDir, key)
		}
	}

	if p.PluginPathVar != "" && p.DefaultPluginDir != "" {
		if _, _, ok := env.lookup(p, p.PluginPathVar); !ok {
			env[p.PluginPathVar] = p.DefaultPluginDir
			logging.Debug(subsystem, "Set %s to %s", p.PluginPathVar, p.DefaultPluginDir)
		}
	}

	return env
}

func referencesDependency(list, sep string) bool {
	for _, entry := range strings.Split(list, sep) {
		if strings.Contains(strings.ToLower(entry), DependencyMarker) {
			return true
		}
	}
	return false
}

// Overlay returns the entries of resolved that differ from ambient.
func Overlay(ambient, resolved Env) Env {
	diff := make(Env)
	for k, v := range resolved {
		if old, ok := ambient[k]; !ok || old != v {
			diff[k] = v
		}
	}
	return diff
}
