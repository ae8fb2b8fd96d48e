package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"agcodex/internal/logging"
)

// Descriptor source tiers, in ascending precedence.
const (
	SourceBuiltin = "builtin"
	SourceGlobal  = "global"
	SourceProject = "project"
)

// markerDir is the project-local directory holding agent descriptors,
// found by walking ancestors of the working directory.
const markerDir = ".agcodex"

// Warning records a descriptor that failed to load. Bad descriptors never
// block the rest of the set.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Metadata is the listing view of a registered agent.
type Metadata struct {
	Name        string
	Description string
	Source      string
	Tags        []string
}

// Registry resolves agent names to descriptors. Load order is builtins,
// then the global tier, then the project tier; later tiers shadow earlier
// ones by name. Reload swaps the whole set atomically.
type Registry struct {
	globalDir string
	workspace string

	mu       sync.RWMutex
	agents   map[string]*Descriptor
	warnings []Warning
}

// NewRegistry builds a registry rooted at workspace and loads all tiers.
// globalDir may be empty, in which case ~/.agcodex/agents is used.
func NewRegistry(workspace, globalDir string) (*Registry, error) {
	if globalDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			globalDir = filepath.Join(home, markerDir, "agents")
		}
	}
	r := &Registry{globalDir: globalDir, workspace: workspace}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the descriptor for name, or false if no agent has it.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.agents[name]
	return d, ok
}

// List returns metadata for every registered agent, sorted by name.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.agents))
	for _, d := range r.agents {
		out = append(out, Metadata{
			Name:        d.Name,
			Description: d.Description,
			Source:      d.Source,
			Tags:        d.Tags,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Warnings returns the load problems from the most recent Reload.
func (r *Registry) Warnings() []Warning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Warning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Reload re-scans both tiers and swaps the descriptor set in one step.
// Readers mid-Get see either the old set or the new one, never a mix.
func (r *Registry) Reload() error {
	agents := make(map[string]*Descriptor)
	var warnings []Warning

	for _, d := range Builtins() {
		agents[d.Name] = d
	}

	if r.globalDir != "" {
		warnings = append(warnings, loadTier(r.globalDir, SourceGlobal, agents)...)
	}
	if dir := projectAgentsDir(r.workspace); dir != "" {
		warnings = append(warnings, loadTier(dir, SourceProject, agents)...)
	}

	for _, w := range warnings {
		logging.AgentsWarn("skipping descriptor %s", w)
	}

	r.mu.Lock()
	r.agents = agents
	r.warnings = warnings
	r.mu.Unlock()

	logging.AgentsDebug("registry loaded %d agents (%d warnings)", len(agents), len(warnings))
	return nil
}

// ProjectDir returns the project descriptor directory the registry watches,
// or empty when the workspace has no marker directory.
func (r *Registry) ProjectDir() string {
	return projectAgentsDir(r.workspace)
}

// GlobalDir returns the per-user descriptor directory.
func (r *Registry) GlobalDir() string {
	return r.globalDir
}

// loadTier reads every .yaml/.yml file in dir into agents, overwriting any
// same-named entry from an earlier tier. Returns per-file warnings.
func loadTier(dir, source string, agents map[string]*Descriptor) []Warning {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return []Warning{{Path: dir, Err: err}}
		}
		return nil
	}

	var warnings []Warning
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Err: err})
			continue
		}
		d, err := ParseDescriptor(data, path)
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Err: err})
			continue
		}
		d.Source = source
		if prev, ok := agents[d.Name]; ok && prev.Source != source {
			logging.AgentsDebug("agent %q: %s overrides %s", d.Name, source, prev.Source)
		}
		agents[d.Name] = d
	}
	return warnings
}

// projectAgentsDir walks up from workspace looking for the nearest
// ancestor containing the marker directory, and returns its agents
// subdirectory. Empty when no ancestor has one.
func projectAgentsDir(workspace string) string {
	dir, err := filepath.Abs(workspace)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, markerDir, "agents")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
