// Package workspace gives the agents sandboxed text-file access to a single
// project directory and renders its directory tree.
//
// Read and Write never return Go errors. Failures come back as strings the
// model can read, since they are handed straight to the model as tool
// results.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultIgnore lists directory names left out of the tree.
var DefaultIgnore = []string{".git", "node_modules", "__pycache__", ".next"}

// ErrOutsideRoot is returned by Resolve for paths that leave the project root.
var ErrOutsideRoot = errors.New("path escapes the project root")

// Workspace is a project directory the agents may read and modify.
type Workspace struct {
	root     string
	realRoot string
	ignore map[string]bool

	mu       sync.Mutex
	watching bool
	tree     string
	treeOK   bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithIgnore replaces the set of directory names skipped by Tree.
func WithIgnore(names ...string) Option {
	return func(w *Workspace) {
		w.ignore = make(map[string]bool, len(names))
		for _, n := range names {
			w.ignore[n] = true
		}
	}
}

// New opens the project rooted at root, creating the directory if needed.
func New(root string, opts ...Option) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving project root %s", root)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating project root %s", abs)
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving project root %s", abs)
	}

	w := &Workspace{root: abs, realRoot: real}
	WithIgnore(DefaultIgnore...)(w)
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string { return w.root }

// Name returns the base name of the project root.
func (w *Workspace) Name() string { return filepath.Base(w.root) }

// Resolve maps a project-relative path to an absolute one. Absolute paths
// are accepted only when they lie under the root. Symlinks are followed as
// far as the path exists, and a path whose target leaves the root is
// refused.
func (w *Workspace) Resolve(path string) (string, error) {
	var full string
	if filepath.IsAbs(path) {
		full = filepath.Clean(path)
	} else {
		full = filepath.Join(w.root, path)
	}
	if !within(w.root, full) {
		return "", errors.Wrapf(ErrOutsideRoot, "%q", path)
	}
	real, err := evalExisting(full)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %q", path)
	}
	if !within(w.realRoot, real) {
		return "", errors.Wrapf(ErrOutsideRoot, "%q", path)
	}
	return full, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting resolves symlinks in the deepest existing ancestor of path
// and appends the missing remainder. A dangling symlink is an error since
// writing through it would create its target.
func evalExisting(path string) (string, error) {
	rest := ""
	p := path
	for {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(real, rest), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		if info, lerr := os.Lstat(p); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
			return "", errors.Errorf("dangling symlink %s", p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return path, nil
		}
		rest = filepath.Join(filepath.Base(p), rest)
		p = parent
	}
}

// Read returns the content of path. A missing file yields
// "File '<path>' does not exist."; any other failure yields
// "Error reading file: <reason>".
func (w *Workspace) Read(path string) string {
	full, err := w.Resolve(path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("File '%s' does not exist.", path)
		}
		log.Debug().Err(err).Str("path", path).Msg("Read failed")
		return fmt.Sprintf("Error reading file: %v", err)
	}
	return string(data)
}

// Write replaces the content of path, creating parent directories, and
// returns the written content. Failures yield "Error editing file: <reason>".
func (w *Workspace) Write(path, content string) string {
	full, err := w.Resolve(path)
	if err != nil {
		return fmt.Sprintf("Error editing file: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Write failed")
		return fmt.Sprintf("Error editing file: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Write failed")
		return fmt.Sprintf("Error editing file: %v", err)
	}
	w.invalidateTree()
	log.Debug().Str("path", path).Int("bytes", len(content)).Msg("Wrote file")
	return content
}

// Exists reports whether path names an existing regular file. Directories
// are not readable as files and report false.
func (w *Workspace) Exists(path string) bool {
	full, err := w.Resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Tree renders the project tree. While Watch is running the rendering is
// cached until something under the root changes.
func (w *Workspace) Tree() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching && w.treeOK {
		return w.tree
	}

	tree, err := RenderTree(w.root, w.ignore)
	if err != nil {
		log.Warn().Err(err).Str("root", w.root).Msg("Could not render project tree")
		return fmt.Sprintf("Error listing project: %v\n", err)
	}
	if w.watching {
		w.tree, w.treeOK = tree, true
	}
	return tree
}

func (w *Workspace) invalidateTree() {
	w.mu.Lock()
	w.treeOK = false
	w.mu.Unlock()
}

func (w *Workspace) ignored(name string) bool {
	return w.ignore[name]
}
