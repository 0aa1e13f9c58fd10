package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	branchMid  = "├── "
	branchLast = "└── "
	indentMid  = "│   "
	indentLast = "    "
)

type treeEntry struct {
	path   string
	name   string
	prefix string
	last   bool
	dir    bool
}

// RenderTree draws the directory tree under root, one entry per line,
// sorted by name, leaving out entries whose name is in ignore. The root
// itself is not printed. Traversal uses an explicit stack, so depth is
// bounded only by memory.
func RenderTree(root string, ignore map[string]bool) (string, error) {
	top, err := visibleEntries(root, "", ignore)
	if err != nil {
		return "", errors.Wrapf(err, "listing %s", root)
	}

	var sb strings.Builder
	stack := pushReversed(nil, top)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sb.WriteString(e.prefix)
		if e.last {
			sb.WriteString(branchLast)
		} else {
			sb.WriteString(branchMid)
		}
		sb.WriteString(e.name)
		sb.WriteByte('\n')

		if !e.dir {
			continue
		}
		childPrefix := e.prefix + indentMid
		if e.last {
			childPrefix = e.prefix + indentLast
		}
		children, err := visibleEntries(e.path, childPrefix, ignore)
		if err != nil {
			log.Debug().Err(err).Str("path", e.path).Msg("Skipping unreadable directory")
			continue
		}
		stack = pushReversed(stack, children)
	}
	return sb.String(), nil
}

// visibleEntries lists dir, drops ignored names and marks the last visible
// entry so connectors are chosen after filtering.
func visibleEntries(dir, prefix string, ignore map[string]bool) ([]treeEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]treeEntry, 0, len(entries))
	for _, entry := range entries {
		if ignore[entry.Name()] {
			continue
		}
		out = append(out, treeEntry{
			path:   filepath.Join(dir, entry.Name()),
			name:   entry.Name(),
			prefix: prefix,
			dir:    entry.IsDir(),
		})
	}
	if len(out) > 0 {
		out[len(out)-1].last = true
	}
	return out, nil
}

func pushReversed(stack, entries []treeEntry) []treeEntry {
	for i := len(entries) - 1; i >= 0; i-- {
		stack = append(stack, entries[i])
	}
	return stack
}
