package agent

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FileChangeSet maps project paths to the latest content seen for them,
// either written by edit_file or returned by read_file and fetches. Paths
// keep the order in which they were first recorded. The zero value is not
// usable; call NewFileChangeSet.
type FileChangeSet struct {
	files *orderedmap.OrderedMap[string, string]
}

// NewFileChangeSet returns an empty change set.
func NewFileChangeSet() *FileChangeSet {
	return &FileChangeSet{files: orderedmap.New[string, string]()}
}

// Record stores content for path, replacing any earlier value.
func (c *FileChangeSet) Record(path, content string) {
	c.files.Set(path, content)
}

// Get returns the recorded content for path.
func (c *FileChangeSet) Get(path string) (string, bool) {
	return c.files.Get(path)
}

// Merge records every entry of other into c. Later values win.
func (c *FileChangeSet) Merge(other *FileChangeSet) {
	if other == nil {
		return
	}
	for pair := other.files.Oldest(); pair != nil; pair = pair.Next() {
		c.files.Set(pair.Key, pair.Value)
	}
}

// Paths returns the recorded paths in insertion order.
func (c *FileChangeSet) Paths() []string {
	paths := make([]string, 0, c.files.Len())
	for pair := c.files.Oldest(); pair != nil; pair = pair.Next() {
		paths = append(paths, pair.Key)
	}
	return paths
}

// Len returns the number of recorded paths.
func (c *FileChangeSet) Len() int {
	return c.files.Len()
}

// Each calls fn for every entry in insertion order.
func (c *FileChangeSet) Each(fn func(path, content string)) {
	for pair := c.files.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// MarshalJSON encodes the set as a JSON object in insertion order.
func (c *FileChangeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.files)
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (c *FileChangeSet) UnmarshalJSON(data []byte) error {
	files := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, files); err != nil {
		return err
	}
	c.files = files
	return nil
}

// String returns the JSON encoding, or "{}" if encoding fails.
func (c *FileChangeSet) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}
