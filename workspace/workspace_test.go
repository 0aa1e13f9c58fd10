package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T, opts ...Option) *Workspace {
	t.Helper()
	ws, err := New(filepath.Join(t.TempDir(), "user_project"), opts...)
	require.NoError(t, err)
	return ws
}

func writeFile(t *testing.T, ws *Workspace, rel, content string) {
	t.Helper()
	full := filepath.Join(ws.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestNewCreatesRoot(t *testing.T) {
	ws := newTestWorkspace(t)
	info, err := os.Stat(ws.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "user_project", ws.Name())
}

func TestReadExistingFile(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "app/page.tsx", "export default function Page() {}\n")

	assert.Equal(t, "export default function Page() {}\n", ws.Read("app/page.tsx"))
}

func TestReadMissingFile(t *testing.T) {
	ws := newTestWorkspace(t)
	assert.Equal(t, "File 'missing.txt' does not exist.", ws.Read("missing.txt"))
}

func TestReadDirectoryReportsError(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "app"), 0755))

	assert.True(t, strings.HasPrefix(ws.Read("app"), "Error reading file: "))
}

func TestWriteCreatesParentsAndReturnsContent(t *testing.T) {
	ws := newTestWorkspace(t)

	got := ws.Write("a/b/c.txt", "hello")
	assert.Equal(t, "hello", got)

	data, err := os.ReadFile(filepath.Join(ws.Root(), "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "hello", ws.Read("a/b/c.txt"))
}

func TestWriteOverwrites(t *testing.T) {
	ws := newTestWorkspace(t)
	ws.Write("x.txt", "first")
	ws.Write("x.txt", "second")
	assert.Equal(t, "second", ws.Read("x.txt"))
}

func TestWriteFailureIsString(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "blocker", "i am a file")

	got := ws.Write("blocker/child.txt", "x")
	assert.True(t, strings.HasPrefix(got, "Error editing file: "), got)
}

func TestPathsOutsideRootAreRefused(t *testing.T) {
	ws := newTestWorkspace(t)
	outside := filepath.Join(filepath.Dir(ws.Root()), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))

	for _, p := range []string{"../secret.txt", outside, "a/../../secret.txt"} {
		got := ws.Read(p)
		assert.True(t, strings.HasPrefix(got, "Error reading file: "), got)
		assert.Contains(t, got, ErrOutsideRoot.Error())

		got = ws.Write(p, "overwritten")
		assert.True(t, strings.HasPrefix(got, "Error editing file: "), got)
	}

	data, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(data))
}

func TestResolveAcceptsAbsolutePathInsideRoot(t *testing.T) {
	ws := newTestWorkspace(t)
	inside := filepath.Join(ws.Root(), "app", "x.ts")

	got, err := ws.Resolve(inside)
	require.NoError(t, err)
	assert.Equal(t, inside, got)

	got, err = ws.Resolve("app/../app/x.ts")
	require.NoError(t, err)
	assert.Equal(t, inside, got)
}

func TestSymlinkOutOfRootIsRefused(t *testing.T) {
	ws := newTestWorkspace(t)
	outside := filepath.Join(filepath.Dir(ws.Root()), "outside")
	require.NoError(t, os.MkdirAll(outside, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("outside"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(ws.Root(), "link")))

	got := ws.Read("link/secret.txt")
	assert.True(t, strings.HasPrefix(got, "Error reading file: "), got)
	assert.Contains(t, got, ErrOutsideRoot.Error())
	assert.False(t, ws.Exists("link/secret.txt"))

	got = ws.Write("link/pwned.txt", "x")
	assert.True(t, strings.HasPrefix(got, "Error editing file: "), got)
	_, err := os.Stat(filepath.Join(outside, "pwned.txt"))
	assert.True(t, os.IsNotExist(err))

	got = ws.Write("link/new/dir/file.txt", "x")
	assert.True(t, strings.HasPrefix(got, "Error editing file: "), got)
	_, err = os.Stat(filepath.Join(outside, "new"))
	assert.True(t, os.IsNotExist(err))
}

func TestDanglingSymlinkIsRefused(t *testing.T) {
	ws := newTestWorkspace(t)
	target := filepath.Join(filepath.Dir(ws.Root()), "created.txt")
	require.NoError(t, os.Symlink(target, filepath.Join(ws.Root(), "dangling.txt")))

	got := ws.Write("dangling.txt", "x")
	assert.True(t, strings.HasPrefix(got, "Error editing file: "), got)
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestSymlinkInsideRootIsAllowed(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "real/a.txt", "inside")
	require.NoError(t, os.Symlink(filepath.Join(ws.Root(), "real"), filepath.Join(ws.Root(), "alias")))

	assert.Equal(t, "inside", ws.Read("alias/a.txt"))
	assert.Equal(t, "y", ws.Write("alias/b.txt", "y"))
	assert.Equal(t, "y", ws.Read("real/b.txt"))
}

func TestSymlinkedRootWorks(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.MkdirAll(real, 0755))
	require.NoError(t, os.Symlink(real, filepath.Join(dir, "project")))

	ws, err := New(filepath.Join(dir, "project"))
	require.NoError(t, err)
	assert.Equal(t, "hi", ws.Write("src/a.txt", "hi"))
	data, err := os.ReadFile(filepath.Join(real, "src", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestExists(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.txt", "")
	writeFile(t, ws, "dir/b.txt", "")
	assert.True(t, ws.Exists("a.txt"))
	assert.False(t, ws.Exists("b.txt"))
	assert.False(t, ws.Exists("../a.txt"))
	assert.False(t, ws.Exists("dir"), "directories are not files")
}

func TestTreeRendering(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "app/page.tsx", "")
	writeFile(t, ws, "app/api/route.ts", "")
	writeFile(t, ws, "package.json", "{}")
	writeFile(t, ws, "lib/util.ts", "")

	expected := "" +
		"├── app\n" +
		"│   ├── api\n" +
		"│   │   └── route.ts\n" +
		"│   └── page.tsx\n" +
		"├── lib\n" +
		"│   └── util.ts\n" +
		"└── package.json\n"
	assert.Equal(t, expected, ws.Tree())
}

func TestTreeSkipsIgnoredDirectories(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "index.js", "")
	writeFile(t, ws, "node_modules/react/index.js", "")
	writeFile(t, ws, ".git/HEAD", "")
	writeFile(t, ws, ".next/cache/x", "")
	writeFile(t, ws, "__pycache__/x.pyc", "")

	assert.Equal(t, "└── index.js\n", ws.Tree())
}

func TestTreeLastConnectorIgnoresHiddenSiblings(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "app/a.ts", "")
	writeFile(t, ws, "zz/node_modules/x", "")
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "node_modules"), 0755))

	expected := "" +
		"├── app\n" +
		"│   └── a.ts\n" +
		"└── zz\n"
	assert.Equal(t, expected, ws.Tree())
}

func TestTreeCustomIgnore(t *testing.T) {
	ws := newTestWorkspace(t, WithIgnore("dist"))
	writeFile(t, ws, "dist/out.js", "")
	writeFile(t, ws, "node_modules/x.js", "")

	assert.Equal(t, "└── node_modules\n    └── x.js\n", ws.Tree())
}

func TestTreeEmptyProject(t *testing.T) {
	ws := newTestWorkspace(t)
	assert.Equal(t, "", ws.Tree())
}

func TestRenderTreeDeepNesting(t *testing.T) {
	root := t.TempDir()
	parts := make([]string, 200)
	for i := range parts {
		parts[i] = "d"
	}
	deep := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(deep, 0755))

	tree, err := RenderTree(root, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, strings.Count(tree, "\n"))
	assert.True(t, strings.HasSuffix(tree, strings.Repeat(indentLast, 199)+branchLast+"d\n"))
}

func TestRenderTreeMissingRoot(t *testing.T) {
	_, err := RenderTree(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestWatchInvalidatesCachedTree(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.txt", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ws.Watch(ctx))

	assert.Equal(t, "└── a.txt\n", ws.Tree())
	ws.mu.Lock()
	assert.True(t, ws.treeOK)
	ws.mu.Unlock()

	writeFile(t, ws, "b.txt", "")
	require.Eventually(t, func() bool {
		return ws.Tree() == "├── a.txt\n└── b.txt\n"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWriteInvalidatesCachedTree(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ws.Watch(ctx))

	assert.Equal(t, "", ws.Tree())
	ws.Write("new.txt", "x")
	assert.Equal(t, "└── new.txt\n", ws.Tree())
}
