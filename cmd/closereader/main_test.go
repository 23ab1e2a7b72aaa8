package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeJSON = `{
  "rootId": "root-node",
  "nodes": {
    "root-node": {"id": "root-node", "type": "THESIS", "content": "T", "children": ["c1"]},
    "c1": {"id": "c1", "type": "CLAIM", "content": "C", "parentId": "root-node", "children": ["e1"]},
    "e1": {"id": "e1", "type": "EVIDENCE", "content": "E", "parentId": "c1", "children": []}
  }
}`

const treeYAML = `rootId: root-node
nodes:
  root-node: {id: root-node, type: THESIS, content: T, children: [c1]}
  c1: {id: c1, type: CLAIM, content: C, parentId: root-node, children: [e1]}
  e1: {id: e1, type: EVIDENCE, content: E, parentId: c1, children: []}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOutline_JSONAndYAML(t *testing.T) {
	want := "Thesis: T\n\nBody Paragraph: C\n  - Evidence: E\n"

	out, err := run(t, "outline", writeFile(t, "tree.json", treeJSON))
	require.NoError(t, err)
	assert.Equal(t, want, out)

	out, err = run(t, "outline", writeFile(t, "tree.yaml", treeYAML))
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestOutline_MissingRoot(t *testing.T) {
	_, err := run(t, "outline", writeFile(t, "tree.json", `{"rootId": "nope", "nodes": {}}`))
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	path := writeFile(t, "speech.txt", "Four score and seven years ago our fathers brought forth")

	out, err := run(t, "paginate", path, "--size", "20", "--page", "1")
	require.NoError(t, err)
	assert.Equal(t, "seven years ago our ", out)

	out, err = run(t, "paginate", path, "--size", "20", "--page", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "--- page 1/4 (starts at 0) ---\nFour score and \n")
	assert.Contains(t, out, "--- page 4/4 (starts at 51) ---\nforth\n")

	_, err = run(t, "paginate", path, "--size", "20", "--page", "9")
	assert.Error(t, err)
}
