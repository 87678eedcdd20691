// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package diffviewer

import (
	"testing"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const svnDiff = `Index: trunk/main.c
===================================================================
--- trunk/main.c	(revision 12)
+++ trunk/main.c	(working copy)
@@ -1,5 +1,5 @@
 #include <stdio.h>
-int main() {
+int main(void) {
     printf("hi\n");
-    return 1;
+    return 0;
 }
`

const gitDiff = `diff --git a/README b/README
index 1234567..89abcde 100644
--- a/README
+++ b/README
@@ -1,2 +1,3 @@
 hello
+there
 world
diff --git a/NEW b/NEW
new file mode 100644
index 0000000..fedcba9
--- /dev/null
+++ b/NEW
@@ -0,0 +1 @@
+new file
diff --git a/logo.png b/logo.png
index 1111111..2222222 100644
Binary files a/logo.png and b/logo.png differ
`

func TestParseSubversion(t *testing.T) {
	files, err := Parser{}.Parse([]byte(svnDiff))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "trunk/main.c", files[0].SourceFile)
	assert.Equal(t, "trunk/main.c", files[0].DestFile)
	assert.Equal(t, "12", files[0].SourceRevision)
	assert.Equal(t, "(working copy)", files[0].DestDetail)
	assert.False(t, files[0].Binary)
	assert.Contains(t, string(files[0].Data), "+int main(void) {")
}

func TestParseGit(t *testing.T) {
	files, err := Parser{}.Parse([]byte(gitDiff))
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "README", files[0].SourceFile)
	assert.Equal(t, "README", files[0].DestFile)
	assert.Equal(t, "1234567", files[0].SourceRevision)
	assert.Equal(t, "89abcde", files[0].DestDetail)

	assert.Equal(t, "NEW", files[1].SourceFile)
	assert.Equal(t, PreCreation, files[1].SourceRevision)

	assert.True(t, files[2].Binary)
}

func TestParseEmpty(t *testing.T) {
	files, err := Parser{}.Parse(nil)
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestStripRevisionsLeavesBody(t *testing.T) {
	// A deleted line that itself starts with "-- " is not a header.
	raw := "--- a\n+++ b\n@@ -1 +1 @@\n--- comment\t x\n+new\n"
	cleaned, revs := stripRevisions([]byte(raw))
	assert.Equal(t, raw, string(cleaned))
	assert.Empty(t, revs)
}

func TestRender(t *testing.T) {
	files, err := Parser{}.Parse([]byte(svnDiff))
	require.NoError(t, err)
	fd := &reviews.FileDiff{
		SourceFile:     files[0].SourceFile,
		SourceRevision: files[0].SourceRevision,
		Diff:           files[0].Data,
	}
	data, err := Renderer{}.Render(&reviews.DiffSet{}, fd, true)
	require.NoError(t, err)

	assert.True(t, data.Highlighted)
	assert.False(t, data.Binary)
	assert.False(t, data.NewFile)
	assert.Equal(t, 2, data.NumChanges)
	assert.Equal(t, []int{1, 3}, data.ChangedChunkIndexes)
	if assert.Len(t, data.Chunks, 5) {
		assert.Equal(t, reviews.ChangeEqual, data.Chunks[0].Change)
		replace := data.Chunks[1]
		assert.Equal(t, reviews.ChangeReplace, replace.Change)
		if assert.Len(t, replace.Lines, 1) {
			line := replace.Lines[0]
			assert.Equal(t, 2, line.Row)
			assert.Equal(t, 2, line.OldLineNum)
			assert.Equal(t, "int main() {", line.OldText)
			assert.Equal(t, 2, line.NewLineNum)
			assert.Equal(t, "int main(void) {", line.NewText)
		}
		last := data.Chunks[4]
		assert.Equal(t, reviews.ChangeEqual, last.Change)
		assert.Equal(t, 5, last.Lines[0].OldLineNum)
	}
}

func TestRenderInsertOnly(t *testing.T) {
	files, err := Parser{}.Parse([]byte(gitDiff))
	require.NoError(t, err)
	fd := &reviews.FileDiff{SourceRevision: PreCreation, Diff: files[1].Data}
	data, err := Renderer{}.Render(&reviews.DiffSet{}, fd, false)
	require.NoError(t, err)
	assert.True(t, data.NewFile)
	if assert.Len(t, data.Chunks, 1) {
		assert.Equal(t, reviews.ChangeInsert, data.Chunks[0].Change)
		assert.Equal(t, 1, data.Chunks[0].Lines[0].NewLineNum)
		assert.Equal(t, 0, data.Chunks[0].Lines[0].OldLineNum)
	}
}

func TestRenderBinary(t *testing.T) {
	data, err := Renderer{}.Render(&reviews.DiffSet{}, &reviews.FileDiff{Binary: true}, false)
	require.NoError(t, err)
	assert.True(t, data.Binary)
	assert.Empty(t, data.Chunks)
}

func TestPatchFilename(t *testing.T) {
	ds := &reviews.DiffSet{Name: "diff", Revision: 2}
	assert.Equal(t, "bug12_34.patch", PatchFilename(ds, []string{"12", "34"}))
	assert.Equal(t, "diff-r2.patch", PatchFilename(ds, nil))
	ds.Name = "/tmp/fix.diff"
	assert.Equal(t, "fix.diff", PatchFilename(ds, nil))
	assert.Equal(t, "main.c.patch", FilePatchFilename(&reviews.FileDiff{SourceFile: "trunk/main.c"}))
}

func TestPatch(t *testing.T) {
	patch := Patch([]*reviews.FileDiff{
		{Diff: []byte("a\n")},
		{Diff: []byte("b")},
	})
	assert.Equal(t, "a\nb\n", string(patch))
}
