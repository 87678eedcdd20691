// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package diffviewer

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
)

// Patch concatenates the stored diffs of some files into one patch.
func Patch(files []*reviews.FileDiff) []byte {
	var buf bytes.Buffer
	for _, fd := range files {
		buf.Write(fd.Diff)
		if len(fd.Diff) > 0 && fd.Diff[len(fd.Diff)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// PatchFilename chooses a download name for the patch of a diff.
// A diff uploaded under the generic name "diff" is named after the
// bugs it closes, if any.
func PatchFilename(ds *reviews.DiffSet, bugs []string) string {
	name := path.Base(ds.Name)
	if name == "diff" || name == "." || name == "/" || name == "" {
		if len(bugs) > 0 {
			return fmt.Sprintf("bug%s.patch", strings.Join(bugs, "_"))
		}
		return fmt.Sprintf("diff-r%d.patch", ds.Revision)
	}
	return name
}

// FilePatchFilename names the patch of one file diff.
func FilePatchFilename(fd *reviews.FileDiff) string {
	return path.Base(fd.SourceFile) + ".patch"
}
