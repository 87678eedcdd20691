// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package diffviewer parses uploaded unified diffs into per-file
// records and renders stored file diffs as structured chunk data.
package diffviewer

import (
	"bytes"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/sourcegraph/go-diff/diff"
)

// PreCreation is the source revision of a file that a diff creates.
const PreCreation = "PRE-CREATION"

// Parser is a reviews.DiffParser for unified diffs, including the
// extended headers git writes.
type Parser struct{}

// Parse splits a multi-file diff into one record per file.
//
// Unified diff headers may carry a revision after a tab, as in
// "--- foo.c\t(revision 12)"; these become the source revision and
// destination detail.  For git diffs the blob hashes on the "index"
// line are used instead.
func (Parser) Parse(raw []byte) ([]reviews.ParsedFile, error) {
	cleaned, revisions := stripRevisions(raw)
	fds, err := diff.ParseMultiFileDiff(cleaned)
	if err != nil {
		return nil, err
	}
	files := make([]reviews.ParsedFile, 0, len(fds))
	for _, fd := range fds {
		data, err := diff.PrintFileDiff(fd)
		if err != nil {
			return nil, err
		}
		pf := reviews.ParsedFile{
			SourceFile: fd.OrigName,
			DestFile:   fd.NewName,
			Binary:     isBinary(fd),
			Data:       data,
		}
		git := isGit(fd)
		if git {
			pf.SourceFile = strings.TrimPrefix(pf.SourceFile, "a/")
			pf.DestFile = strings.TrimPrefix(pf.DestFile, "b/")
		}
		if rev, ok := revisions["--- "+fd.OrigName]; ok {
			pf.SourceRevision = svnRevision(rev)
		}
		if rev, ok := revisions["+++ "+fd.NewName]; ok {
			pf.DestDetail = rev
		}
		if git {
			if from, to, ok := gitIndex(fd); ok {
				pf.SourceRevision, pf.DestDetail = from, to
			}
		}
		if fd.OrigName == "/dev/null" {
			pf.SourceFile = pf.DestFile
			pf.SourceRevision = PreCreation
		}
		if pf.SourceRevision == "" {
			pf.SourceRevision = "HEAD"
		}
		files = append(files, pf)
	}
	return files, nil
}

// stripRevisions removes anything after a tab on "---" and "+++"
// header lines, since those are not always timestamps.  It returns
// the cleaned diff and the removed text keyed by the cleaned header
// line.
func stripRevisions(raw []byte) ([]byte, map[string]string) {
	lines := bytes.SplitAfter(raw, []byte("\n"))
	revisions := make(map[string]string)
	for i := 0; i+1 < len(lines); i++ {
		if !bytes.HasPrefix(lines[i], []byte("--- ")) || !bytes.HasPrefix(lines[i+1], []byte("+++ ")) {
			continue
		}
		for j := i; j <= i+1; j++ {
			line := strings.TrimRight(string(lines[j]), "\r\n")
			tab := strings.IndexByte(line, '\t')
			if tab < 0 {
				continue
			}
			revisions[line[:tab]] = strings.TrimSpace(line[tab+1:])
			lines[j] = []byte(line[:tab] + "\n")
		}
		i++
	}
	return bytes.Join(lines, nil), revisions
}

// svnRevision extracts N from "(revision N)".  "(working copy)" is
// HEAD.  Anything else is returned unchanged.
func svnRevision(s string) string {
	switch {
	case strings.HasPrefix(s, "(revision ") && strings.HasSuffix(s, ")"):
		return strings.TrimSuffix(strings.TrimPrefix(s, "(revision "), ")")
	case s == "(working copy)":
		return "HEAD"
	}
	return s
}

func isGit(fd *diff.FileDiff) bool {
	for _, line := range fd.Extended {
		if strings.HasPrefix(line, "diff --git ") {
			return true
		}
	}
	return false
}

// gitIndex reads the blob hashes from an "index abc..def" line.
func gitIndex(fd *diff.FileDiff) (from, to string, ok bool) {
	for _, line := range fd.Extended {
		if !strings.HasPrefix(line, "index ") {
			continue
		}
		fields := strings.Fields(line)
		hashes := strings.SplitN(fields[1], "..", 2)
		if len(hashes) == 2 {
			return hashes[0], hashes[1], true
		}
	}
	return "", "", false
}

func isBinary(fd *diff.FileDiff) bool {
	for _, line := range fd.Extended {
		if strings.HasPrefix(line, "Binary files ") || line == "GIT binary patch" {
			return true
		}
	}
	return false
}
