// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package diffviewer

import (
	"bytes"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/sourcegraph/go-diff/diff"
)

// collapseThreshold is the size above which an unchanged chunk may
// be collapsed by a viewer.
const collapseThreshold = 8

// Renderer is a reviews.DiffRenderer that walks the hunks of a stored
// file diff.  Only the lines present in the diff are rendered.
type Renderer struct{}

// Render produces chunk data for one file diff.  highlight is
// recorded in the result; no highlighting is applied.
func (Renderer) Render(ds *reviews.DiffSet, fd *reviews.FileDiff, highlight bool) (*reviews.DiffData, error) {
	data := &reviews.DiffData{
		Binary:              fd.Binary,
		NewFile:             fd.IsNew(),
		Highlighted:         highlight,
		ChangedChunkIndexes: []int{},
		Chunks:              []reviews.DiffChunk{},
	}
	if fd.Binary || len(fd.Diff) == 0 {
		return data, nil
	}
	parsed, err := diff.ParseFileDiff(fd.Diff)
	if err != nil {
		return nil, err
	}

	b := &chunkBuilder{data: data}
	for _, hunk := range parsed.Hunks {
		oldLine, newLine := int(hunk.OrigStartLine), int(hunk.NewStartLine)
		var deleted, inserted []string
		flush := func() {
			b.addChanges(deleted, inserted, &oldLine, &newLine)
			deleted, inserted = nil, nil
		}
		for _, line := range bytes.Split(bytes.TrimSuffix(hunk.Body, []byte("\n")), []byte("\n")) {
			if len(line) == 0 {
				line = []byte(" ")
			}
			text := string(line[1:])
			switch line[0] {
			case '-':
				if len(inserted) > 0 {
					flush()
				}
				deleted = append(deleted, text)
			case '+':
				inserted = append(inserted, text)
			case '\\':
				// "\ No newline at end of file"
			default:
				flush()
				b.add(reviews.ChangeEqual, reviews.DiffLine{
					OldLineNum: oldLine,
					OldText:    text,
					NewLineNum: newLine,
					NewText:    text,
				})
				oldLine++
				newLine++
			}
		}
		flush()
		b.close()
	}
	return data, nil
}

// chunkBuilder accumulates rendered lines into chunks of one change
// type.
type chunkBuilder struct {
	data    *reviews.DiffData
	current *reviews.DiffChunk
	row     int
}

func (b *chunkBuilder) add(change string, line reviews.DiffLine) {
	if b.current != nil && b.current.Change != change {
		b.close()
	}
	if b.current == nil {
		b.current = &reviews.DiffChunk{
			Index:  len(b.data.Chunks),
			Change: change,
		}
	}
	b.row++
	line.Row = b.row
	b.current.Lines = append(b.current.Lines, line)
}

// addChanges renders a run of deleted lines followed by a run of
// inserted lines.  Lines are paired up as replacements; any excess
// on either side is a plain delete or insert.
func (b *chunkBuilder) addChanges(deleted, inserted []string, oldLine, newLine *int) {
	paired := len(deleted)
	if len(inserted) < paired {
		paired = len(inserted)
	}
	for i := 0; i < paired; i++ {
		b.add(reviews.ChangeReplace, reviews.DiffLine{
			OldLineNum: *oldLine,
			OldText:    deleted[i],
			NewLineNum: *newLine,
			NewText:    inserted[i],
		})
		*oldLine++
		*newLine++
	}
	for _, text := range deleted[paired:] {
		b.add(reviews.ChangeDelete, reviews.DiffLine{OldLineNum: *oldLine, OldText: text})
		*oldLine++
	}
	for _, text := range inserted[paired:] {
		b.add(reviews.ChangeInsert, reviews.DiffLine{NewLineNum: *newLine, NewText: text})
		*newLine++
	}
}

func (b *chunkBuilder) close() {
	if b.current == nil {
		return
	}
	c := *b.current
	b.current = nil
	if c.Change == reviews.ChangeEqual {
		c.Collapse = len(c.Lines) > collapseThreshold
	} else {
		b.data.NumChanges++
		b.data.ChangedChunkIndexes = append(b.data.ChangedChunkIndexes, c.Index)
	}
	b.data.Chunks = append(b.data.Chunks, c)
}
