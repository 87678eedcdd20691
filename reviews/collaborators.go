// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviews

import (
	"context"
	"io"
	"time"
)

// ParsedFile is one file extracted from an uploaded diff.
type ParsedFile struct {
	SourceFile     string
	DestFile       string
	SourceRevision string
	DestDetail     string
	Binary         bool
	Data           []byte
}

// DiffParser splits an uploaded unified diff into per-file records.
type DiffParser interface {
	Parse(raw []byte) ([]ParsedFile, error)
}

// Chunk change types.
const (
	ChangeEqual   = "equal"
	ChangeInsert  = "insert"
	ChangeDelete  = "delete"
	ChangeReplace = "replace"
)

// DiffLine is one rendered row of a diff chunk.  Line numbers are
// zero where a side has no line.
type DiffLine struct {
	Row        int    `codec:"row" xml:"row"`
	OldLineNum int    `codec:"old_line_num" xml:"old_line_num"`
	OldText    string `codec:"old_text" xml:"old_text"`
	NewLineNum int    `codec:"new_line_num" xml:"new_line_num"`
	NewText    string `codec:"new_text" xml:"new_text"`
}

// DiffChunk is a run of lines that share a change type.
type DiffChunk struct {
	Index    int        `codec:"index" xml:"index"`
	Change   string     `codec:"change" xml:"change"`
	Collapse bool       `codec:"collapsable" xml:"collapsable"`
	Lines    []DiffLine `codec:"lines" xml:"lines"`
}

// DiffData is the structured rendering of one file diff.
type DiffData struct {
	Binary              bool        `codec:"binary" xml:"binary"`
	NewFile             bool        `codec:"new_file" xml:"new_file"`
	NumChanges          int         `codec:"num_changes" xml:"num_changes"`
	ChangedChunkIndexes []int       `codec:"changed_chunk_indexes" xml:"changed_chunk_indexes"`
	Chunks              []DiffChunk `codec:"chunks" xml:"chunks"`
	Highlighted         bool        `codec:"syntax_highlighting" xml:"syntax_highlighting"`
}

// DiffRenderer produces structured diff data for a file diff.
type DiffRenderer interface {
	Render(ds *DiffSet, fd *FileDiff, highlight bool) (*DiffData, error)
}

// UserResolver finds a user by name, possibly creating the account
// from an outside authentication source.  It returns nil and no
// error if the user is unknown.
type UserResolver interface {
	ResolveOrCreateUser(username string) (*User, error)
}

// Changeset describes a change known to a repository tool.
type Changeset struct {
	ChangeNum   int
	Summary     string
	Description string
	TestingDone string
	Branch      string
	BugsClosed  []string
	Files       []string
}

// SCMTool talks to the service hosting a repository.  Operations the
// tool cannot perform return ErrNotImplemented.
type SCMTool interface {
	// Changeset returns the change with a given number.  It
	// returns ErrInvalidChangeNumber if there is none.
	Changeset(ctx context.Context, repo *Repository, changenum int) (*Changeset, error)
	// FileExists checks whether a file exists at a revision.
	FileExists(ctx context.Context, repo *Repository, path, revision string) (bool, error)
	// Info returns tool-specific information about the
	// repository.
	Info(ctx context.Context, repo *Repository) (map[string]interface{}, error)
}

// FileStorage holds uploaded files such as screenshot images.
type FileStorage interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Event types sent to a Notifier.
const (
	EventReviewRequestPublished = "review_request_published"
	EventReviewRequestClosed    = "review_request_closed"
	EventReviewRequestReopened  = "review_request_reopened"
	EventReviewPublished        = "review_published"
	EventReplyPublished         = "reply_published"
)

// Event describes a publication or status change.
type Event struct {
	Type            string
	Actor           string
	ReviewRequestID int
	ReviewID        int
	// Targets lists the users and groups to tell about the event.
	Targets   []string
	Timestamp time.Time
}

// Notifier delivers events to interested parties.
type Notifier interface {
	Notify(event Event)
}
