// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package reviews defines the abstract domain of the review service:
// review requests and their drafts, diffs, screenshots, reviews,
// replies, comments, and the users, groups and repositories they refer
// to.
//
// Persistence is provided by an implementation of the Store interface
// (see the memory and postgres packages).  Other outside services the
// domain depends on (diff parsing and rendering, repository tools, user
// resolution, file storage, notification) are described by the small
// interfaces in collaborators.go.  Business rules live in the workflow
// package; this package holds only data, errors, and pure helpers.
//
// # Object Model
//
// A ReviewRequest is created private and pending.  All of its
// user-editable content is changed through its Draft, of which there is
// at most one at a time; publishing the draft copies its content onto
// the review request and makes it public.
//
// A Review belongs to one review request.  A Review whose BaseReplyToID
// is set is a reply to that review.  Reviews start private and become
// public exactly once; public reviews and their comments never change
// again.
package reviews

import (
	"strings"
	"time"
)

// Kind identifies the type of a domain object.  It is the tag used by
// the web layer to pick the resource that serializes an object.
type Kind int

// The kinds of domain object.
const (
	KindUnknown Kind = iota
	KindUser
	KindGroup
	KindRepository
	KindReviewRequest
	KindDraft
	KindDiffSet
	KindFileDiff
	KindScreenshot
	KindDraftScreenshot
	KindReview
	KindReply
	KindDiffComment
	KindReplyDiffComment
	KindScreenshotComment
	KindReplyScreenshotComment
	KindLastUpdate
	KindWatchedGroup
	KindWatchedReviewRequest
)

var kindNames = map[Kind]string{
	KindUser:                   "user",
	KindGroup:                  "group",
	KindRepository:             "repository",
	KindReviewRequest:          "review_request",
	KindDraft:                  "draft",
	KindDiffSet:                "diff",
	KindFileDiff:               "file",
	KindScreenshot:             "screenshot",
	KindDraftScreenshot:        "draft_screenshot",
	KindReview:                 "review",
	KindReply:                  "reply",
	KindDiffComment:            "diff_comment",
	KindReplyDiffComment:       "diff_comment",
	KindScreenshotComment:      "screenshot_comment",
	KindReplyScreenshotComment: "screenshot_comment",
	KindLastUpdate:             "last_update",
	KindWatchedGroup:           "watched_review_group",
	KindWatchedReviewRequest:   "watched_review_request",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Object is implemented by every domain type that the web layer can
// serialize.
type Object interface {
	Kind() Kind
}

// Permission names understood by User.HasPerm.
const (
	PermCanEditReviewRequest   = "reviews.can_edit_reviewrequest"
	PermCanChangeStatus        = "reviews.can_change_status"
	PermDeleteReviewRequest    = "reviews.delete_reviewrequest"
	PermCanSubmitAsAnotherUser = "reviews.can_submit_as_another_user"
)

// User is an account known to the system.
type User struct {
	ID          int      `field:"id"`
	Username    string   `field:"username"`
	FirstName   string   `field:"first_name"`
	LastName    string   `field:"last_name"`
	Email       string   `field:"email"`
	IsSuperuser bool     `field:"-"`
	Permissions []string `field:"-"`

	// PasswordHash is a bcrypt hash; empty means the account
	// cannot log in with a password.
	PasswordHash string `field:"-"`
}

// Kind returns KindUser.
func (u *User) Kind() Kind { return KindUser }

// FullName returns the user's first and last name separated by a
// space, or an empty string if neither is set.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasPerm returns true if the user has been granted a permission.
// Superusers have every permission; a nil user has none.
func (u *User) HasPerm(perm string) bool {
	if u == nil {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Is returns true if u is non-nil and has the given username.
func (u *User) Is(username string) bool {
	return u != nil && u.Username == username
}

// Group is a named set of reviewers.
type Group struct {
	ID          int      `field:"id"`
	Name        string   `field:"name"`
	DisplayName string   `field:"display_name"`
	MailingList string   `field:"mailing_list"`
	InviteOnly  bool     `field:"invite_only"`
	Visible     bool     `field:"visible"`
	Members     []string `field:"-"`
}

// Kind returns KindGroup.
func (g *Group) Kind() Kind { return KindGroup }

// HasMember returns true if username is a member of the group.
func (g *Group) HasMember(username string) bool {
	for _, m := range g.Members {
		if m == username {
			return true
		}
	}
	return false
}

// Repository is a source code repository that review requests are
// made against.
type Repository struct {
	ID         int    `field:"id"`
	Name       string `field:"name"`
	Path       string `field:"path"`
	MirrorPath string `field:"-"`
	// Tool names the repository tool, e.g. "github" or "gitlab".
	Tool   string `field:"tool"`
	Public bool   `field:"-"`
	// Users lists usernames allowed to see a non-public repository.
	Users []string `field:"-"`
}

// Kind returns KindRepository.
func (r *Repository) Kind() Kind { return KindRepository }

// Status is the lifecycle status of a review request.
type Status string

// Review request statuses.  StatusAll is only meaningful as a query
// value.
const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusDiscarded Status = "discarded"
	StatusAll       Status = "all"
)

// ChangeDescription records the text attached to one publication of
// an already-public review request.
type ChangeDescription struct {
	ID        int
	Text      string
	Timestamp time.Time
}

// ReviewRequest is a request for review of one change.
type ReviewRequest struct {
	ID           int    `field:"id"`
	Submitter    string `field:"-"`
	RepositoryID int    `field:"-"`
	// ChangeNum is a repository-specific change number, or 0.
	ChangeNum   int       `field:"-"`
	Status      Status    `field:"status"`
	Public      bool      `field:"public"`
	TimeAdded   time.Time `field:"time_added"`
	LastUpdated time.Time `field:"last_updated"`
	Summary     string    `field:"summary"`
	Description string    `field:"description"`
	TestingDone string    `field:"testing_done"`
	Branch      string    `field:"branch"`
	BugsClosed  []string  `field:"bugs_closed"`
	// TargetGroups holds group names.
	TargetGroups []string `field:"-"`
	// TargetPeople holds usernames.
	TargetPeople []string            `field:"-"`
	Changes      []ChangeDescription `field:"-"`
}

// Kind returns KindReviewRequest.
func (rr *ReviewRequest) Kind() Kind { return KindReviewRequest }

// Draft is the single pending, private edit buffer of a review
// request.
type Draft struct {
	ID              int       `field:"id"`
	ReviewRequestID int       `field:"-"`
	LastUpdated     time.Time `field:"last_updated"`
	Summary         string    `field:"summary"`
	Description     string    `field:"description"`
	TestingDone     string    `field:"testing_done"`
	Branch          string    `field:"branch"`
	BugsClosed      []string  `field:"bugs_closed"`
	TargetGroups    []string  `field:"-"`
	TargetPeople    []string  `field:"-"`

	// ChangeDescription is only meaningful if
	// HasChangeDescription, which is set when the draft was
	// created for an already-public review request.
	ChangeDescription    string `field:"-"`
	HasChangeDescription bool   `field:"-"`

	// DiffSetID is the pending, unpublished diff, or 0.
	DiffSetID int `field:"-"`
	// ScreenshotIDs is the set of screenshots that will be active
	// once the draft is published.
	ScreenshotIDs []int `field:"-"`
}

// Kind returns KindDraft.
func (d *Draft) Kind() Kind { return KindDraft }

// HasScreenshot returns true if id is in the draft's screenshot set.
func (d *Draft) HasScreenshot(id int) bool {
	for _, s := range d.ScreenshotIDs {
		if s == id {
			return true
		}
	}
	return false
}

// DiffSet is one uploaded revision of a change.  A diffset with a zero
// Revision is pending in a draft.
type DiffSet struct {
	ID              int       `field:"id"`
	ReviewRequestID int       `field:"-"`
	Name            string    `field:"name"`
	Revision        int       `field:"revision"`
	Timestamp       time.Time `field:"timestamp"`
	RepositoryID    int       `field:"-"`
	BaseDir         string    `field:"-"`
}

// Kind returns KindDiffSet.
func (ds *DiffSet) Kind() Kind { return KindDiffSet }

// Published returns true if the diffset has been attached to its
// review request's history.
func (ds *DiffSet) Published() bool {
	return ds.Revision > 0
}

// FileDiff is the change to one file within a DiffSet.
type FileDiff struct {
	ID             int    `field:"id"`
	DiffSetID      int    `field:"-"`
	SourceFile     string `field:"source_file"`
	DestFile       string `field:"dest_file"`
	SourceRevision string `field:"source_revision"`
	DestDetail     string `field:"dest_detail"`
	Binary         bool   `field:"-"`
	// Diff holds the raw unified diff text for this file.
	Diff []byte `field:"-"`
}

// Kind returns KindFileDiff.
func (fd *FileDiff) Kind() Kind { return KindFileDiff }

// IsNew returns true if the file did not exist before the change.
func (fd *FileDiff) IsNew() bool {
	return fd.SourceRevision == "PRE-CREATION"
}

// Screenshot is an uploaded image attached to a review request.
type Screenshot struct {
	ID              int    `field:"id"`
	ReviewRequestID int    `field:"-"`
	Caption         string `field:"caption"`
	DraftCaption    string `field:"-"`
	// Path is the storage key of the image.
	Path string `field:"path"`
	// Active is true once the screenshot has been published.
	Active bool `field:"-"`
}

// Kind returns KindScreenshot.
func (s *Screenshot) Kind() Kind { return KindScreenshot }

// DraftScreenshot is the draft view of a screenshot, whose caption is
// the pending caption if one has been set.
type DraftScreenshot struct {
	*Screenshot
}

// Kind returns KindDraftScreenshot.
func (s DraftScreenshot) Kind() Kind { return KindDraftScreenshot }

// DraftCaptionOrCaption returns the caption the screenshot will have
// after publication.
func (s *Screenshot) DraftCaptionOrCaption() string {
	if s.DraftCaption != "" {
		return s.DraftCaption
	}
	return s.Caption
}

// Review is a review of a review request, or a reply to another
// review.
type Review struct {
	ID              int       `field:"id"`
	ReviewRequestID int       `field:"-"`
	User            string    `field:"-"`
	Timestamp       time.Time `field:"timestamp"`
	Public          bool      `field:"public"`
	ShipIt          bool      `field:"ship_it"`
	BodyTop         string    `field:"body_top"`
	BodyBottom      string    `field:"body_bottom"`

	// BaseReplyToID makes this a reply to another review.
	BaseReplyToID int `field:"-"`

	// BodyTopReplyToID and BodyBottomReplyToID mark that the
	// corresponding body of a reply continues that section of
	// the base review.
	BodyTopReplyToID    int `field:"-"`
	BodyBottomReplyToID int `field:"-"`
}

// Kind returns KindReply for replies and KindReview otherwise.
func (r *Review) Kind() Kind {
	if r.IsReply() {
		return KindReply
	}
	return KindReview
}

// IsReply returns true if this review is a reply to another review.
func (r *Review) IsReply() bool {
	return r.BaseReplyToID != 0
}

// DiffComment is a comment on a line range of a file diff, or of an
// interdiff between two file diffs.
type DiffComment struct {
	ID              int       `field:"id"`
	ReviewID        int       `field:"-"`
	FileDiffID      int       `field:"-"`
	InterFileDiffID int       `field:"-"`
	FirstLine       int       `field:"first_line"`
	NumLines        int       `field:"num_lines"`
	Text            string    `field:"text"`
	Timestamp       time.Time `field:"timestamp"`
	ReplyToID       int       `field:"-"`
}

// Kind returns KindReplyDiffComment for comments in replies and
// KindDiffComment otherwise.
func (c *DiffComment) Kind() Kind {
	if c.ReplyToID != 0 {
		return KindReplyDiffComment
	}
	return KindDiffComment
}

// ScreenshotComment is a comment on a rectangular region of a
// screenshot.
type ScreenshotComment struct {
	ID           int       `field:"id"`
	ReviewID     int       `field:"-"`
	ScreenshotID int       `field:"-"`
	X            int       `field:"x"`
	Y            int       `field:"y"`
	W            int       `field:"w"`
	H            int       `field:"h"`
	Text         string    `field:"text"`
	Timestamp    time.Time `field:"timestamp"`
	ReplyToID    int       `field:"-"`
}

// Kind returns KindReplyScreenshotComment for comments in replies and
// KindScreenshotComment otherwise.
func (c *ScreenshotComment) Kind() Kind {
	if c.ReplyToID != 0 {
		return KindReplyScreenshotComment
	}
	return KindScreenshotComment
}

// WatchKind names the kind of object a watch entry refers to.
type WatchKind string

// Watchable object kinds.
const (
	WatchReviewRequest WatchKind = "review_request"
	WatchGroup         WatchKind = "group"
)

// WatchEntry records that a user has starred an object.
type WatchEntry struct {
	// ID is a synthetic identifier, distinct from ObjectID.
	ID       string
	Username string
	Kind     WatchKind
	ObjectID int
}

// Last-update types.
const (
	UpdateReviewRequest = "review-request"
	UpdateDiff          = "diff"
	UpdateReply         = "reply"
	UpdateReview        = "review"
)

// LastUpdate describes the most recent change to a review request.
type LastUpdate struct {
	Timestamp time.Time `field:"timestamp"`
	User      string    `field:"-"`
	Summary   string    `field:"summary"`
	Type      string    `field:"type"`
}

// Kind returns KindLastUpdate.
func (lu *LastUpdate) Kind() Kind { return KindLastUpdate }
