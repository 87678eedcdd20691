// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviews

// UserQuery selects users.
type UserQuery struct {
	// Prefix matches the start of the username, case-insensitively.
	Prefix string
	// FullName matches the start of the first name, last name, or
	// "first last", case-insensitively.
	FullName string
	// Usernames restricts the result to these users, if non-nil.
	Usernames []string
}

// GroupQuery selects review groups.
type GroupQuery struct {
	// Prefix matches the start of the group name,
	// case-insensitively.
	Prefix string
	// DisplayName additionally matches the start of the display
	// name when Prefix is set.
	DisplayName bool
	// NameOrDisplayName matches either the name or the display
	// name exactly, case-insensitively.
	NameOrDisplayName string
}

// ReviewQuery selects reviews of one review request.
type ReviewQuery struct {
	ReviewRequestID int
	// BaseReplyToID selects replies to this review.  Zero selects
	// top-level reviews only.
	BaseReplyToID int
	// AnyBase ignores BaseReplyToID and returns reviews and replies.
	AnyBase bool
	// PublicOnly excludes unpublished reviews.
	PublicOnly bool
	// User selects reviews by one author.
	User string
}

// CommentQuery selects diff or screenshot comments.  Zero fields are
// not constrained.
type CommentQuery struct {
	ReviewID     int
	FileDiffID   int
	ScreenshotID int
	ReplyToID    int
	// Line selects diff comments starting at this line.
	Line int
}

// Store is the persistence collaborator.  Implementations must be
// safe for concurrent use.
//
// Lookups of a single object return ErrNotFound if it does not exist.
// Create methods assign the object's ID.  Save methods overwrite the
// stored object having the same ID.  Delete methods are permanent and
// cascade to owned objects.
type Store interface {
	User(username string) (*User, error)
	Users(q UserQuery) ([]*User, error)
	CreateUser(u *User) error

	Group(name string) (*Group, error)
	GroupByID(id int) (*Group, error)
	Groups(q GroupQuery) ([]*Group, error)
	CreateGroup(g *Group) error

	Repository(id int) (*Repository, error)
	// RepositoryByPath matches either the path or the mirror path.
	RepositoryByPath(path string) (*Repository, error)
	Repositories() ([]*Repository, error)
	CreateRepository(r *Repository) error

	ReviewRequest(id int) (*ReviewRequest, error)
	ReviewRequests(q *ReviewRequestQuery) ([]*ReviewRequest, error)
	CountReviewRequests(q *ReviewRequestQuery) (int, error)
	// CreateReviewRequest returns ErrChangeNumberInUse if
	// rr.ChangeNum is non-zero and already used in the same
	// repository.
	CreateReviewRequest(rr *ReviewRequest) error
	SaveReviewRequest(rr *ReviewRequest) error
	DeleteReviewRequest(id int) error

	Draft(reviewRequestID int) (*Draft, error)
	// CreateDraft atomically stores d unless its review request
	// already has a draft.  It returns the stored draft and true
	// if d was inserted, or the existing draft and false.
	CreateDraft(d *Draft) (*Draft, bool, error)
	SaveDraft(d *Draft) error
	DeleteDraft(reviewRequestID int) error

	// DiffSets returns the published diffsets of a review request
	// in revision order.
	DiffSets(reviewRequestID int) ([]*DiffSet, error)
	DiffSet(id int) (*DiffSet, error)
	// CreateDiffSet stores a diffset and its files, assigning IDs
	// to all of them.
	CreateDiffSet(ds *DiffSet, files []*FileDiff) error
	SaveDiffSet(ds *DiffSet) error
	DeleteDiffSet(id int) error
	FileDiffs(diffSetID int) ([]*FileDiff, error)
	FileDiff(id int) (*FileDiff, error)

	Screenshot(id int) (*Screenshot, error)
	// Screenshots returns every screenshot ever uploaded to a
	// review request, active or not.
	Screenshots(reviewRequestID int) ([]*Screenshot, error)
	CreateScreenshot(s *Screenshot) error
	SaveScreenshot(s *Screenshot) error

	Review(id int) (*Review, error)
	Reviews(q ReviewQuery) ([]*Review, error)
	// GetOrCreateReview atomically finds the non-public review
	// with r's review request, user, and base review, or stores r
	// if there is none.  The boolean is true if r was stored.
	GetOrCreateReview(r *Review) (*Review, bool, error)
	SaveReview(r *Review) error
	DeleteReview(id int) error

	DiffComment(id int) (*DiffComment, error)
	DiffComments(q CommentQuery) ([]*DiffComment, error)
	CreateDiffComment(c *DiffComment) error
	SaveDiffComment(c *DiffComment) error
	DeleteDiffComment(id int) error

	ScreenshotComment(id int) (*ScreenshotComment, error)
	ScreenshotComments(q CommentQuery) ([]*ScreenshotComment, error)
	CreateScreenshotComment(c *ScreenshotComment) error
	SaveScreenshotComment(c *ScreenshotComment) error
	DeleteScreenshotComment(id int) error

	// Watches lists a user's watch entries of one kind.
	Watches(username string, kind WatchKind) ([]WatchEntry, error)
	// AddWatch stores e; storing an existing entry is a no-op.
	AddWatch(e WatchEntry) error
	// RemoveWatch deletes an entry; a missing entry is a no-op.
	RemoveWatch(username string, kind WatchKind, objectID int) error
}
