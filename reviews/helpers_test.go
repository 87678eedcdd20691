// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"a"}, SplitList("a"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitList("a,b, c"))
	assert.Equal(t, []string{"a", "b"}, SplitList("a,,  b, "))
}

func TestSanitizeBugs(t *testing.T) {
	assert.Nil(t, SanitizeBugs(""))
	assert.Equal(t, []string{"12", "34"}, SanitizeBugs("#12, 34"))
	assert.Equal(t, []string{"12", "34"}, SanitizeBugs(" 12 ,, #34,"))
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "submitted", "discarded", "all"} {
		status, err := ParseStatus(s)
		if assert.NoError(t, err) {
			assert.Equal(t, Status(s), status)
		}
	}
	_, err := ParseStatus("closed")
	assert.Error(t, err)
}

func TestHasPerm(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.HasPerm(PermCanChangeStatus))

	user := &User{Username: "u", Permissions: []string{PermCanChangeStatus}}
	assert.True(t, user.HasPerm(PermCanChangeStatus))
	assert.False(t, user.HasPerm(PermDeleteReviewRequest))

	admin := &User{Username: "admin", IsSuperuser: true}
	assert.True(t, admin.HasPerm(PermDeleteReviewRequest))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "", (&User{}).FullName())
	assert.Equal(t, "Ada", (&User{FirstName: "Ada"}).FullName())
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace"}).FullName())
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "review_request", KindReviewRequest.String())
	assert.Equal(t, "diff_comment", (&DiffComment{}).Kind().String())
	assert.Equal(t, KindReplyDiffComment, (&DiffComment{ReplyToID: 3}).Kind())
	assert.Equal(t, KindReply, (&Review{BaseReplyToID: 1}).Kind())
	assert.Equal(t, "unknown", Kind(999).String())
}

func TestInvalidInput(t *testing.T) {
	var err ErrInvalidInput
	assert.True(t, err.Empty())
	err.Add("summary", "bad")
	err.Add("summary", "worse")
	err.Add("branch", "meh")
	assert.False(t, err.Empty())
	assert.Equal(t, []string{"bad", "worse"}, err.Fields["summary"])
	assert.Equal(t, "One or more fields had errors: branch, summary", err.Error())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound{Kind: KindReview, Key: 1}))
	assert.False(t, IsNotFound(ErrPermissionDenied))
	assert.Equal(t, "Object does not exist", ErrNotFound{}.Error())
}
