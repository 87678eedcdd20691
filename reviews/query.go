// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviews

import (
	"net/url"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// ReviewRequestQuery is a conjunction of optional constraints on
// review requests.  The zero value matches every visible pending
// review request.
type ReviewRequestQuery struct {
	// ToGroups requires every named group to be a target group.
	ToGroups []string
	// ToUsers requires every named user to be a target, either
	// directly or through a target group.
	ToUsers []string
	// ToUsersDirectly requires every named user to be a target
	// person.
	ToUsersDirectly []string
	// ToUserGroups requires every named user to belong to some
	// target group.
	ToUserGroups []string

	FromUser     string
	RepositoryID int
	ChangeNum    int

	// Status selects a status; empty means pending and StatusAll
	// means any.
	Status Status

	// Date ranges include the From time and exclude the To time.
	// Zero times are not constrained.
	TimeAddedFrom   time.Time
	TimeAddedTo     time.Time
	LastUpdatedFrom time.Time
	LastUpdatedTo   time.Time

	// Viewer is the user listing review requests.  Only public
	// review requests and the viewer's own are visible.
	Viewer string

	// Start skips this many results; Limit, if positive, caps the
	// number returned.
	Start int
	Limit int

	// Ignored lists parameters whose values could not be
	// understood and so impose no constraint.
	Ignored []string
}

// ParseReviewRequestQuery builds a query from URL parameters:
//
//	to-groups, to-users, to-users-directly, to-user-groups
//	    comma-separated names; every name must match
//	from-user, repository, changenum, status
//	time-added-from, time-added-to, last-updated-from, last-updated-to
//	    dates in any common layout, preferably ISO 8601
//
// A date that cannot be parsed is recorded in Ignored and does not
// constrain the query.  A non-numeric repository or change number, or
// an unknown status, is an ErrInvalidInput.
func ParseReviewRequestQuery(params url.Values) (*ReviewRequestQuery, error) {
	q := &ReviewRequestQuery{Status: StatusPending}
	var invalid ErrInvalidInput

	q.ToGroups = splitParam(params, "to-groups")
	q.ToUsers = splitParam(params, "to-users")
	q.ToUsersDirectly = splitParam(params, "to-users-directly")
	q.ToUserGroups = append(splitParam(params, "to-user-groups"),
		splitParam(params, "to-users-groups")...)
	q.FromUser = params.Get("from-user")

	if s := params.Get("repository"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			invalid.Add("repository", "This is not a valid repository ID")
		}
		q.RepositoryID = id
	}
	if s := params.Get("changenum"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			invalid.Add("changenum", "This is not a valid change number")
		}
		q.ChangeNum = n
	}
	if s := params.Get("status"); s != "" {
		status, err := ParseStatus(s)
		if err != nil {
			invalid.Add("status", "This is not a valid status")
		}
		q.Status = status
	}

	q.TimeAddedFrom = q.parseDate(params, "time-added-from")
	q.TimeAddedTo = q.parseDate(params, "time-added-to")
	q.LastUpdatedFrom = q.parseDate(params, "last-updated-from")
	q.LastUpdatedTo = q.parseDate(params, "last-updated-to")

	if !invalid.Empty() {
		return nil, invalid
	}
	return q, nil
}

func splitParam(params url.Values, name string) []string {
	if _, present := params[name]; !present {
		return nil
	}
	return SplitList(params.Get(name))
}

// parseDate reads a date parameter.  An absent parameter is the zero
// time; an unparsable one is also the zero time but is noted in
// q.Ignored.
func (q *ReviewRequestQuery) parseDate(params url.Values, name string) time.Time {
	s := params.Get(name)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		q.Ignored = append(q.Ignored, name)
		return time.Time{}
	}
	return t
}

// WantsStatus returns true if the query accepts status.
func (q *ReviewRequestQuery) WantsStatus(status Status) bool {
	switch q.Status {
	case "":
		return status == StatusPending
	case StatusAll:
		return true
	default:
		return q.Status == status
	}
}

// Match evaluates the query against one review request.  members
// returns the usernames in a group.  Paging fields are not considered.
func (q *ReviewRequestQuery) Match(rr *ReviewRequest, members func(group string) []string) bool {
	if !rr.Public && rr.Submitter != q.Viewer {
		return false
	}
	if !q.WantsStatus(rr.Status) {
		return false
	}
	if q.FromUser != "" && rr.Submitter != q.FromUser {
		return false
	}
	if q.RepositoryID != 0 && rr.RepositoryID != q.RepositoryID {
		return false
	}
	if q.ChangeNum != 0 && rr.ChangeNum != q.ChangeNum {
		return false
	}
	if !inRange(rr.TimeAdded, q.TimeAddedFrom, q.TimeAddedTo) ||
		!inRange(rr.LastUpdated, q.LastUpdatedFrom, q.LastUpdatedTo) {
		return false
	}
	for _, group := range q.ToGroups {
		if !contains(rr.TargetGroups, group) {
			return false
		}
	}
	for _, user := range q.ToUsersDirectly {
		if !contains(rr.TargetPeople, user) {
			return false
		}
	}
	for _, user := range q.ToUserGroups {
		if !inTargetGroup(rr, user, members) {
			return false
		}
	}
	for _, user := range q.ToUsers {
		if !contains(rr.TargetPeople, user) && !inTargetGroup(rr, user, members) {
			return false
		}
	}
	return true
}

func inTargetGroup(rr *ReviewRequest, user string, members func(string) []string) bool {
	for _, group := range rr.TargetGroups {
		if contains(members(group), user) {
			return true
		}
	}
	return false
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// Page applies q.Start and q.Limit to a slice length, returning the
// bounds of the selected window.
func (q *ReviewRequestQuery) Page(n int) (lo, hi int) {
	lo = q.Start
	if lo > n {
		lo = n
	}
	if lo < 0 {
		lo = 0
	}
	hi = n
	if q.Limit > 0 && lo+q.Limit < hi {
		hi = lo + q.Limit
	}
	return
}
