// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"github.com/diffeo/go-reviewapi/reviews"
)

// groupMemberCondition produces an SQL fragment that is true if user
// is a member of some target group of the review request.
func groupMemberCondition(params *queryParams, user string) string {
	return "EXISTS(SELECT 1 FROM review_group " +
		"WHERE review_group.name = ANY(review_request.target_groups) " +
		"AND " + params.Param(user) + " = ANY(review_group.members))"
}

// reviewRequestConditions translates a query into WHERE clause
// fragments over the review_request table, all of which must hold.
func reviewRequestConditions(params *queryParams, q *reviews.ReviewRequestQuery) []string {
	conditions := []string{
		"(review_request.public OR review_request.submitter=" + params.Param(q.Viewer) + ")",
	}
	switch q.Status {
	case reviews.StatusAll:
	case "":
		conditions = append(conditions, "review_request.status="+params.Param(string(reviews.StatusPending)))
	default:
		conditions = append(conditions, "review_request.status="+params.Param(string(q.Status)))
	}
	if q.FromUser != "" {
		conditions = append(conditions, "review_request.submitter="+params.Param(q.FromUser))
	}
	if q.RepositoryID != 0 {
		conditions = append(conditions, "review_request.repository_id="+params.Param(q.RepositoryID))
	}
	if q.ChangeNum != 0 {
		conditions = append(conditions, "review_request.change_num="+params.Param(q.ChangeNum))
	}
	if !q.TimeAddedFrom.IsZero() {
		conditions = append(conditions, "review_request.time_added>="+params.Param(q.TimeAddedFrom))
	}
	if !q.TimeAddedTo.IsZero() {
		conditions = append(conditions, "review_request.time_added<"+params.Param(q.TimeAddedTo))
	}
	if !q.LastUpdatedFrom.IsZero() {
		conditions = append(conditions, "review_request.last_updated>="+params.Param(q.LastUpdatedFrom))
	}
	if !q.LastUpdatedTo.IsZero() {
		conditions = append(conditions, "review_request.last_updated<"+params.Param(q.LastUpdatedTo))
	}
	for _, group := range q.ToGroups {
		conditions = append(conditions, params.Param(group)+" = ANY(review_request.target_groups)")
	}
	for _, user := range q.ToUsersDirectly {
		conditions = append(conditions, params.Param(user)+" = ANY(review_request.target_people)")
	}
	for _, user := range q.ToUserGroups {
		conditions = append(conditions, groupMemberCondition(params, user))
	}
	for _, user := range q.ToUsers {
		conditions = append(conditions, "("+params.Param(user)+
			" = ANY(review_request.target_people) OR "+
			groupMemberCondition(params, user)+")")
	}
	return conditions
}
