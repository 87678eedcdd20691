// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import "github.com/diffeo/go-reviewapi/reviews"

// CanReadGroup returns true if p may see a review group.  Invite-only
// groups are visible to their members and to superusers.
func CanReadGroup(p *reviews.User, g *reviews.Group) bool {
	if !g.InviteOnly {
		return true
	}
	if p == nil {
		return false
	}
	return p.IsSuperuser || g.HasMember(p.Username)
}

// CanReadRepository returns true if p may see a repository.
func CanReadRepository(p *reviews.User, repo *reviews.Repository) bool {
	if repo.Public {
		return true
	}
	if p == nil {
		return false
	}
	return p.IsSuperuser || contains(repo.Users, p.Username)
}

// CanModifyUser returns true if p may change a user's settings, such
// as the user's watch lists.
func CanModifyUser(p *reviews.User, username string) bool {
	return p.Is(username) || (p != nil && p.IsSuperuser)
}

// CanModifyReviewRequest returns true if p owns rr or may edit any
// review request.
func CanModifyReviewRequest(p *reviews.User, rr *reviews.ReviewRequest) bool {
	return p.Is(rr.Submitter) || p.HasPerm(reviews.PermCanEditReviewRequest)
}

// CanChangeStatus returns true if p may close or reopen rr.
func CanChangeStatus(p *reviews.User, rr *reviews.ReviewRequest) bool {
	return p.Is(rr.Submitter) || p.HasPerm(reviews.PermCanChangeStatus)
}

// CanDeleteReviewRequest returns true if p may permanently delete
// review requests.
func CanDeleteReviewRequest(p *reviews.User) bool {
	return p.HasPerm(reviews.PermDeleteReviewRequest)
}

// CanReadReview returns true if p may see a review or reply.
func CanReadReview(p *reviews.User, r *reviews.Review) bool {
	return r.Public || p.Is(r.User)
}

// CanModifyReview returns true if p may change or delete a review or
// reply, or its comments.  Public reviews never change.
func CanModifyReview(p *reviews.User, r *reviews.Review) bool {
	return !r.Public && p.Is(r.User)
}

// CanReadReviewRequest returns true if p may see rr.  Besides being
// public or modifiable by p, rr's repository and every one of its
// target groups must be visible to p.
func (s *Service) CanReadReviewRequest(p *reviews.User, rr *reviews.ReviewRequest) (bool, error) {
	if !rr.Public && !CanModifyReviewRequest(p, rr) {
		return false, nil
	}
	if p != nil && p.IsSuperuser {
		return true, nil
	}
	if rr.RepositoryID != 0 {
		repo, err := s.Store.Repository(rr.RepositoryID)
		if err != nil && !reviews.IsNotFound(err) {
			return false, err
		}
		if err == nil && !CanReadRepository(p, repo) {
			return false, nil
		}
	}
	for _, name := range rr.TargetGroups {
		g, err := s.Store.Group(name)
		if reviews.IsNotFound(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		if !CanReadGroup(p, g) {
			return false, nil
		}
	}
	return true, nil
}
