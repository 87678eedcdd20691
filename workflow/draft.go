// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package workflow

import (
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
)

// DraftChanges lists the draft fields to change.  Nil fields are left
// alone.  The list fields are comma-separated text as clients send
// them, and replace the whole list.
type DraftChanges struct {
	Summary           *string `mapstructure:"summary"`
	Description       *string `mapstructure:"description"`
	TestingDone       *string `mapstructure:"testing_done"`
	Branch            *string `mapstructure:"branch"`
	BugsClosed        *string `mapstructure:"bugs_closed"`
	TargetGroups      *string `mapstructure:"target_groups"`
	TargetPeople      *string `mapstructure:"target_people"`
	ChangeDescription *string `mapstructure:"changedescription"`

	// Public publishes the draft once the changes are applied.
	Public bool `mapstructure:"public"`
}

// DraftOptions adjusts UpdateDraft.
type DraftOptions struct {
	// AlwaysSave stores the valid changes even if some other
	// field fails validation.  The validation error is still
	// returned, and the draft is not published.
	AlwaysSave bool
}

// createDraft returns the draft of rr, creating it from rr's current
// state if there is none.  It does not check permissions.
func (s *Service) createDraft(rr *reviews.ReviewRequest) (*reviews.Draft, error) {
	if d, err := s.Store.Draft(rr.ID); err == nil {
		return d, nil
	} else if !reviews.IsNotFound(err) {
		return nil, err
	}

	screenshots, err := s.Store.Screenshots(rr.ID)
	if err != nil {
		return nil, err
	}
	var active []int
	for _, ss := range screenshots {
		if ss.Active {
			active = append(active, ss.ID)
		}
	}
	d := &reviews.Draft{
		ReviewRequestID:      rr.ID,
		LastUpdated:          s.now(),
		Summary:              rr.Summary,
		Description:          rr.Description,
		TestingDone:          rr.TestingDone,
		Branch:               rr.Branch,
		BugsClosed:           append([]string(nil), rr.BugsClosed...),
		TargetGroups:         append([]string(nil), rr.TargetGroups...),
		TargetPeople:         append([]string(nil), rr.TargetPeople...),
		HasChangeDescription: rr.Public,
		ScreenshotIDs:        active,
	}
	// A concurrent creator may win; either way the stored draft
	// comes back.
	d, _, err = s.Store.CreateDraft(d)
	return d, err
}

// PrepareDraft returns the draft of rr, creating it if needed.  p
// must be able to modify rr.
func (s *Service) PrepareDraft(p *reviews.User, rr *reviews.ReviewRequest) (*reviews.Draft, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	if !CanModifyReviewRequest(p, rr) {
		return nil, reviews.ErrPermissionDenied
	}
	return s.createDraft(rr)
}

// Draft returns the existing draft of rr.  Only users who may modify
// rr can see its draft.
func (s *Service) Draft(p *reviews.User, rr *reviews.ReviewRequest) (*reviews.Draft, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	if !CanModifyReviewRequest(p, rr) {
		return nil, reviews.ErrPermissionDenied
	}
	return s.Store.Draft(rr.ID)
}

// UpdateDraft stages changes onto the draft of rr, creating the
// draft if needed.  Every field is validated and all problems are
// reported together in an ErrInvalidInput.  Unless opts.AlwaysSave is
// set, nothing is stored if any field is invalid.
//
// If ch.Public is set and every field is valid, the draft is then
// published; UpdateDraft returns the published review request and a
// nil draft.  Otherwise it returns the updated draft.
func (s *Service) UpdateDraft(p *reviews.User, rr *reviews.ReviewRequest, ch DraftChanges, opts DraftOptions) (*reviews.Draft, *reviews.ReviewRequest, error) {
	d, err := s.PrepareDraft(p, rr)
	if err != nil {
		return nil, nil, err
	}

	var invalid reviews.ErrInvalidInput
	if ch.Summary != nil {
		if strings.ContainsAny(*ch.Summary, "\r\n") {
			invalid.Add("summary", "Summary cannot contain newlines")
		} else {
			d.Summary = *ch.Summary
		}
	}
	if ch.Description != nil {
		d.Description = *ch.Description
	}
	if ch.TestingDone != nil {
		d.TestingDone = *ch.TestingDone
	}
	if ch.Branch != nil {
		d.Branch = *ch.Branch
	}
	if ch.BugsClosed != nil {
		d.BugsClosed = reviews.SanitizeBugs(*ch.BugsClosed)
	}
	if ch.TargetGroups != nil {
		groups, bad, err := s.resolveGroups(reviews.SplitList(*ch.TargetGroups))
		if err != nil {
			return nil, nil, err
		}
		for _, name := range bad {
			invalid.Add("target_groups", name)
		}
		d.TargetGroups = groups
	}
	if ch.TargetPeople != nil {
		people, bad, err := s.resolvePeople(reviews.SplitList(*ch.TargetPeople))
		if err != nil {
			return nil, nil, err
		}
		for _, name := range bad {
			invalid.Add("target_people", name)
		}
		d.TargetPeople = people
	}
	if ch.ChangeDescription != nil {
		if !d.HasChangeDescription {
			invalid.Add("changedescription", "Change descriptions cannot be used for drafts of new review requests")
		} else {
			d.ChangeDescription = *ch.ChangeDescription
		}
	}

	if opts.AlwaysSave || invalid.Empty() {
		d.LastUpdated = s.now()
		if err := s.Store.SaveDraft(d); err != nil {
			return nil, nil, err
		}
	}
	if !invalid.Empty() {
		return nil, nil, invalid
	}
	if ch.Public {
		published, err := s.publish(p, rr, d)
		return nil, published, err
	}
	return d, nil, nil
}

// resolveGroups maps each name to a group by name or display name,
// ignoring case.  It returns the canonical names of the groups found
// and the names that matched nothing.
func (s *Service) resolveGroups(names []string) (found, bad []string, err error) {
	found = []string{}
	for _, name := range names {
		groups, err := s.Store.Groups(reviews.GroupQuery{NameOrDisplayName: name})
		if err != nil {
			return nil, nil, err
		}
		if len(groups) == 0 {
			bad = append(bad, name)
		} else if !contains(found, groups[0].Name) {
			found = append(found, groups[0].Name)
		}
	}
	return found, bad, nil
}

// resolvePeople maps each name to a user, asking the user resolver
// about users the store does not know.
func (s *Service) resolvePeople(names []string) (found, bad []string, err error) {
	found = []string{}
	for _, name := range names {
		u, err := s.resolveUser(name)
		if err != nil {
			return nil, nil, err
		}
		if u == nil {
			bad = append(bad, name)
		} else if !contains(found, u.Username) {
			found = append(found, u.Username)
		}
	}
	return found, bad, nil
}

// PublishDraft publishes the existing draft of rr.
func (s *Service) PublishDraft(p *reviews.User, rr *reviews.ReviewRequest) (*reviews.ReviewRequest, error) {
	if err := requireLogin(p); err != nil {
		return nil, err
	}
	if !CanModifyReviewRequest(p, rr) {
		return nil, reviews.ErrPermissionDenied
	}
	d, err := s.Store.Draft(rr.ID)
	if err != nil {
		return nil, err
	}
	return s.publish(p, rr, d)
}

// publish copies d onto rr, makes rr public, and deletes d.  A
// pending diff becomes the next revision, the draft's screenshot set
// becomes the active set, and pending captions are applied.
func (s *Service) publish(p *reviews.User, rr *reviews.ReviewRequest, d *reviews.Draft) (*reviews.ReviewRequest, error) {
	now := s.now()
	updated := *rr
	updated.Summary = d.Summary
	updated.Description = d.Description
	updated.TestingDone = d.TestingDone
	updated.Branch = d.Branch
	updated.BugsClosed = d.BugsClosed
	updated.TargetGroups = d.TargetGroups
	updated.TargetPeople = d.TargetPeople
	if d.HasChangeDescription {
		updated.Changes = append(append([]reviews.ChangeDescription(nil), rr.Changes...),
			reviews.ChangeDescription{Text: d.ChangeDescription, Timestamp: now})
	}

	if d.DiffSetID != 0 {
		ds, err := s.Store.DiffSet(d.DiffSetID)
		if err != nil {
			return nil, err
		}
		history, err := s.Store.DiffSets(rr.ID)
		if err != nil {
			return nil, err
		}
		revision := 1
		for _, old := range history {
			if old.Revision >= revision {
				revision = old.Revision + 1
			}
		}
		ds.Revision = revision
		ds.Timestamp = now
		if err := s.Store.SaveDiffSet(ds); err != nil {
			return nil, err
		}
	}

	screenshots, err := s.Store.Screenshots(rr.ID)
	if err != nil {
		return nil, err
	}
	for _, ss := range screenshots {
		active := d.HasScreenshot(ss.ID)
		if active == ss.Active && ss.DraftCaption == "" {
			continue
		}
		ss.Active = active
		ss.Caption = ss.DraftCaptionOrCaption()
		ss.DraftCaption = ""
		if err := s.Store.SaveScreenshot(ss); err != nil {
			return nil, err
		}
	}

	updated.Public = true
	updated.LastUpdated = now
	if err := s.Store.SaveReviewRequest(&updated); err != nil {
		return nil, err
	}
	if err := s.Store.DeleteDraft(rr.ID); err != nil && !reviews.IsNotFound(err) {
		return nil, err
	}
	s.notify(reviews.Event{
		Type:            reviews.EventReviewRequestPublished,
		Actor:           p.Username,
		ReviewRequestID: updated.ID,
		Targets:         targets(updated.TargetGroups, updated.TargetPeople),
		Timestamp:       now,
	})
	return &updated, nil
}

// DiscardDraft deletes the draft of rr along with any diff uploaded
// to it.  The review request itself is unchanged.
func (s *Service) DiscardDraft(p *reviews.User, rr *reviews.ReviewRequest) error {
	if err := requireLogin(p); err != nil {
		return err
	}
	d, err := s.Store.Draft(rr.ID)
	if err != nil {
		return err
	}
	if !CanModifyReviewRequest(p, rr) {
		return reviews.ErrPermissionDenied
	}
	if err := s.Store.DeleteDraft(rr.ID); err != nil {
		return err
	}
	if d.DiffSetID != 0 {
		if err := s.Store.DeleteDiffSet(d.DiffSetID); err != nil && !reviews.IsNotFound(err) {
			return err
		}
	}
	return nil
}
