// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver and restclient packages.
//
// # API Usage
//
// HTTP GET the root document at /api/.  It contains links to the
// top-level lists and a uri_templates object mapping resource names
// to RFC 6570 URI templates for every resource in the tree.  For
// instance:
//
//	{
//	    "stat": "ok",
//	    "links": {"review_requests": {"method": "GET", "href": "..."}},
//	    "uri_templates": {
//	        "review_request": "http://host/api/review-requests/{review_request_id}/"
//	    }
//	}
//
// Follow these links, filling in template values, to get to other
// resources.  The URL structure is predictable, but only the root
// document is part of the API contract.
//
// # Representations
//
// Every successful response is an envelope with "stat" set to "ok"
// and the payload under the resource's name (for an item) or plural
// name (for a list).  Each item carries a "links" object with "self"
// and, where the caller may use them, "update" and "delete" links,
// plus links to child resources and to related objects.
//
// Lists are paged with the start and max-results query parameters and
// report total_results.  Passing counts-only=1 returns only a count.
//
// JSON and XML are both available, selected by the Accept header or
// by the api_format query parameter.  Timestamps are strings in
// "YYYY-MM-DD HH:MM:SS" form, in UTC.
//
// # Requests
//
// PUT and POST bodies may be JSON objects, URL-encoded forms, or
// multipart forms; file uploads require multipart.  Values are
// weakly typed, so "1" and "true" both mean true.
//
// # Errors
//
// Failures are returned as an ErrorResponse with a numeric code from
// a fixed table and a failing HTTP status.  Validation failures also
// carry a fields object mapping each bad field to its problems.
package restdata

import (
	"time"
)

// Media types understood by the API.
const (
	JSONMediaType         = "application/json"
	XMLMediaType          = "application/xml"
	VendorMediaTypePrefix = "application/vnd.reviewboard.org."
	PatchMediaType        = "text/x-patch"
	DiffDataJSONMediaType = VendorMediaTypePrefix + "diff.data+json"
	DiffDataXMLMediaType  = VendorMediaTypePrefix + "diff.data+xml"
	FormMediaType         = "application/x-www-form-urlencoded"
	MultipartMediaType    = "multipart/form-data"
)

// VendorJSON returns the resource-specific JSON media type for a
// resource name, e.g. application/vnd.reviewboard.org.review+json.
func VendorJSON(name string) string {
	return VendorMediaTypePrefix + name + "+json"
}

// VendorXML returns the resource-specific XML media type for a
// resource name.
func VendorXML(name string) string {
	return VendorMediaTypePrefix + name + "+xml"
}

// TimeFormat is the layout of timestamps in representations.
const TimeFormat = "2006-01-02 15:04:05"

// FormatTime formats a timestamp for a representation.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a timestamp from a representation.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeFormat, s, time.UTC)
}

// StatOK is the "stat" value of a successful response.
const StatOK = "ok"

// StatFail is the "stat" value of an error response.
const StatFail = "fail"

// Link points at a related resource.
type Link struct {
	Method string `codec:"method" mapstructure:"method"`
	Href   string `codec:"href" mapstructure:"href"`
	Title  string `codec:"title,omitempty" mapstructure:"title"`
}

// Links maps link names to links.
type Links map[string]Link

// User is the representation of a user.
type User struct {
	ID        int    `mapstructure:"id"`
	Username  string `mapstructure:"username"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
	FullName  string `mapstructure:"fullname"`
	Email     string `mapstructure:"email"`
	Links     Links  `mapstructure:"links"`
}

// Group is the representation of a review group.
type Group struct {
	ID          int    `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	MailingList string `mapstructure:"mailing_list"`
	InviteOnly  bool   `mapstructure:"invite_only"`
	Visible     bool   `mapstructure:"visible"`
	URL         string `mapstructure:"url"`
	Links       Links  `mapstructure:"links"`
}

// Repository is the representation of a repository.
type Repository struct {
	ID    int    `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Path  string `mapstructure:"path"`
	Tool  string `mapstructure:"tool"`
	Links Links  `mapstructure:"links"`
}

// ReviewRequest is the representation of a review request.  The
// submitter and repository appear in Links.
type ReviewRequest struct {
	ID           int      `mapstructure:"id"`
	Status       string   `mapstructure:"status"`
	Public       bool     `mapstructure:"public"`
	ChangeNum    int      `mapstructure:"changenum"`
	TimeAdded    string   `mapstructure:"time_added"`
	LastUpdated  string   `mapstructure:"last_updated"`
	Summary      string   `mapstructure:"summary"`
	Description  string   `mapstructure:"description"`
	TestingDone  string   `mapstructure:"testing_done"`
	Branch       string   `mapstructure:"branch"`
	BugsClosed   []string `mapstructure:"bugs_closed"`
	TargetGroups []Link   `mapstructure:"target_groups"`
	TargetPeople []Link   `mapstructure:"target_people"`
	Links        Links    `mapstructure:"links"`
}

// Draft is the representation of a review request draft.
type Draft struct {
	ID                int      `mapstructure:"id"`
	LastUpdated       string   `mapstructure:"last_updated"`
	Public            bool     `mapstructure:"public"`
	Summary           string   `mapstructure:"summary"`
	Description       string   `mapstructure:"description"`
	TestingDone       string   `mapstructure:"testing_done"`
	Branch            string   `mapstructure:"branch"`
	BugsClosed        []string `mapstructure:"bugs_closed"`
	ChangeDescription string   `mapstructure:"changedescription"`
	TargetGroups      []Link   `mapstructure:"target_groups"`
	TargetPeople      []Link   `mapstructure:"target_people"`
	Links             Links    `mapstructure:"links"`
}

// Diff is the representation of one revision of a diff.
type Diff struct {
	ID        int    `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	Revision  int    `mapstructure:"revision"`
	Timestamp string `mapstructure:"timestamp"`
	Links     Links  `mapstructure:"links"`
}

// Review is the representation of a review or reply.
type Review struct {
	ID         int    `mapstructure:"id"`
	Public     bool   `mapstructure:"public"`
	ShipIt     bool   `mapstructure:"ship_it"`
	BodyTop    string `mapstructure:"body_top"`
	BodyBottom string `mapstructure:"body_bottom"`
	Timestamp  string `mapstructure:"timestamp"`
	Links      Links  `mapstructure:"links"`
}

// DiffComment is the representation of a comment on a diff.  The
// file diff, interdiff, reply-to comment and author appear in Links.
type DiffComment struct {
	ID        int    `mapstructure:"id"`
	FirstLine int    `mapstructure:"first_line"`
	NumLines  int    `mapstructure:"num_lines"`
	Text      string `mapstructure:"text"`
	Public    bool   `mapstructure:"public"`
	Timestamp string `mapstructure:"timestamp"`
	Links     Links  `mapstructure:"links"`
}

// LastUpdate is the representation of a review request's most recent
// activity.  The acting user, if known, appears in Links.
type LastUpdate struct {
	Timestamp string `mapstructure:"timestamp"`
	Summary   string `mapstructure:"summary"`
	Type      string `mapstructure:"type"`
	Links     Links  `mapstructure:"links"`
}

// Session is the representation of the caller's session.  If
// Authenticated, Links has a "user" link.
type Session struct {
	Authenticated bool  `mapstructure:"authenticated"`
	Links         Links `mapstructure:"links"`
}

// Watched is one entry of a watch list.  ID is the entry's own
// identifier, used to remove it; exactly one of the object fields is
// set.
type Watched struct {
	ID            string         `mapstructure:"id"`
	ReviewRequest *ReviewRequest `mapstructure:"watched_review_request"`
	Group         *Group         `mapstructure:"watched_review_group"`
}

// Root is the representation of the API root.
type Root struct {
	Links        Links             `mapstructure:"links"`
	URITemplates map[string]string `mapstructure:"uri_templates"`
}
