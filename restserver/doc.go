// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver publishes a workflow.Service as a REST service.
// The restclient package is a matching client.
//
// The wire representations are defined in the restdata package.  In
// particular, note that the URLs described here are not actually part
// of the API: clients should start at the root resource and follow
// its links and URI templates.
//
// # HTTP Considerations
//
// Requests are authenticated by middleware in front of the router
// (see the auth package); an anonymous request can read public
// objects only.  Failures are reported with an error envelope
// carrying a numeric code, as restdata.ErrorResponse describes.
//
// # MIME Types
//
// Every resource is available as JSON and as XML:
//
//	application/json
//	text/json
//	application/vnd.reviewboard.org.{resource}+json
//
//	application/xml
//	text/xml
//	application/vnd.reviewboard.org.{resource}+xml
//
// where {resource} is the resource name with dashes, such as
// review-request or review-requests.  The api_format query parameter
// (json or xml) overrides the Accept: header.  Diffs are also
// available as text/x-patch; files in a diff as text/x-patch and as
// rendered diff data; screenshots as images.
//
// # URL Scheme
//
// User and group names that are not URL-safe printable ASCII are
// base64 encoded using the URL-safe alphabet (RFC 4648 section 5),
// with no padding, and with an additional - at the front of the name.
// Other objects are addressed by number.
//
// The following URLs are defined:
//
//	/
//	/info/
//	/session/
//	/users/{username}/
//	/users/{username}/watched/
//	/users/{username}/watched/review-groups/{watched_obj_id}/
//	/users/{username}/watched/review-requests/{watched_obj_id}/
//	/groups/{group_name}/
//	/groups/{group_name}/users/{username}/
//	/repositories/{repository_id}/
//	/repositories/{repository_id}/info/
//	/review-requests/{review_request_id}/
//	  .../draft/
//	  .../draft/screenshots/{screenshot_id}/
//	  .../last-update/
//	  .../diffs/{diff_revision}/
//	  .../diffs/{diff_revision}/files/{filediff_id}/
//	  .../diffs/{diff_revision}/files/{filediff_id}/diff-comments/
//	  .../screenshots/{screenshot_id}/
//	  .../screenshots/{screenshot_id}/screenshot-comments/
//	  .../reviews/{review_id}/
//	  .../reviews/{review_id}/diff-comments/{comment_id}/
//	  .../reviews/{review_id}/screenshot-comments/{comment_id}/
//	  .../reviews/{review_id}/replies/{reply_id}/
//	  .../reviews/{review_id}/replies/{reply_id}/diff-comments/{comment_id}/
//	  .../reviews/{review_id}/replies/{reply_id}/screenshot-comments/{comment_id}/
//
// Each URL ending in an identifier also has a list URL without it.
// Lists accept start, max-results and counts-only parameters.  The
// review request list accepts the filters described by
// reviews.ParseReviewRequestQuery.
//
// .../reviews/draft/ and .../replies/draft/ redirect to the caller's
// unpublished review or reply.  Revision 0 of the diffs is the diff
// pending in the draft.
package restserver
