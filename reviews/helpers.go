// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviews

import (
	"fmt"
	"regexp"
	"strings"
)

var listSeparator = regexp.MustCompile(`,\s*`)

// SplitList splits a comma-separated list, as sent by clients for
// reviewer lists.  Whitespace after each comma is dropped, as are
// empty entries.
func SplitList(s string) []string {
	var result []string
	for _, part := range listSeparator.Split(s, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// SanitizeBugs normalizes a comma-separated list of bug IDs.  Each
// entry is trimmed and loses a leading "#"; empty entries are dropped.
func SanitizeBugs(s string) []string {
	var result []string
	for _, bug := range strings.Split(s, ",") {
		bug = strings.TrimSpace(bug)
		bug = strings.TrimPrefix(bug, "#")
		if bug != "" {
			result = append(result, bug)
		}
	}
	return result
}

// ParseStatus converts a status name to a Status.  StatusAll is
// accepted.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusSubmitted, StatusDiscarded, StatusAll:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
