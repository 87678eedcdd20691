// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package scm provides repository tools that answer questions about
// changes and files hosted on outside services.  Each tool implements
// reviews.SCMTool for one kind of hosting service, and a Registry
// dispatches to the right tool based on a repository's Tool field.
package scm

import (
	"context"
	"net/url"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
)

// Registry is a reviews.SCMTool that hands each call to the tool
// named by the repository.  Repositories whose tool is not
// registered get reviews.ErrNotImplemented.
type Registry struct {
	Tools map[string]reviews.SCMTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{Tools: make(map[string]reviews.SCMTool)}
}

// Register adds a tool under a name.
func (r *Registry) Register(name string, tool reviews.SCMTool) {
	r.Tools[name] = tool
}

func (r *Registry) tool(repo *reviews.Repository) (reviews.SCMTool, error) {
	tool, ok := r.Tools[repo.Tool]
	if !ok {
		return nil, reviews.ErrNotImplemented
	}
	return tool, nil
}

// Changeset asks the repository's tool for a change.
func (r *Registry) Changeset(ctx context.Context, repo *reviews.Repository, changenum int) (*reviews.Changeset, error) {
	tool, err := r.tool(repo)
	if err != nil {
		return nil, err
	}
	return tool.Changeset(ctx, repo, changenum)
}

// FileExists asks the repository's tool whether a file exists.
func (r *Registry) FileExists(ctx context.Context, repo *reviews.Repository, path, revision string) (bool, error) {
	tool, err := r.tool(repo)
	if err != nil {
		return false, err
	}
	return tool.FileExists(ctx, repo, path, revision)
}

// Info asks the repository's tool about the repository.
func (r *Registry) Info(ctx context.Context, repo *reviews.Repository) (map[string]interface{}, error) {
	tool, err := r.tool(repo)
	if err != nil {
		return nil, err
	}
	return tool.Info(ctx, repo)
}

// projectPath extracts the hosted project path, such as
// "owner/name", from a repository path.  The path may be a plain
// project path, an http(s) clone URL, or an scp-style ssh address.
func projectPath(repoPath string) string {
	p := repoPath
	if u, err := url.Parse(p); err == nil && u.Host != "" {
		p = u.Path
	} else if at := strings.Index(p, "@"); at >= 0 {
		if colon := strings.Index(p[at:], ":"); colon >= 0 {
			p = p[at+colon+1:]
		}
	}
	p = strings.TrimSuffix(strings.Trim(p, "/"), ".git")
	return p
}

// isRevisionless returns true if revision does not name a specific
// revision, so the default branch applies.
func isRevisionless(revision string) bool {
	return revision == "" || revision == "HEAD"
}
