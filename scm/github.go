// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scm

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/google/go-github/v60/github"
)

// GitHub is a repository tool for repositories hosted on GitHub.
// Change numbers are pull request numbers.
type GitHub struct {
	Client *github.Client
}

// GitHubOption configures a GitHub tool.
type GitHubOption func(*GitHub) error

// WithGitHubURL points the tool at a GitHub Enterprise server, or a
// test server.
func WithGitHubURL(baseURL string) GitHubOption {
	return func(g *GitHub) error {
		u, err := g.Client.BaseURL.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return err
		}
		g.Client.BaseURL = u
		return nil
	}
}

// NewGitHub creates a GitHub tool.  If token is non-empty it is sent
// as a bearer token with every request.
func NewGitHub(token string, opts ...GitHubOption) (*GitHub, error) {
	httpClient := &http.Client{}
	if token != "" {
		httpClient.Transport = &tokenTransport{token: token}
	}
	g := &GitHub{Client: github.NewClient(httpClient)}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// tokenTransport adds an authorization header to requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

func ownerAndName(repo *reviews.Repository) (string, string, error) {
	parts := strings.SplitN(projectPath(repo.Path), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository path %q is not owner/name", repo.Path)
	}
	return parts[0], parts[1], nil
}

func notFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// Changeset fetches a pull request and the names of the files it
// changes.
func (g *GitHub) Changeset(ctx context.Context, repo *reviews.Repository, changenum int) (*reviews.Changeset, error) {
	owner, name, err := ownerAndName(repo)
	if err != nil {
		return nil, err
	}
	pr, resp, err := g.Client.PullRequests.Get(ctx, owner, name, changenum)
	if notFound(resp) {
		return nil, reviews.ErrInvalidChangeNumber
	}
	if err != nil {
		return nil, fmt.Errorf("fetching pull request: %w", err)
	}
	cs := &reviews.Changeset{
		ChangeNum:   pr.GetNumber(),
		Summary:     pr.GetTitle(),
		Description: pr.GetBody(),
		Branch:      pr.GetHead().GetRef(),
	}

	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := g.Client.PullRequests.ListFiles(ctx, owner, name, changenum, opts)
		if err != nil {
			return nil, fmt.Errorf("listing changed files: %w", err)
		}
		for _, f := range files {
			cs.Files = append(cs.Files, f.GetFilename())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return cs, nil
}

var blobID = regexp.MustCompile(`^[0-9a-f]{40}$`)

// FileExists checks a file.  A full git blob ID is looked up
// directly; any other revision is treated as a ref.
func (g *GitHub) FileExists(ctx context.Context, repo *reviews.Repository, path, revision string) (bool, error) {
	owner, name, err := ownerAndName(repo)
	if err != nil {
		return false, err
	}
	var resp *github.Response
	if blobID.MatchString(revision) {
		_, resp, err = g.Client.Git.GetBlob(ctx, owner, name, revision)
	} else {
		opts := &github.RepositoryContentGetOptions{}
		if !isRevisionless(revision) {
			opts.Ref = revision
		}
		_, _, resp, err = g.Client.Repositories.GetContents(ctx, owner, name, strings.TrimPrefix(path, "/"), opts)
	}
	if notFound(resp) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetching file: %w", err)
	}
	return true, nil
}

// Info describes the GitHub repository.
func (g *GitHub) Info(ctx context.Context, repo *reviews.Repository) (map[string]interface{}, error) {
	owner, name, err := ownerAndName(repo)
	if err != nil {
		return nil, err
	}
	r, _, err := g.Client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetching repository: %w", err)
	}
	return map[string]interface{}{
		"id":             r.GetID(),
		"name":           r.GetName(),
		"full_name":      r.GetFullName(),
		"description":    r.GetDescription(),
		"default_branch": r.GetDefaultBranch(),
		"clone_url":      r.GetCloneURL(),
		"html_url":       r.GetHTMLURL(),
		"private":        r.GetPrivate(),
	}, nil
}
