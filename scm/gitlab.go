// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/xanzy/go-gitlab"
)

// GitLab is a repository tool for repositories hosted on GitLab.
// Change numbers are merge request IIDs.
type GitLab struct {
	Client *gitlab.Client
}

// NewGitLab creates a GitLab tool.  baseURL is the server root, such
// as "https://gitlab.example.com"; empty means gitlab.com.
func NewGitLab(token, baseURL string) (*GitLab, error) {
	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/api/v4"))
	}
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, err
	}
	return &GitLab{Client: client}, nil
}

func gitlabNotFound(resp *gitlab.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// Changeset fetches a merge request and the files it changes.
func (g *GitLab) Changeset(ctx context.Context, repo *reviews.Repository, changenum int) (*reviews.Changeset, error) {
	pid := projectPath(repo.Path)
	mr, resp, err := g.Client.MergeRequests.GetMergeRequest(pid, changenum, nil, gitlab.WithContext(ctx))
	if gitlabNotFound(resp) {
		return nil, reviews.ErrInvalidChangeNumber
	}
	if err != nil {
		return nil, fmt.Errorf("fetching merge request: %w", err)
	}
	changes, _, err := g.Client.MergeRequests.GetMergeRequestChanges(pid, changenum, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching merge request changes: %w", err)
	}
	cs := &reviews.Changeset{
		ChangeNum:   mr.IID,
		Summary:     mr.Title,
		Description: mr.Description,
		Branch:      mr.SourceBranch,
	}
	for _, c := range changes.Changes {
		cs.Files = append(cs.Files, c.NewPath)
	}
	return cs, nil
}

// FileExists checks a file's metadata at a ref.
func (g *GitLab) FileExists(ctx context.Context, repo *reviews.Repository, path, revision string) (bool, error) {
	pid := projectPath(repo.Path)
	ref := revision
	if isRevisionless(ref) {
		project, _, err := g.Client.Projects.GetProject(pid, nil, gitlab.WithContext(ctx))
		if err != nil {
			return false, fmt.Errorf("fetching project: %w", err)
		}
		ref = project.DefaultBranch
	}
	_, resp, err := g.Client.RepositoryFiles.GetFileMetaData(pid, strings.TrimPrefix(path, "/"),
		&gitlab.GetFileMetaDataOptions{Ref: gitlab.Ptr(ref)}, gitlab.WithContext(ctx))
	if gitlabNotFound(resp) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetching file metadata: %w", err)
	}
	return true, nil
}

// Info describes the GitLab project.
func (g *GitLab) Info(ctx context.Context, repo *reviews.Repository) (map[string]interface{}, error) {
	project, _, err := g.Client.Projects.GetProject(projectPath(repo.Path), nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching project: %w", err)
	}
	return map[string]interface{}{
		"id":             project.ID,
		"name":           project.Name,
		"full_name":      project.PathWithNamespace,
		"description":    project.Description,
		"default_branch": project.DefaultBranch,
		"clone_url":      project.HTTPURLToRepo,
		"html_url":       project.WebURL,
		"private":        project.Visibility == gitlab.PrivateVisibility,
	}, nil
}
