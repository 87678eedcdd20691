// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/diffeo/go-reviewapi/auth"
	"github.com/diffeo/go-reviewapi/restserver"
	"github.com/diffeo/go-reviewapi/reviews"
	"gopkg.in/yaml.v2"
)

// Config is the contents of the YAML configuration file.
type Config struct {
	Site      restserver.Site `yaml:"site"`
	Auth      AuthConfig      `yaml:"auth"`
	Media     MediaConfig     `yaml:"media"`
	SCM       SCMConfig       `yaml:"scm"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Fixtures  Fixtures        `yaml:"fixtures"`
	// CacheSize is the number of objects to cache in front of
	// the store; zero disables the cache.
	CacheSize int `yaml:"cache_size"`
}

// AuthConfig controls account handling.
type AuthConfig struct {
	// AutoCreateUsers provisions unknown users named as review
	// targets.
	AutoCreateUsers bool `yaml:"auto_create_users"`
}

// MediaConfig says where uploaded files live.
type MediaConfig struct {
	// ScreenshotDir is a directory for screenshot uploads.  If
	// empty, screenshots cannot be uploaded.
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// SCMConfig configures the hosted repository tools.
type SCMConfig struct {
	GitHub HostConfig `yaml:"github"`
	GitLab HostConfig `yaml:"gitlab"`
}

// HostConfig holds the credentials of one hosting service.  The tool
// is only registered if Token is set.
type HostConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// RateLimitConfig configures the per-server request limit.  A zero
// RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Fixtures are objects created at startup if they do not exist.
type Fixtures struct {
	Users        []UserFixture       `yaml:"users"`
	Groups       []GroupFixture      `yaml:"groups"`
	Repositories []RepositoryFixture `yaml:"repositories"`
}

// UserFixture describes one account.
type UserFixture struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Superuser bool   `yaml:"superuser"`
}

// GroupFixture describes one review group.
type GroupFixture struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	MailingList string   `yaml:"mailing_list"`
	InviteOnly  bool     `yaml:"invite_only"`
	Visible     *bool    `yaml:"visible"`
	Members     []string `yaml:"members"`
}

// RepositoryFixture describes one repository.
type RepositoryFixture struct {
	Name       string   `yaml:"name"`
	Path       string   `yaml:"path"`
	MirrorPath string   `yaml:"mirror_path"`
	Tool       string   `yaml:"tool"`
	Public     *bool    `yaml:"public"`
	Users      []string `yaml:"users"`
}

func loadConfigYaml(filename string) (*Config, error) {
	config := &Config{}
	if filename == "" {
		return config, nil
	}
	bytes, err := ioutil.ReadFile(filename)
	if err == nil {
		err = yaml.UnmarshalStrict(bytes, config)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return config, nil
}

// applyEnv overrides configuration from REVIEWAPI_* environment
// variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("REVIEWAPI_SITE_URL"); v != "" {
		c.Site.URL = v
	}
	if v := os.Getenv("REVIEWAPI_SCREENSHOT_DIR"); v != "" {
		c.Media.ScreenshotDir = v
	}
	if v := os.Getenv("REVIEWAPI_GITHUB_TOKEN"); v != "" {
		c.SCM.GitHub.Token = v
	}
	if v := os.Getenv("REVIEWAPI_GITLAB_TOKEN"); v != "" {
		c.SCM.GitLab.Token = v
	}
	if v := os.Getenv("REVIEWAPI_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("REVIEWAPI_RATE_LIMIT: %w", err)
		}
		c.RateLimit.RequestsPerSecond = rps
	}
	return nil
}

func boolOr(b *bool, dflt bool) bool {
	if b == nil {
		return dflt
	}
	return *b
}

// seed creates the fixtures that do not already exist.  Existing
// objects are left as they are.
func (f *Fixtures) seed(store reviews.Store) error {
	for _, uf := range f.Users {
		if _, err := store.User(uf.Username); err == nil {
			continue
		} else if !reviews.IsNotFound(err) {
			return err
		}
		user := &reviews.User{
			Username:    uf.Username,
			Email:       uf.Email,
			FirstName:   uf.FirstName,
			LastName:    uf.LastName,
			IsSuperuser: uf.Superuser,
		}
		if uf.Password != "" {
			hash, err := auth.HashPassword(uf.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		if err := store.CreateUser(user); err != nil {
			return fmt.Errorf("user %q: %w", uf.Username, err)
		}
	}
	for _, gf := range f.Groups {
		if _, err := store.Group(gf.Name); err == nil {
			continue
		} else if !reviews.IsNotFound(err) {
			return err
		}
		group := &reviews.Group{
			Name:        gf.Name,
			DisplayName: gf.DisplayName,
			MailingList: gf.MailingList,
			InviteOnly:  gf.InviteOnly,
			Visible:     boolOr(gf.Visible, true),
			Members:     gf.Members,
		}
		if err := store.CreateGroup(group); err != nil {
			return fmt.Errorf("group %q: %w", gf.Name, err)
		}
	}
	for _, rf := range f.Repositories {
		if _, err := store.RepositoryByPath(rf.Path); err == nil {
			continue
		} else if !reviews.IsNotFound(err) {
			return err
		}
		repo := &reviews.Repository{
			Name:       rf.Name,
			Path:       rf.Path,
			MirrorPath: rf.MirrorPath,
			Tool:       rf.Tool,
			Public:     boolOr(rf.Public, true),
			Users:      rf.Users,
		}
		if err := store.CreateRepository(repo); err != nil {
			return fmt.Errorf("repository %q: %w", rf.Path, err)
		}
	}
	return nil
}
