// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/diffeo/go-reviewapi/auth"
	"github.com/diffeo/go-reviewapi/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
site:
  name: Reviews
  url: https://reviews.example.com/
  administrators:
    - name: Admin
      email: admin@example.com
auth:
  auto_create_users: true
rate_limit:
  requests_per_second: 20
  burst: 5
fixtures:
  users:
    - username: alice
      password: secret
      superuser: true
  groups:
    - name: qa
      display_name: Quality Assurance
      members: [alice]
  repositories:
    - name: main
      path: /svn/main
      tool: github
      public: false
      users: [alice]
`

func writeConfig(t *testing.T, text string) string {
	filename := filepath.Join(t.TempDir(), "reviewd.yaml")
	require.NoError(t, ioutil.WriteFile(filename, []byte(text), 0644))
	return filename
}

func TestLoadConfig(t *testing.T) {
	config, err := loadConfigYaml(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "Reviews", config.Site.Name)
	if assert.Len(t, config.Site.Administrators, 1) {
		assert.Equal(t, "admin@example.com", config.Site.Administrators[0].Email)
	}
	assert.True(t, config.Auth.AutoCreateUsers)
	assert.Equal(t, 20.0, config.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, config.RateLimit.Burst)
	assert.Len(t, config.Fixtures.Users, 1)
}

func TestLoadConfigEmpty(t *testing.T) {
	config, err := loadConfigYaml("")
	if assert.NoError(t, err) {
		assert.Equal(t, &Config{}, config)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	_, err := loadConfigYaml(writeConfig(t, "sight:\n  name: typo\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("REVIEWAPI_SITE_URL", "http://elsewhere/")
	t.Setenv("REVIEWAPI_RATE_LIMIT", "2.5")
	config := &Config{}
	require.NoError(t, config.applyEnv())
	assert.Equal(t, "http://elsewhere/", config.Site.URL)
	assert.Equal(t, 2.5, config.RateLimit.RequestsPerSecond)

	t.Setenv("REVIEWAPI_RATE_LIMIT", "fast")
	assert.Error(t, config.applyEnv())
}

func TestSeedFixtures(t *testing.T) {
	config, err := loadConfigYaml(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	store := memory.New()
	require.NoError(t, config.Fixtures.seed(store))

	alice, err := store.User("alice")
	if assert.NoError(t, err) {
		assert.True(t, alice.IsSuperuser)
		assert.True(t, auth.CheckPassword(alice, "secret"))
	}
	qa, err := store.Group("qa")
	if assert.NoError(t, err) {
		assert.True(t, qa.Visible)
		assert.True(t, qa.HasMember("alice"))
	}
	repo, err := store.RepositoryByPath("/svn/main")
	if assert.NoError(t, err) {
		assert.False(t, repo.Public)
		assert.Equal(t, []string{"alice"}, repo.Users)
	}

	// Seeding again changes nothing
	require.NoError(t, config.Fixtures.seed(store))
	repos, err := store.Repositories()
	if assert.NoError(t, err) {
		assert.Len(t, repos, 1)
	}
}

func TestNewService(t *testing.T) {
	config := &Config{}
	config.SCM.GitHub.Token = "token"
	config.Media.ScreenshotDir = t.TempDir()
	service, err := newService(memory.New(), config)
	require.NoError(t, err)
	assert.NotNil(t, service.Files)
	assert.NotNil(t, service.SCM)
}
