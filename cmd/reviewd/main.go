// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command reviewd serves the review API over HTTP.
//
// Typical use:
//
//	reviewd -http :8080 -backend postgres:dbname=reviews -config reviewd.yaml
//
// Settings come from flags, then a YAML configuration file, then
// REVIEWAPI_* environment variables, which may be placed in a .env
// file.  Prometheus metrics are served at /metrics.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-reviewapi/auth"
	"github.com/diffeo/go-reviewapi/backend"
	"github.com/diffeo/go-reviewapi/blobstore"
	"github.com/diffeo/go-reviewapi/diffviewer"
	"github.com/diffeo/go-reviewapi/restserver"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/scm"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env-file", ".env", "file of REVIEWAPI_* environment settings")
	httpBind := flag.String("http", ":8080",
		"[ip]:port for HTTP REST interface")
	backend := backend.Backend{Implementation: "memory", Address: ""}
	flag.Var(&backend, "backend", "impl[:address] of the storage backend")
	config := flag.String("config", "", "global configuration YAML file")
	logRequests := flag.Bool("log-requests", false, "log all requests")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logrus.WithFields(logrus.Fields{
			"err":  err,
			"file": *envFile,
		}).Fatal("Could not load environment file")
	}
	if v := os.Getenv("REVIEWAPI_BACKEND"); v != "" && !flagSet("backend") {
		if err := backend.Set(v); err != nil {
			logrus.WithFields(logrus.Fields{
				"err": err,
			}).Fatal("Invalid REVIEWAPI_BACKEND")
		}
	}
	if v := os.Getenv("REVIEWAPI_HTTP"); v != "" && !flagSet("http") {
		*httpBind = v
	}

	gConfig, err := loadConfigYaml(*config)
	if err == nil {
		err = gConfig.applyEnv()
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not load YAML configuration")
	}

	backend.CacheSize = gConfig.CacheSize
	store, err := backend.Store()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not create review store")
	}
	if err := gConfig.Fixtures.seed(store); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not create fixtures")
	}

	service, err := newService(store, gConfig)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not set up the review service")
	}

	var reqLogger *logrus.Logger
	if *logRequests {
		stdlog := logrus.StandardLogger()
		reqLogger = &logrus.Logger{
			Out:       stdlog.Out,
			Formatter: stdlog.Formatter,
			Hooks:     stdlog.Hooks,
			Level:     logrus.DebugLevel,
		}
	}

	m := newMetrics()
	if err := m.register(prometheus.DefaultRegisterer); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not register metrics")
	}
	go m.observe(store, clock.New(), time.Minute)

	h := &HTTP{
		Service:   service,
		Options:   restserver.Options{Site: gConfig.Site},
		Limit:     gConfig.RateLimit,
		ReqLogger: reqLogger,
		Metrics:   m,
		Gatherer:  prometheus.DefaultGatherer,
	}
	logrus.WithFields(logrus.Fields{
		"http":    *httpBind,
		"backend": backend.Implementation,
	}).Info("Serving review API")
	if err := h.Serve(*httpBind); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("HTTP server failed")
	}
}

// flagSet returns true if the named flag was given on the command
// line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// newService wires a review service and its collaborators around a
// store.
func newService(store reviews.Store, config *Config) (*workflow.Service, error) {
	registry := scm.NewRegistry()
	if gh := config.SCM.GitHub; gh.Token != "" {
		var opts []scm.GitHubOption
		if gh.BaseURL != "" {
			opts = append(opts, scm.WithGitHubURL(gh.BaseURL))
		}
		tool, err := scm.NewGitHub(gh.Token, opts...)
		if err != nil {
			return nil, err
		}
		registry.Register("github", tool)
	}
	if gl := config.SCM.GitLab; gl.Token != "" {
		tool, err := scm.NewGitLab(gl.Token, gl.BaseURL)
		if err != nil {
			return nil, err
		}
		registry.Register("gitlab", tool)
	}

	service := &workflow.Service{
		Store:    store,
		Clock:    clock.New(),
		Users:    auth.StoreResolver{Store: store, AutoCreate: config.Auth.AutoCreateUsers},
		Notifier: workflow.LogNotifier{Logger: logrus.StandardLogger()},
		SCM:      registry,
		Parser:   diffviewer.Parser{},
		Renderer: diffviewer.Renderer{},
		Logger:   logrus.StandardLogger(),
	}
	if dir := config.Media.ScreenshotDir; dir != "" {
		files, err := blobstore.OpenDir(dir)
		if err != nil {
			return nil, err
		}
		service.Files = files
	}
	return service, nil
}
