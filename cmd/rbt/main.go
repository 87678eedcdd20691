// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command rbt is a command-line client for the review API.
//
//	rbt --server http://localhost:8080/api/ --username alice post \
//	    --repository /svn/main --summary "Fix it" --diff fix.diff --publish
//
// Credentials may also come from RBT_SERVER, RBT_USERNAME and
// RBT_PASSWORD.  Every invocation sends a fresh X-Request-Id so its
// requests can be found in the server log.
package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/diffeo/go-reviewapi/restclient"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/satori/go.uuid"
	"github.com/urfave/cli"
)

// session holds what app.Before sets up for the commands.
type session struct {
	Client    *restclient.Client
	Username  string
	RequestID string
}

func newApp() *cli.App {
	s := &session{}
	app := cli.NewApp()
	app.Name = "rbt"
	app.Usage = "post and review changes on a review server"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "server",
			Value:  "http://localhost:8080/api/",
			Usage:  "URL of the API root",
			EnvVar: "RBT_SERVER",
		},
		cli.StringFlag{
			Name:   "username",
			Usage:  "user to log in as",
			EnvVar: "RBT_USERNAME",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "password of the user",
			EnvVar: "RBT_PASSWORD",
		},
	}
	app.Before = func(c *cli.Context) (err error) {
		s.Username = c.String("username")
		s.Client, err = restclient.New(c.String("server"), s.Username, c.String("password"))
		if err != nil {
			return
		}
		s.RequestID = uuid.NewV4().String()
		s.Client.SetHeader("X-Request-Id", s.RequestID)
		return
	}
	app.Commands = []cli.Command{
		s.postCommand(),
		s.publishCommand(),
		s.listCommand(),
		s.starCommand(),
		s.unstarCommand(),
		s.reviewCommand(),
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "rbt:", err)
		os.Exit(1)
	}
}

// requestID parses the review request ID argument.
func requestID(c *cli.Context) (int, error) {
	if c.NArg() != 1 {
		return 0, errors.New("expected one review request ID")
	}
	id, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return 0, fmt.Errorf("bad review request ID %q", c.Args().First())
	}
	return id, nil
}

// report prints the outcome of a command.
func (s *session) report(c *cli.Context, format string, args ...interface{}) {
	fmt.Fprintf(c.App.Writer, format+"\n", args...)
	fmt.Fprintf(c.App.Writer, "request id: %s\n", s.RequestID)
}

func (s *session) postCommand() cli.Command {
	return cli.Command{
		Name:  "post",
		Usage: "create a review request from a diff",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "repository", Usage: "repository ID or path"},
			cli.IntFlag{Name: "changenum", Usage: "change number in the repository"},
			cli.StringFlag{Name: "submit-as", Usage: "post on behalf of another user"},
			cli.StringFlag{Name: "summary", Usage: "one-line summary"},
			cli.StringFlag{Name: "description", Usage: "longer description"},
			cli.StringFlag{Name: "testing-done", Usage: "how the change was tested"},
			cli.StringFlag{Name: "branch", Usage: "branch the change applies to"},
			cli.StringFlag{Name: "bugs", Usage: "comma-separated bugs closed"},
			cli.StringFlag{Name: "target-people", Usage: "comma-separated reviewers"},
			cli.StringFlag{Name: "target-groups", Usage: "comma-separated review groups"},
			cli.StringFlag{Name: "diff", Usage: "file holding a unified diff"},
			cli.StringFlag{Name: "basedir", Usage: "directory the diff is relative to"},
			cli.BoolFlag{Name: "publish", Usage: "publish immediately"},
		},
		Action: func(c *cli.Context) error {
			rr, err := s.Client.CreateReviewRequest(restclient.NewReviewRequest{
				Repository: c.String("repository"),
				ChangeNum:  c.Int("changenum"),
				SubmitAs:   c.String("submit-as"),
			})
			if err != nil {
				return err
			}

			fields := url.Values{}
			for flag, field := range map[string]string{
				"summary":       "summary",
				"description":   "description",
				"testing-done":  "testing_done",
				"branch":        "branch",
				"bugs":          "bugs_closed",
				"target-people": "target_people",
				"target-groups": "target_groups",
			} {
				if c.IsSet(flag) {
					fields.Set(field, c.String(flag))
				}
			}
			if len(fields) > 0 {
				if _, err := s.Client.UpdateDraft(rr.ID, fields); err != nil {
					return err
				}
			}

			if filename := c.String("diff"); filename != "" {
				data, err := ioutil.ReadFile(filename)
				if err != nil {
					return err
				}
				if _, err := s.Client.UploadDiff(rr.ID, filename, data, c.String("basedir")); err != nil {
					return err
				}
			}

			if c.Bool("publish") {
				rr, err = s.Client.PublishDraft(rr.ID, nil)
				if err != nil {
					return err
				}
			}
			s.report(c, "review request #%d: %s", rr.ID, rr.Links["self"].Href)
			return nil
		},
	}
}

func (s *session) publishCommand() cli.Command {
	return cli.Command{
		Name:      "publish",
		Usage:     "publish the draft of a review request",
		ArgsUsage: "ID",
		Action: func(c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}
			rr, err := s.Client.PublishDraft(id, nil)
			if err != nil {
				return err
			}
			s.report(c, "published review request #%d", rr.ID)
			return nil
		},
	}
}

func (s *session) listCommand() cli.Command {
	return cli.Command{
		Name:  "list",
		Usage: "list review requests",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "from-user", Usage: "only requests by this user"},
			cli.StringFlag{Name: "to-users", Usage: "only requests to these users"},
			cli.StringFlag{Name: "to-groups", Usage: "only requests to these groups"},
			cli.StringFlag{Name: "status", Value: string(reviews.StatusPending), Usage: "pending, submitted, discarded or all"},
			cli.IntFlag{Name: "max-results", Value: 25, Usage: "list at most this many"},
		},
		Action: func(c *cli.Context) error {
			query := url.Values{}
			for _, name := range []string{"from-user", "to-users", "to-groups", "status"} {
				if v := c.String(name); v != "" {
					query.Set(name, v)
				}
			}
			query.Set("max-results", strconv.Itoa(c.Int("max-results")))
			list, total, err := s.Client.ReviewRequests(query)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSUBMITTER\tSUMMARY")
			for _, rr := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", rr.ID, rr.Status, rr.Links["submitter"].Title, rr.Summary)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			s.report(c, "%d of %d review requests", len(list), total)
			return nil
		},
	}
}

func (s *session) starCommand() cli.Command {
	return cli.Command{
		Name:      "star",
		Usage:     "add a review request to your watch list",
		ArgsUsage: "ID",
		Action: func(c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}
			if _, err := s.Client.Star(s.Username, id); err != nil {
				return err
			}
			s.report(c, "starred review request #%d", id)
			return nil
		},
	}
}

func (s *session) unstarCommand() cli.Command {
	return cli.Command{
		Name:      "unstar",
		Usage:     "remove a review request from your watch list",
		ArgsUsage: "ID",
		Action: func(c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}
			if err := s.Client.Unstar(s.Username, id); err != nil {
				return err
			}
			s.report(c, "unstarred review request #%d", id)
			return nil
		},
	}
}

func (s *session) reviewCommand() cli.Command {
	return cli.Command{
		Name:      "review",
		Usage:     "review a review request",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "ship-it", Usage: "mark the change as ready to ship"},
			cli.StringFlag{Name: "body", Usage: "text of the review"},
			cli.BoolFlag{Name: "publish", Usage: "publish the review"},
		},
		Action: func(c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}
			var ch restclient.ReviewChanges
			if c.IsSet("ship-it") {
				shipIt := c.Bool("ship-it")
				ch.ShipIt = &shipIt
			}
			if c.IsSet("body") {
				body := c.String("body")
				ch.BodyTop = &body
			}
			ch.Public = c.Bool("publish")
			r, err := s.Client.CreateReview(id, ch)
			if err != nil {
				return err
			}
			state := "saved"
			if r.Public {
				state = "published"
			}
			s.report(c, "%s review %d of review request #%d", state, r.ID, id)
			return nil
		},
	}
}
