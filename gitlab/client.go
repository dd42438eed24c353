// /home/krylon/go/src/github.com/blicero/glping/gitlab/client.go
// -*- mode: go; coding: utf-8; -*-
// Created on 08. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 16:48:02 krylon>

// Package gitlab is the thin REST layer between us and the GitLab
// API. It knows about authentication, pagination and retries, and
// hands back typed records; everything smarter happens elsewhere.
//
// An empty result is not an error here. Errors mean the fetch
// itself failed, and they carry a retryable/permanent classification
// so callers do not need broad catch-and-ignore logic.
package gitlab

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/logdomain"
	"github.com/blicero/glping/objects"
	"github.com/cenkalti/backoff"
	"github.com/pquerna/ffjson/ffjson"
)

const (
	apiPrefix  = "/api/v4"
	perPage    = 100
	maxRetries = 3
	reqTimeout = time.Second * 30
)

// FetchError says a call to the API failed, and whether trying again
// might help.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
} // func (e *FetchError) Error() string

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable returns true if the failure was transient (network
// trouble, rate limiting, server-side errors).
func (e *FetchError) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
} // func (e *FetchError) Retryable() bool

// ProjectFilter narrows the project list we ask the server for.
type ProjectFilter struct {
	Membership  bool
	ProjectID   int64
	ActiveAfter time.Time
}

// Client talks to one GitLab instance.
type Client struct {
	baseURL string
	token   string
	web     http.Client
	log     *log.Logger
}

// NewClient creates a Client for the given instance URL and private
// token.
func NewClient(baseURL, token string) (*Client, error) {
	var (
		err error
		c   = &Client{
			baseURL: strings.TrimRight(baseURL, "/"),
			token:   token,
			web: http.Client{
				Timeout: reqTimeout,
			},
		}
	)

	if c.log, err = common.GetLogger(logdomain.Fetch); err != nil {
		return nil, err
	}

	return c, nil
} // func NewClient(baseURL, token string) (*Client, error)

// BaseURL returns the instance URL the Client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
} // func (c *Client) BaseURL() string

// get performs one GET request against the API, retrying transient
// failures with exponential backoff.
func (c *Client) get(path string, params url.Values) ([]byte, error) {
	var (
		body []byte
		addr = c.baseURL + apiPrefix + path
	)

	if len(params) > 0 {
		addr += "?" + params.Encode()
	}

	var op = func() error {
		var (
			err error
			req *http.Request
			res *http.Response
		)

		if req, err = http.NewRequest(http.MethodGet, addr, nil); err != nil {
			return backoff.Permanent(&FetchError{Op: path, Err: err})
		}

		req.Header.Set("PRIVATE-TOKEN", c.token)

		if res, err = c.web.Do(req); err != nil {
			return &FetchError{Op: path, Err: err}
		}

		defer res.Body.Close() // nolint: errcheck

		var ferr = &FetchError{Op: path, Status: res.StatusCode}

		switch {
		case res.StatusCode == http.StatusOK:
			// continue below
		case ferr.Retryable():
			return ferr
		default:
			return backoff.Permanent(ferr)
		}

		if body, err = io.ReadAll(res.Body); err != nil {
			return &FetchError{Op: path, Err: err}
		}

		return nil
	}

	var err = backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries))
	if err != nil {
		c.log.Printf("[ERROR] GET %s failed: %s\n",
			path,
			err.Error())
		return nil, err
	}

	return body, nil
} // func (c *Client) get(path string, params url.Values) ([]byte, error)

// TestConnection asks the API who we are. It doubles as the startup
// credential check.
func (c *Client) TestConnection() (string, error) {
	var (
		err  error
		body []byte
		user objects.User
	)

	if body, err = c.get("/user", nil); err != nil {
		return "", err
	} else if err = ffjson.Unmarshal(body, &user); err != nil {
		return "", &FetchError{Op: "/user", Err: err}
	}

	return fmt.Sprintf("%s (%s)", user.Name, user.Username), nil
} // func (c *Client) TestConnection() (string, error)

// FetchProjects returns the projects matching the filter. With a
// ProjectID set, it returns just that project; otherwise it pages
// through the membership list, narrowed server-side by ActiveAfter
// when one is given.
func (c *Client) FetchProjects(f ProjectFilter) ([]objects.Project, error) {
	if f.ProjectID != 0 {
		var (
			err  error
			body []byte
			proj objects.Project
			path = fmt.Sprintf("/projects/%d", f.ProjectID)
		)

		if body, err = c.get(path, nil); err != nil {
			return nil, err
		} else if err = ffjson.Unmarshal(body, &proj); err != nil {
			return nil, &FetchError{Op: path, Err: err}
		}

		return []objects.Project{proj}, nil
	}

	var params = make(url.Values)
	params.Set("membership", fmt.Sprintf("%t", f.Membership))
	params.Set("simple", "true")
	if !f.ActiveAfter.IsZero() {
		params.Set("last_activity_after", f.ActiveAfter.UTC().Format(time.RFC3339))
	}

	var projects []objects.Project
	var err = c.paged("/projects", params, func(body []byte) (int, error) {
		var page []objects.Project
		if err := ffjson.Unmarshal(body, &page); err != nil {
			return 0, err
		}
		projects = append(projects, page...)
		return len(page), nil
	})

	return projects, err
} // func (c *Client) FetchProjects(f ProjectFilter) ([]objects.Project, error)

// FetchProjectEvents returns the project's native timeline events.
// The server-side after filter has day granularity only, so callers
// must re-filter client-side.
func (c *Client) FetchProjectEvents(projectID int64, after time.Time) ([]objects.Event, error) {
	var params = make(url.Values)
	if !after.IsZero() {
		params.Set("after", after.UTC().Format(common.TimestampFormatDate))
	}

	var events []objects.Event
	var err = c.paged(fmt.Sprintf("/projects/%d/events", projectID), params,
		func(body []byte) (int, error) {
			var page []objects.Event
			if err := ffjson.Unmarshal(body, &page); err != nil {
				return 0, err
			}
			events = append(events, page...)
			return len(page), nil
		})

	return events, err
} // func (c *Client) FetchProjectEvents(projectID int64, after time.Time) ([]objects.Event, error)

// FetchProjectPipelines returns the project's pipelines, narrowed to
// those updated after the given time.
func (c *Client) FetchProjectPipelines(projectID int64, updatedAfter time.Time) ([]objects.Pipeline, error) {
	var params = make(url.Values)
	if !updatedAfter.IsZero() {
		params.Set("updated_after", updatedAfter.UTC().Format(time.RFC3339))
	}

	var pipelines []objects.Pipeline
	var err = c.paged(fmt.Sprintf("/projects/%d/pipelines", projectID), params,
		func(body []byte) (int, error) {
			var page []objects.Pipeline
			if err := ffjson.Unmarshal(body, &page); err != nil {
				return 0, err
			}
			pipelines = append(pipelines, page...)
			return len(page), nil
		})

	return pipelines, err
} // func (c *Client) FetchProjectPipelines(projectID int64, updatedAfter time.Time) ([]objects.Pipeline, error)

// FetchProjectJobs returns the project's CI jobs.
func (c *Client) FetchProjectJobs(projectID int64, updatedAfter time.Time) ([]objects.Job, error) {
	var params = make(url.Values)
	if !updatedAfter.IsZero() {
		params.Set("updated_after", updatedAfter.UTC().Format(time.RFC3339))
	}

	var jobs []objects.Job
	var err = c.paged(fmt.Sprintf("/projects/%d/jobs", projectID), params,
		func(body []byte) (int, error) {
			var page []objects.Job
			if err := ffjson.Unmarshal(body, &page); err != nil {
				return 0, err
			}
			jobs = append(jobs, page...)
			return len(page), nil
		})

	return jobs, err
} // func (c *Client) FetchProjectJobs(projectID int64, updatedAfter time.Time) ([]objects.Job, error)

// FetchProjectDeployments returns the project's deployments.
func (c *Client) FetchProjectDeployments(projectID int64, updatedAfter time.Time) ([]objects.Deployment, error) {
	var params = make(url.Values)
	if !updatedAfter.IsZero() {
		params.Set("updated_after", updatedAfter.UTC().Format(time.RFC3339))
	}

	var deployments []objects.Deployment
	var err = c.paged(fmt.Sprintf("/projects/%d/deployments", projectID), params,
		func(body []byte) (int, error) {
			var page []objects.Deployment
			if err := ffjson.Unmarshal(body, &page); err != nil {
				return 0, err
			}
			deployments = append(deployments, page...)
			return len(page), nil
		})

	return deployments, err
} // func (c *Client) FetchProjectDeployments(projectID int64, updatedAfter time.Time) ([]objects.Deployment, error)

// FetchProjectReleases returns the project's releases.
func (c *Client) FetchProjectReleases(projectID int64) ([]objects.Release, error) {
	var releases []objects.Release
	var err = c.paged(fmt.Sprintf("/projects/%d/releases", projectID), nil,
		func(body []byte) (int, error) {
			var page []objects.Release
			if err := ffjson.Unmarshal(body, &page); err != nil {
				return 0, err
			}
			releases = append(releases, page...)
			return len(page), nil
		})

	return releases, err
} // func (c *Client) FetchProjectReleases(projectID int64) ([]objects.Release, error)

// FetchProjectMembers returns the project's members.
func (c *Client) FetchProjectMembers(projectID int64) ([]objects.Member, error) {
	var members []objects.Member
	var err = c.paged(fmt.Sprintf("/projects/%d/members", projectID), nil,
		func(body []byte) (int, error) {
			var page []objects.Member
			if err := ffjson.Unmarshal(body, &page); err != nil {
				return 0, err
			}
			members = append(members, page...)
			return len(page), nil
		})

	return members, err
} // func (c *Client) FetchProjectMembers(projectID int64) ([]objects.Member, error)

// paged loops over the endpoint's pages until a short page signals
// the end. consume unmarshals one page and reports how many records
// it held.
func (c *Client) paged(path string, params url.Values, consume func(body []byte) (int, error)) error {
	if params == nil {
		params = make(url.Values)
	}

	params.Set("per_page", fmt.Sprintf("%d", perPage))

	for page := 1; ; page++ {
		var (
			err  error
			body []byte
			cnt  int
		)

		params.Set("page", fmt.Sprintf("%d", page))

		if body, err = c.get(path, params); err != nil {
			return err
		} else if cnt, err = consume(body); err != nil {
			return &FetchError{Op: path, Err: err}
		}

		if cnt < perPage {
			return nil
		}
	}
} // func (c *Client) paged(...) error
