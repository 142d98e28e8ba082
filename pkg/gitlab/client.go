// Package gitlab reads projects, issues, issue links, parents and epics from
// a GitLab instance.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"
)

// PageSize is the per_page value sent with list requests.
const PageSize = 100

// ErrEpicsUnavailable is returned when the group has no epics feature or the
// token may not read it.
var ErrEpicsUnavailable = errors.New("epics unavailable")

// Config holds connection settings.
type Config struct {
	BaseURL string
	Token   string
}

// Client wraps the GitLab API client with the calls the downloader needs.
type Client struct {
	api *gl.Client
}

// NewClient creates a client. A nil httpClient uses the library default; a
// nil limiter disables pacing.
func NewClient(cfg Config, httpClient *http.Client, limiter *rate.Limiter) (*Client, error) {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	opts := []gl.ClientOptionFunc{
		gl.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		gl.WithCustomLimiter(limiter),
	}
	if httpClient != nil {
		opts = append(opts, gl.WithHTTPClient(httpClient))
	}
	api, err := gl.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &Client{api: api}, nil
}

// NewLimiter returns a limiter allowing rps requests per second; zero means
// unlimited.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// collect requests pages until the response reports no next page.
func collect[T any](fetch func(opt gl.ListOptions) ([]T, *gl.Response, error)) ([]T, error) {
	var out []T
	opt := gl.ListOptions{PerPage: PageSize, Page: 1}
	for {
		items, resp, err := fetch(opt)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opt.Page = resp.NextPage
	}
}

// ListGroupProjects returns every project of the group.
func (c *Client) ListGroupProjects(ctx context.Context, group string) ([]*gl.Project, error) {
	out, err := collect(func(opt gl.ListOptions) ([]*gl.Project, *gl.Response, error) {
		return c.api.Groups.ListGroupProjects(group, &gl.ListGroupProjectsOptions{ListOptions: opt}, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects of group %s: %w", group, err)
	}
	return out, nil
}

// ListProjectIssues returns all issues of a project, open and closed.
func (c *Client) ListProjectIssues(ctx context.Context, projectID int) ([]*gl.Issue, error) {
	out, err := collect(func(opt gl.ListOptions) ([]*gl.Issue, *gl.Response, error) {
		return c.api.Issues.ListProjectIssues(projectID, &gl.ListProjectIssuesOptions{
			ListOptions: opt,
			State:       gl.Ptr("all"),
		}, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues of project %d: %w", projectID, err)
	}
	return out, nil
}

// ListIssueLinks returns the issues linked to one issue with the link type.
func (c *Client) ListIssueLinks(ctx context.Context, projectID, iid int) ([]*gl.IssueRelation, error) {
	out, _, err := c.api.IssueLinks.ListIssueRelations(projectID, iid, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list links of %d/%d: %w", projectID, iid, err)
	}
	return out, nil
}

// ListGroupEpics returns all epics of the group. Groups without the epics
// feature yield ErrEpicsUnavailable.
func (c *Client) ListGroupEpics(ctx context.Context, group string) ([]*gl.Epic, error) {
	out, err := collect(func(opt gl.ListOptions) ([]*gl.Epic, *gl.Response, error) {
		epics, resp, err := c.api.Epics.ListGroupEpics(group, &gl.ListGroupEpicsOptions{ListOptions: opt}, gl.WithContext(ctx))
		if err != nil && resp != nil &&
			(resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound) {
			err = fmt.Errorf("%w: %v", ErrEpicsUnavailable, err)
		}
		return epics, resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list epics of group %s: %w", group, err)
	}
	return out, nil
}

// ListEpicIssues returns the issues assigned to an epic.
func (c *Client) ListEpicIssues(ctx context.Context, group string, epicIID int) ([]*gl.Issue, error) {
	out, err := collect(func(opt gl.ListOptions) ([]*gl.Issue, *gl.Response, error) {
		return c.api.EpicIssues.ListEpicIssues(group, epicIID, &opt, gl.WithContext(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues of epic %d: %w", epicIID, err)
	}
	return out, nil
}

const parentQuery = `query($id: WorkItemID!) {
  workItem(id: $id) {
    widgets {
      __typename
      ... on WorkItemWidgetHierarchy {
        hasParent
        parent { id }
      }
    }
  }
}`

type parentResponse struct {
	Data struct {
		WorkItem *struct {
			Widgets []struct {
				Typename  string `json:"__typename"`
				HasParent bool   `json:"hasParent"`
				Parent    *struct {
					ID string `json:"id"`
				} `json:"parent"`
			} `json:"widgets"`
		} `json:"workItem"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// IssueParent looks up the parent work item of an issue through the
// hierarchy widget. It returns nil when the issue has no parent.
func (c *Client) IssueParent(ctx context.Context, uid int) (*int, error) {
	var resp parentResponse
	_, err := c.api.GraphQL.Do(gl.GraphQLQuery{
		Query:     parentQuery,
		Variables: map[string]any{"id": fmt.Sprintf("gid://gitlab/WorkItem/%d", uid)},
	}, &resp, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to query parent of %d: %w", uid, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql: %s", resp.Errors[0].Message)
	}
	if resp.Data.WorkItem == nil {
		return nil, nil
	}
	for _, w := range resp.Data.WorkItem.Widgets {
		if w.Typename != "WorkItemWidgetHierarchy" || !w.HasParent || w.Parent == nil {
			continue
		}
		return parseGlobalID(w.Parent.ID)
	}
	return nil, nil
}

// parseGlobalID turns "gid://gitlab/WorkItem/123" into 123.
func parseGlobalID(gid string) (*int, error) {
	idx := strings.LastIndex(gid, "/")
	id, err := strconv.Atoi(gid[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("malformed global id %q", gid)
	}
	return &id, nil
}
