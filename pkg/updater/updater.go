// Package updater checks the gliv release feed for a newer version.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultProject is the GitLab project gliv releases are published in.
const DefaultProject = "gliv-dev/gliv"

// HTTPClient is the subset of *http.Client the checker uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Release struct {
	TagName string `json:"tag_name"`
	Links   struct {
		Self string `json:"self"`
	} `json:"_links"`
}

// Checker looks up the latest release of a GitLab project.
type Checker struct {
	BaseURL string
	Project string
	Client  HTTPClient
}

// NewChecker returns a checker for project on the GitLab at baseURL.
func NewChecker(baseURL, project string) *Checker {
	return &Checker{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Project: project,
		// Short timeout to avoid blocking the command for too long
		Client: &http.Client{Timeout: 2 * time.Second},
	}
}

// CheckForUpdates returns the newer release tag and its URL, or empty strings
// when current is up to date.
func (c *Checker) CheckForUpdates(ctx context.Context, current string) (string, string, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/releases/permalink/latest", c.BaseURL, url.PathEscape(c.Project))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("release api returned status: %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", "", err
	}

	if compareVersions(rel.TagName, current) > 0 {
		return rel.TagName, rel.Links.Self, nil
	}
	return "", "", nil
}

// compareVersions returns 1 if v1 > v2, -1 if v1 < v2, 0 if equal.
// Segments are compared numerically; pre-release suffixes are ignored.
func compareVersions(v1, v2 string) int {
	a, b := segments(v1), segments(v2)
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}
	return 0
}

func segments(v string) []int {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var out []int
	for _, part := range strings.Split(v, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}
