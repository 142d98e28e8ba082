package ui

import (
	"fmt"
	"strings"

	"github.com/gliv-dev/gliv/pkg/model"
)

// IssueItem wraps model.Issue to implement list.Item
type IssueItem struct {
	Issue   *model.Issue
	Project string
}

func (i IssueItem) Title() string {
	return i.Issue.Title
}

func (i IssueItem) Description() string {
	return fmt.Sprintf("%s#%d %s • %s", i.Project, i.Issue.IID, i.Issue.Status, strings.Join(i.Issue.Labels, ", "))
}

func (i IssueItem) FilterValue() string {
	return i.Issue.Title + " " + i.Project + " " + strings.Join(i.Issue.Labels, " ")
}
