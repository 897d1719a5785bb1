package webhook

import (
	"strconv"
	"strings"

	"github.com/ctf-labs/lab-publisher/pkg/publisher"
)

const (
	EventIssues = "issues"
	EventPing   = "ping"

	ActionLabeled = "labeled"
)

type User struct {
	Login string `json:"login"`
}

type Label struct {
	Name string `json:"name"`
}

type Issue struct {
	Number    int    `json:"number"`
	HTMLURL   string `json:"html_url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	User      User   `json:"user"`
}

// IssuesEvent is the subset of GitHub's "issues" webhook payload we read.
type IssuesEvent struct {
	Action string `json:"action"`
	Label  *Label `json:"label,omitempty"`
	Issue  Issue  `json:"issue"`
	Sender User   `json:"sender"`
}

func (e IssuesEvent) IsApproval(label string) bool {
	return e.Action == ActionLabeled && e.Label != nil && strings.EqualFold(e.Label.Name, label)
}

// ToInput maps the event onto pipeline input. The sender of the label event
// is the approver.
func (e IssuesEvent) ToInput() publisher.Input {
	number := ""
	if e.Issue.Number != 0 {
		number = strconv.Itoa(e.Issue.Number)
	}
	return publisher.Input{
		Body:        e.Issue.Body,
		Number:      number,
		URL:         e.Issue.HTMLURL,
		CreatedAt:   e.Issue.CreatedAt,
		SubmittedBy: e.Issue.User.Login,
		ApprovedBy:  e.Sender.Login,
	}
}
