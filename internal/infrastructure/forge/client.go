// Package forge adapts the relay's narrow ports.ForgeClient to a
// GitHub-compatible REST API via go-github, authenticated as a GitHub App
// installation via ghinstallation. A new Client is constructed per
// inbound request: ghinstallation mints the installation access token
// lazily on the first outbound call and caches it for the transport's
// lifetime, which — scoped to one request — satisfies the "mint at most
// once per request" contract without any explicit single-flight guard.
package forge

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"

	"forgerelay/internal/ports"
)

const userAgent = "forgerelay/1.0"

// Credentials configures GitHub App authentication.
type Credentials struct {
	AppID          int64
	InstallationID int64
	PrivateKey     *rsa.PrivateKey
	APIBaseURL     string // empty uses github.com
}

// Client implements ports.ForgeClient over a single installation-scoped
// *github.Client. Not safe to share across requests: construct one per
// inbound request via NewClient.
type Client struct {
	gh *github.Client
}

// NewClient builds a request-scoped forge client authenticated as creds'
// GitHub App installation.
func NewClient(creds Credentials) (*Client, error) {
	itr := ghinstallation.NewFromAppsTransport(
		ghinstallation.NewAppsTransportFromPrivateKey(http.DefaultTransport, creds.AppID, creds.PrivateKey),
		creds.InstallationID,
	)

	httpClient := &http.Client{Transport: itr}
	gh := github.NewClient(httpClient)
	gh.UserAgent = userAgent

	if creds.APIBaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(creds.APIBaseURL, creds.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure forge base url: %w", err)
		}
		gh.UserAgent = userAgent
	}

	return &Client{gh: gh}, nil
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo slug %q", repo)
	}
	return parts[0], parts[1], nil
}

func (c *Client) PRHeadSHA(ctx context.Context, repo string, pr int) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}

	pull, resp, err := c.gh.PullRequests.Get(ctx, owner, name, pr)
	if err != nil {
		if resp != nil && resp.Response != nil {
			return "", errorFromResponse(resp.Response)
		}
		return "", &ports.ForgeError{Status: 0, Body: err.Error()}
	}
	if pull.Head == nil || pull.Head.SHA == nil {
		return "", fmt.Errorf("forge: pr %d/%s has no head sha", pr, repo)
	}
	return strings.ToLower(*pull.Head.SHA), nil
}

func (c *Client) GetIssue(ctx context.Context, repo string, issue int) (*ports.Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	gi, resp, err := c.gh.Issues.Get(ctx, owner, name, issue)
	if err != nil {
		if resp != nil && resp.Response != nil {
			return nil, errorFromResponse(resp.Response)
		}
		return nil, &ports.ForgeError{Status: 0, Body: err.Error()}
	}

	labels := make([]string, 0, len(gi.Labels))
	for _, l := range gi.Labels {
		if l != nil && l.Name != nil {
			labels = append(labels, *l.Name)
		}
	}
	assignees := make([]string, 0, len(gi.Assignees))
	for _, a := range gi.Assignees {
		if a != nil && a.Login != nil {
			assignees = append(assignees, *a.Login)
		}
	}

	return &ports.Issue{Number: issue, Labels: labels, Assignees: assignees}, nil
}

func (c *Client) ListComments(ctx context.Context, repo string, issue int, page int) ([]ports.Comment, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: 100},
	}
	comments, resp, err := c.gh.Issues.ListComments(ctx, owner, name, issue, opts)
	if err != nil {
		if resp != nil && resp.Response != nil {
			return nil, errorFromResponse(resp.Response)
		}
		return nil, &ports.ForgeError{Status: 0, Body: err.Error()}
	}

	out := make([]ports.Comment, 0, len(comments))
	for _, c := range comments {
		if c == nil || c.ID == nil {
			continue
		}
		body := ""
		if c.Body != nil {
			body = *c.Body
		}
		out = append(out, ports.Comment{ID: *c.ID, Body: body})
	}
	return out, nil
}

func (c *Client) CreateComment(ctx context.Context, repo string, issue int, body string) (*ports.Comment, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	created, resp, err := c.gh.Issues.CreateComment(ctx, owner, name, issue, &github.IssueComment{Body: &body})
	if err != nil {
		if resp != nil && resp.Response != nil {
			return nil, errorFromResponse(resp.Response)
		}
		return nil, &ports.ForgeError{Status: 0, Body: err.Error()}
	}
	if created.ID == nil {
		return nil, fmt.Errorf("forge: created comment missing id")
	}
	return &ports.Comment{ID: *created.ID, Body: body}, nil
}

func (c *Client) UpdateComment(ctx context.Context, repo string, commentID int64, body string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.Issues.EditComment(ctx, owner, name, commentID, &github.IssueComment{Body: &body})
	if err != nil {
		if resp != nil && resp.Response != nil {
			return errorFromResponse(resp.Response)
		}
		return &ports.ForgeError{Status: 0, Body: err.Error()}
	}
	return nil
}

// CloseIssue closes an issue. It backs the v1 convenience wrapper only;
// the core v2 pipeline never closes issues.
func (c *Client) CloseIssue(ctx context.Context, repo string, issue int) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	state := "closed"
	_, resp, err := c.gh.Issues.Edit(ctx, owner, name, issue, &github.IssueRequest{State: &state})
	if err != nil {
		if resp != nil && resp.Response != nil {
			return errorFromResponse(resp.Response)
		}
		return &ports.ForgeError{Status: 0, Body: err.Error()}
	}
	return nil
}

func (c *Client) PutLabels(ctx context.Context, repo string, issue int, labels []string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.Issues.ReplaceLabelsForIssue(ctx, owner, name, issue, labels)
	if err != nil {
		if resp != nil && resp.Response != nil {
			return errorFromResponse(resp.Response)
		}
		return &ports.ForgeError{Status: 0, Body: err.Error()}
	}
	return nil
}
