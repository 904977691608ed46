package forge

import (
	"context"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"forgerelay/internal/ports"
)

// NewPATClient builds a forge client authenticated with a static
// personal-access token, for the v1 directive/comment/close/labels
// convenience wrappers. Unlike NewClient it has no per-request token
// minting step — the token is supplied whole by configuration.
func NewPATClient(ctx context.Context, token string, apiBaseURL string) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)

	gh := github.NewClient(httpClient)
	gh.UserAgent = userAgent

	if apiBaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(apiBaseURL, apiBaseURL)
		if err != nil {
			return nil, err
		}
		gh.UserAgent = userAgent
	}

	return &Client{gh: gh}, nil
}

var _ ports.ForgeClient = (*Client)(nil)
