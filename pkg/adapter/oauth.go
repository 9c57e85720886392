package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const revokeURL = "https://oauth2.googleapis.com/revoke"

// Scopes requested by the consent flow
var OAuthScopes = []string{
	drive.DriveFileScope,
	oauth2api.UserinfoProfileScope,
}

// OAuth runs the installed-app consent flow and keeps the token in a file
type OAuth struct {
	config    *oauth2.Config
	tokenPath string
	in        io.Reader
	out       io.Writer
	client    *http.Client
}

type OAuthOption func(*OAuth)

// WithConsentIO sets where the consent URL is printed and the code is read
func WithConsentIO(in io.Reader, out io.Writer) OAuthOption {
	return func(o *OAuth) {
		o.in = in
		o.out = out
	}
}

// WithHTTPClient sets the client used for the revoke call
func WithHTTPClient(client *http.Client) OAuthOption {
	return func(o *OAuth) {
		o.client = client
	}
}

// NewOAuthFromFile reads OAuth desktop app credentials from credentialsPath
func NewOAuthFromFile(credentialsPath, tokenPath string, opts ...OAuthOption) (*OAuth, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read credentials file", goerr.V("path", credentialsPath))
	}

	config, err := google.ConfigFromJSON(data, OAuthScopes...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse credentials, OAuth desktop app credentials are required",
			goerr.V("path", credentialsPath))
	}

	return NewOAuth(config, tokenPath, opts...), nil
}

// NewOAuth creates an OAuth token provider from an oauth2 config
func NewOAuth(config *oauth2.Config, tokenPath string, opts ...OAuthOption) *OAuth {
	o := &OAuth{
		config:    config,
		tokenPath: tokenPath,
		in:        os.Stdin,
		out:       os.Stdout,
		client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Cached returns a token source from the token file. ok is false when no
// token has been stored yet.
func (o *OAuth) Cached(ctx context.Context) (oauth2.TokenSource, bool, error) {
	data, err := os.ReadFile(o.tokenPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, goerr.Wrap(err, "failed to read token file", goerr.V("path", o.tokenPath))
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, false, goerr.Wrap(err, "failed to parse token file", goerr.V("path", o.tokenPath))
	}

	return o.config.TokenSource(ctx, &tok), true, nil
}

// Consent prints the consent URL, reads the authorization code and exchanges
// it for a token which is stored in the token file.
func (o *OAuth) Consent(ctx context.Context) (oauth2.TokenSource, error) {
	authURL := o.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(o.out, "Open the following URL in a browser and sign in with your Google account:\n\n%s\n\n", authURL)
	fmt.Fprint(o.out, "Paste the authorization code: ")

	line, err := bufio.NewReader(o.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, goerr.Wrap(err, "failed to read authorization code")
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return nil, goerr.New("authorization code is empty")
	}

	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange authorization code")
	}
	if err := o.saveToken(tok); err != nil {
		return nil, err
	}

	return o.config.TokenSource(ctx, tok), nil
}

func (o *OAuth) saveToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(o.tokenPath), 0o700); err != nil {
		return goerr.Wrap(err, "failed to create token directory", goerr.V("path", o.tokenPath))
	}

	f, err := os.OpenFile(o.tokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return goerr.Wrap(err, "failed to create token file", goerr.V("path", o.tokenPath))
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return goerr.Wrap(err, "failed to write token file", goerr.V("path", o.tokenPath))
	}
	return nil
}

// Profile fetches the signed-in user's profile
func (o *OAuth) Profile(ctx context.Context, ts oauth2.TokenSource) (*model.UserProfile, error) {
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create oauth2 service")
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch user profile")
	}

	return &model.UserProfile{
		ID:      info.Id,
		Name:    info.Name,
		Email:   info.Email,
		Picture: info.Picture,
	}, nil
}

// Revoke invalidates the token at Google and removes the token file
func (o *OAuth) Revoke(ctx context.Context, ts oauth2.TokenSource) error {
	if ts != nil {
		tok, err := ts.Token()
		if err != nil {
			return goerr.Wrap(err, "failed to get token to revoke")
		}

		form := url.Values{"token": {tok.AccessToken}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
		if err != nil {
			return goerr.Wrap(err, "failed to build revoke request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := o.client.Do(req)
		if err != nil {
			return goerr.Wrap(err, "failed to revoke token")
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return goerr.New("revoke endpoint returned an error",
				goerr.V("status", resp.StatusCode),
				goerr.V("body", string(body)),
			)
		}
	}

	if err := os.Remove(o.tokenPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove token file", goerr.V("path", o.tokenPath))
	}
	return nil
}
