// Package auth provides Google OAuth2 authentication for mailrules.
//
// It reads the same credentials.json and token.json files used by the
// Python google-auth library, so existing tokens work without re-authentication.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Scopes needed to read messages and modify their labels.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
}

// ErrNoToken is returned when no token file exists and interactive
// authorization was not allowed.
var ErrNoToken = errors.New("no oauth token")

// pythonToken represents the token.json format written by Python's google-auth library.
type pythonToken struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

// Options controls how LoadGmailService obtains a token.
type Options struct {
	CredentialsPath string
	TokenPath       string

	// Interactive runs the browser consent flow when the token file is missing.
	Interactive bool
	// Prompt receives the consent URL during the interactive flow.
	Prompt io.Writer
	Logger *zap.Logger
}

// LoadGmailService returns an authenticated Gmail API service.
func LoadGmailService(ctx context.Context, opts Options) (*gmail.Service, error) {
	client, err := getClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("get oauth client: %w", err)
	}
	return gmail.NewService(ctx, option.WithHTTPClient(client))
}

// Logout deletes the stored token. A missing token is not an error.
func Logout(tokenPath string) error {
	if err := os.Remove(tokenPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token %s: %w", tokenPath, err)
	}
	return nil
}

// getClient returns an authenticated HTTP client by loading the OAuth config
// from credentials.json and the token from token.json.
func getClient(ctx context.Context, opts Options) (*http.Client, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	config, err := loadOAuthConfig(opts.CredentialsPath)
	if err != nil {
		return nil, err
	}

	token, err := loadPythonToken(opts.TokenPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !opts.Interactive {
			return nil, fmt.Errorf("%w at %s", ErrNoToken, opts.TokenPath)
		}
		token, err = authorize(ctx, config, opts.Prompt)
		if err != nil {
			return nil, fmt.Errorf("authorize: %w", err)
		}
		if err := savePythonToken(opts.TokenPath, token, config); err != nil {
			return nil, fmt.Errorf("save token: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load token from %s: %w", opts.TokenPath, err)
	}

	// Use a token source that auto-refreshes and save the refreshed token.
	ts := config.TokenSource(ctx, token)
	newToken, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	if newToken.AccessToken != token.AccessToken {
		if saveErr := savePythonToken(opts.TokenPath, newToken, config); saveErr != nil {
			// Non-fatal.
			log.Warn("could not save refreshed token", zap.String("path", opts.TokenPath), zap.Error(saveErr))
		}
	}

	return oauth2.NewClient(ctx, ts), nil
}

// authorize runs the installed-app consent flow with a loopback redirect.
func authorize(ctx context.Context, config *oauth2.Config, prompt io.Writer) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for redirect: %w", err)
	}
	defer ln.Close()

	cfg := *config
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := fmt.Sprintf("mr-%d", time.Now().UnixNano())
	codes := make(chan string, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			select {
			case codes <- code:
			default:
			}
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	if prompt != nil {
		fmt.Fprintf(prompt, "Open this URL in your browser to authorize mailrules:\n\n  %s\n\n",
			cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case code := <-codes:
		return cfg.Exchange(ctx, code)
	}
}

// loadOAuthConfig reads credentials.json and returns an OAuth2 config.
func loadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials from %s: %w", credentialsPath, err)
	}

	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	return config, nil
}

// loadPythonToken reads a token.json file in Python google-auth format
// and converts it to a Go oauth2.Token.
func loadPythonToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, err
	}

	var pt pythonToken
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	// Python writes ISO 8601 with microseconds.
	var expiry time.Time
	if pt.Expiry != "" {
		for _, layout := range []string{
			"2006-01-02T15:04:05.999999Z",
			time.RFC3339Nano,
		} {
			if t, err := time.Parse(layout, pt.Expiry); err == nil {
				expiry = t
				break
			}
		}
	}

	return &oauth2.Token{
		AccessToken:  pt.Token,
		RefreshToken: pt.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}, nil
}

// savePythonToken writes a token back in the Python google-auth format.
func savePythonToken(tokenPath string, token *oauth2.Token, config *oauth2.Config) error {
	pt := pythonToken{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     config.Endpoint.TokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       Scopes,
		Expiry:       token.Expiry.UTC().Format("2006-01-02T15:04:05.999999Z"),
	}

	data, err := json.MarshalIndent(pt, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath, data, 0o600)
}
