package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inboxsweep/internal/model"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// SessionReader loads a user's stored session. A missing or expired session
// is reported as (nil, nil).
type SessionReader interface {
	GetSession(ctx context.Context, userID string) (*model.Session, error)
}

// Connector builds a Gmail mailbox from the credential a user delegated at login.
type Connector struct {
	oauth    *oauth2.Config
	sessions SessionReader
	opts     []option.ClientOption
}

func NewConnector(oauth *oauth2.Config, sessions SessionReader, opts ...option.ClientOption) *Connector {
	return &Connector{oauth: oauth, sessions: sessions, opts: opts}
}

func (c *Connector) Mailbox(ctx context.Context, userID string) (Mailbox, error) {
	sess, err := c.sessions.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credentials for %s: %w", userID, err)
	}
	if sess == nil || sess.Token == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrCredentialsMissing)
	}
	if !sess.Token.Valid() && sess.Token.RefreshToken == "" {
		return nil, fmt.Errorf("user %s: %w", userID, ErrAuthExpired)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(c.oauth.TokenSource(ctx, sess.Token))}, c.opts...)
	svc, err := gmailv1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewAPIMailbox(svc), nil
}

// SingleMailbox serves one mailbox regardless of user; the terminal client uses it.
type SingleMailbox struct {
	mb Mailbox
}

func NewSingleMailbox(mb Mailbox) SingleMailbox {
	return SingleMailbox{mb: mb}
}

func (s SingleMailbox) Mailbox(context.Context, string) (Mailbox, error) {
	return s.mb, nil
}

// NewServiceInteractive initializes a Gmail service for the terminal client
// from the client credentials and token cache in configDir:
//   - client_secret.json holds the OAuth client
//   - token.json caches the user's token
//
// When the cached token is missing or rejected, the auth URL is sent on
// uiEvents and the code is taken from the loopback redirect or userResponses.
func NewServiceInteractive(ctx context.Context, configDir string, uiEvents chan<- interface{}, userResponses <-chan string) (*gmailv1.Service, error) {
	credPath := filepath.Join(configDir, "client_secret.json")
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", credPath, err)
	}

	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}

	tokFile := filepath.Join(configDir, "token.json")
	if tok, err := readToken(tokFile); err == nil {
		// Validate the cached token by making a lightweight API call.
		svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
		if err == nil {
			_, err = svc.Users.GetProfile(user).Context(ctx).Do()
		}
		if err == nil {
			return svc, nil
		}
		os.Remove(tokFile)
	}

	tok, err := tokenFromWeb(ctx, cfg, uiEvents, userResponses)
	if err != nil {
		return nil, err
	}
	if err := saveToken(tokFile, tok); err != nil {
		return nil, err
	}

	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(tmp, path)
}

// tokenFromWeb runs a loopback HTTP server to capture the auth code, while
// also accepting a pasted code or redirect URL from userResponses.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config, uiEvents chan<- interface{}, userResponses <-chan string) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	oldRedirect := cfg.RedirectURL
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)
	defer func() { cfg.RedirectURL = oldRedirect }()

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	defer srv.Shutdown(context.Background())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})
	go func() { _ = srv.Serve(ln) }()

	uiEvents <- cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	var code string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case code = <-codeCh:
	case input := <-userResponses:
		if code, err = codeFromInput(input); err != nil {
			return nil, err
		}
	}

	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}

// codeFromInput accepts either the bare auth code or the full redirect URL.
func codeFromInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}
