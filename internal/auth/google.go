package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inboxsweep/internal/model"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/idtoken"
)

// Scopes requested at login: profile for the session, gmail.modify for labels.
var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	gmailv1.GmailModifyScope,
}

// Google runs the authorization-code login against Google.
type Google struct {
	oauth *oauth2.Config
	now   func() time.Time
}

func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       Scopes,
		},
		now: time.Now,
	}
}

// OAuthConfig exposes the client config so mailbox calls can refresh tokens.
func (g *Google) OAuthConfig() *oauth2.Config {
	return g.oauth
}

func (g *Google) AuthURL() string {
	return g.oauth.AuthCodeURL("",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for tokens, verifies the ID token and
// returns the session to store for the user.
func (g *Google) Exchange(ctx context.Context, code string) (model.Session, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return model.Session{}, fmt.Errorf("token exchange: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return model.Session{}, errors.New("token response has no id_token")
	}
	payload, err := idtoken.Validate(ctx, raw, g.oauth.ClientID)
	if err != nil {
		return model.Session{}, fmt.Errorf("verify id token: %w", err)
	}
	return model.Session{
		UserID:    payload.Subject,
		Email:     claimString(payload.Claims, "email"),
		Name:      claimString(payload.Claims, "name"),
		Picture:   claimString(payload.Claims, "picture"),
		Token:     tok,
		LoginTime: g.now(),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
