package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vovakirdan/ircgate/internal/core"
)

// logoutConfirmation is shown by the backend after a successful logout.
const logoutConfirmation = "Úspěšné odhlášení"

// Login authenticates a registered account.
func (c *Client) Login(ctx context.Context, identifier, secret string) error {
	c.log.Info().Str("user", identifier).Msg("logging in")
	return c.login(ctx, url.Values{
		"email":    {identifier},
		"password": {secret},
	})
}

// LoginAnonymous enters the chat with a throwaway nickname.
func (c *Client) LoginAnonymous(ctx context.Context, nickname string, gender core.Gender) error {
	c.log.Info().Str("nick", nickname).Str("gender", string(gender)).Msg("logging in anonymously")
	return c.login(ctx, url.Values{
		"nick": {nickname},
		"sex":  {string(gender)},
	})
}

func (c *Client) login(ctx context.Context, form url.Values) error {
	// The login form only accepts posts carrying the cookies from its own page.
	if _, err := c.get(ctx, pathLogin); err != nil {
		return err
	}

	body, err := c.post(ctx, pathLogin, form)
	if err != nil {
		return err
	}

	doc, err := parseHTML(body)
	if err != nil {
		return core.LoginError("unreadable login response")
	}
	if isLoggedPage(doc) {
		c.log.Info().Msg("login successful")
		return nil
	}
	if alert := doc.Find("div.alert").First(); alert.Length() > 0 {
		return core.LoginError("%s", alertReason(alert.Text()))
	}
	return core.LoginError("Failed to login for unknown reason.")
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	body, err := c.get(ctx, pathLogout)
	if err != nil {
		return err
	}
	if !bytes.Contains(body, []byte(logoutConfirmation)) {
		return core.LogoutError("Logout failed!")
	}
	c.log.Info().Msg("logout successful")
	return nil
}

// PollHeader refreshes the page header, which keeps the session alive.
func (c *Client) PollHeader(ctx context.Context) error {
	_, err := c.post(ctx, pathHeader, nil)
	return err
}

func parseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// isLoggedPage reports whether the page is rendered for a logged-in user.
func isLoggedPage(doc *goquery.Document) bool {
	return doc.Find("li#nav-user").Length() > 0
}

// alertReason drops the alert's close-button line and joins the rest.
func alertReason(text string) string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	switch len(lines) {
	case 0:
		return "Failed to login for unknown reason."
	case 1:
		return lines[0]
	default:
		return strings.Join(lines[1:], " ")
	}
}
