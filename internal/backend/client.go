// Package backend talks HTTP to the chat web service: login and logout,
// room pages, and the JSON polling endpoints.
package backend

import (
	"context"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircgate/internal/config"
	"github.com/vovakirdan/ircgate/internal/core"
)

const (
	pathLogin        = "/login"
	pathLogout       = "/logout"
	pathLeaveRoom    = "/leaveRoom/"
	pathProfile      = "/p/"
	pathHeader       = "/json/getHeader"
	pathText         = "/json/getText"
	pathRoomUserTime = "/json/getRoomUserTime"
)

// Client holds the cookie jar and headers of one backend session.
// It is safe for concurrent use; callers serialize per-room operations themselves.
type Client struct {
	base      *url.URL
	userAgent string
	http      *stdhttp.Client
	log       *zerolog.Logger
}

// New builds a client for the configured backend with an empty cookie jar.
func New(cfg config.BackendConfig, logger *zerolog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &Client{
		base:      base,
		userAgent: cfg.UserAgent,
		http: &stdhttp.Client{
			Jar:     jar,
			Timeout: cfg.RequestTimeout,
		},
		log: logger,
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

// get performs a GET and returns the body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, stdhttp.MethodGet, path, nil)
}

// post submits form as application/x-www-form-urlencoded and returns the body.
func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	if form == nil {
		form = url.Values{}
	}
	return c.do(ctx, stdhttp.MethodPost, path, form)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := stdhttp.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, core.NetworkError(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NetworkError(err, "read %s %s", method, path)
	}
	if resp.StatusCode >= stdhttp.StatusInternalServerError {
		return nil, core.NetworkError(fmt.Errorf("status %d", resp.StatusCode), "%s %s", method, path)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("backend request")

	return data, nil
}
