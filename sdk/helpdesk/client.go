// Package helpdesk is a Go client for the helpdesk service: typed HTTP
// operations plus a realtime session that keeps a local ticket cache in
// sync with server pushes.
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the helpdesk HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login authenticates and stores the credential token for later calls.
func (c *Client) Login(ctx context.Context, identity, secret string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"identity": identity,
		"secret":   secret,
	}, &session)
	if err != nil {
		return nil, err
	}
	c.token = session.CredentialToken
	return &session, nil
}

// Token returns the stored credential token.
func (c *Client) Token() string {
	return c.token
}

// ListTickets fetches the tickets visible to the authenticated user.
func (c *Client) ListTickets(ctx context.Context) ([]Ticket, error) {
	var tickets []Ticket
	if err := c.do(ctx, http.MethodGet, "/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateTicket files a new ticket.
func (c *Client) CreateTicket(ctx context.Context, subject, description string) (*Ticket, error) {
	var ticket Ticket
	err := c.do(ctx, http.MethodPost, "/tickets", map[string]string{
		"subject":     subject,
		"description": description,
	}, &ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatus transitions a ticket (admin only).
func (c *Client) UpdateStatus(ctx context.Context, ticketID, status string) (*Ticket, error) {
	var ticket Ticket
	err := c.do(ctx, http.MethodPut, "/tickets/"+ticketID+"/status", map[string]string{
		"status": status,
	}, &ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// AddComment appends a comment to a ticket thread.
func (c *Client) AddComment(ctx context.Context, ticketID, text string) (*Ticket, error) {
	var ticket Ticket
	err := c.do(ctx, http.MethodPost, "/tickets/"+ticketID+"/comments", map[string]string{
		"text": text,
	}, &ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// DeleteTicket removes a ticket permanently (admin only).
func (c *Client) DeleteTicket(ctx context.Context, ticketID string) error {
	return c.do(ctx, http.MethodDelete, "/tickets/"+ticketID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Code != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
