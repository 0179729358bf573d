// Package dialpad is a minimal client for the pieces of the Dialpad REST API
// the mailbox needs: contact lookup by phone number. The full vendor surface
// is reached through the generated CLI, not this package.
package dialpad

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://dialpad.com/api/v2"

// Client calls the Dialpad REST API with a bearer API key.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New returns a Client for the given API key.
func New(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// NewWithBaseURL returns a Client pointed at an alternate API endpoint.
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	JobTitle  string `json:"job_title"`
}

type contactList struct {
	Items []contact `json:"items"`
}

// ContactName resolves a phone number to contact display text, like
// "Title | Name (Company)". Returns "" when no contact matches or no API key
// is configured.
func (c *Client) ContactName(ctx context.Context, number string) (string, error) {
	if c.apiKey == "" {
		return "", nil
	}

	u := c.baseURL + "/contacts?query=" + url.QueryEscape(number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build contact request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to look up contact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("contact lookup returned status %d", resp.StatusCode)
	}

	var list contactList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("failed to decode contact response: %w", err)
	}
	if len(list.Items) == 0 {
		return "", nil
	}
	return displayName(list.Items[0]), nil
}

func displayName(c contact) string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		name = "Known Contact"
	}
	if c.Company != "" {
		name += " (" + c.Company + ")"
	}
	if c.JobTitle != "" {
		name = c.JobTitle + " | " + name
	}
	return name
}
