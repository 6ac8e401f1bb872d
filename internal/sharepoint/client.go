// Package sharepoint pulls source manuals from a SharePoint drive through
// the Microsoft Graph API. Drive items are normalized at this boundary so
// the rest of the system never sees Graph's raw shape.
package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/manualbridge/manualbridge/internal/domain"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	loginBaseURL = "https://login.microsoftonline.com"
)

// Client is a Microsoft Graph client using the client-credentials flow.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	loginURL     string
	tenantID     string
	clientID     string
	clientSecret string
	siteID       string
	driveID      string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Config holds SharePoint connection settings.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	SiteID       string
	DriveID      string
	Timeout      time.Duration
}

// NewClient creates a Graph client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, domain.ConfigError("SharePoint tenant, client ID and secret are required", nil)
	}
	if cfg.DriveID == "" {
		return nil, domain.ConfigError("SharePoint drive ID is required", nil)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      graphBaseURL,
		loginURL:     loginBaseURL,
		tenantID:     cfg.TenantID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		siteID:       cfg.SiteID,
		driveID:      cfg.DriveID,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached access token, refreshing it when within a minute of
// expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", "https://graph.microsoft.com/.default")

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.loginURL, c.tenantID)
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.TransportError("Failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.TransportError("Token request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", domain.TransportError(fmt.Sprintf("Token endpoint returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", domain.ParseError("Failed to decode token response", err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

type driveItem struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	LastModifiedDateTime time.Time       `json:"lastModifiedDateTime"`
	Folder               json.RawMessage `json:"folder,omitempty"`
}

type driveChildren struct {
	Value []driveItem `json:"value"`
}

// ListFolder lists the files directly under folderPath, normalized to
// SourceFile. Subfolders are skipped.
func (c *Client) ListFolder(ctx context.Context, folderPath string) ([]domain.SourceFile, error) {
	endpoint := fmt.Sprintf("%s/drives/%s/root/children", c.baseURL, c.driveID)
	if folderPath != "" {
		endpoint = fmt.Sprintf("%s/drives/%s/root:/%s:/children",
			c.baseURL, c.driveID, url.PathEscape(folderPath))
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var children driveChildren
	if err := json.Unmarshal(body, &children); err != nil {
		return nil, domain.ParseError("Failed to decode drive listing", err)
	}

	files := make([]domain.SourceFile, 0, len(children.Value))
	for _, item := range children.Value {
		if len(item.Folder) > 0 {
			continue
		}
		files = append(files, domain.SourceFile{
			ID:           item.ID,
			Name:         item.Name,
			LastModified: item.LastModifiedDateTime,
		})
	}
	return files, nil
}

// ListSubfolders lists the names of the folders directly under folderPath.
func (c *Client) ListSubfolders(ctx context.Context, folderPath string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/drives/%s/root/children", c.baseURL, c.driveID)
	if folderPath != "" {
		endpoint = fmt.Sprintf("%s/drives/%s/root:/%s:/children",
			c.baseURL, c.driveID, url.PathEscape(folderPath))
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var children driveChildren
	if err := json.Unmarshal(body, &children); err != nil {
		return nil, domain.ParseError("Failed to decode drive listing", err)
	}

	var names []string
	for _, item := range children.Value {
		if len(item.Folder) > 0 {
			names = append(names, item.Name)
		}
	}
	return names, nil
}

// Download fetches the content of a drive item by ID. Graph answers with a
// redirect to a pre-authenticated URL which the HTTP client follows.
func (c *Client) Download(ctx context.Context, itemID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/drives/%s/items/%s/content", c.baseURL, c.driveID, itemID)
	return c.get(ctx, endpoint)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, domain.TransportError("Failed to build Graph request", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.TransportError("Graph request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.TransportError("Failed to read Graph response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NotFoundError("Graph resource not found", nil)
	case resp.StatusCode >= 300:
		return nil, domain.TransportError(fmt.Sprintf("Graph returned %d: %s", resp.StatusCode, string(body)), nil)
	}
	return body, nil
}
