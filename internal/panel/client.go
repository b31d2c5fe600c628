// AngelaMos | 2026
// client.go

package panel

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
)

const maxErrorBody = 2048

// Client talks to the Pterodactyl application API. Every call is bounded
// by the configured timeout and any failure, including non-2xx replies,
// wraps core.ErrUpstream.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	defaults   config.PanelConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.PanelConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/") + "/api/application",
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		defaults: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

func (c *Client) do(
	ctx context.Context,
	method, endpoint string,
	body, out any,
) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("panel %s %s: encode: %w", method, endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("panel %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("panel %s %s: %w: %w", method, endpoint, core.ErrUpstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck
		c.logger.WarnContext(ctx, "panel request failed",
			"method", method,
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"body", string(detail),
		)
		return fmt.Errorf(
			"panel %s %s: status %d: %w",
			method, endpoint, resp.StatusCode, core.ErrUpstream,
		)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("panel %s %s: decode: %w: %w", method, endpoint, core.ErrUpstream, err)
	}

	return nil
}

// FindUserByEmail returns nil without error when no account matches.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := core.StartSpan(ctx, "panel.find_user")
	defer span.End()

	var resp list[User]
	endpoint := "/users?filter[email]=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	for _, u := range resp.Data {
		if strings.EqualFold(u.Attributes.Email, email) {
			user := u.Attributes
			return &user, nil
		}
	}
	return nil, nil
}

func (c *Client) CreateUser(ctx context.Context, email, name string) (*User, error) {
	ctx, span := core.StartSpan(ctx, "panel.create_user")
	defer span.End()

	first := strings.TrimSpace(name)
	if first == "" {
		first = "User"
	}
	last := c.defaults.UserLastName
	if last == "" {
		last = "LumenNodes"
	}

	var resp object[User]
	err := c.do(ctx, http.MethodPost, "/users", createUserBody{
		Email:     email,
		Username:  Username(email),
		FirstName: first,
		LastName:  last,
	}, &resp)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return &resp.Attributes, nil
}

// CreateServer reads the egg for its image, startup command and variable
// defaults, creates the server, then reads it back for its allocation. A
// failed read-back still returns the created server without an address.
func (c *Client) CreateServer(ctx context.Context, p CreateServerParams) (*Server, error) {
	ctx, span := core.StartSpan(ctx, "panel.create_server",
		attribute.Int64("panel.user_id", p.UserID),
		attribute.Int("panel.egg_id", p.EggID),
	)
	defer span.End()

	var egg object[eggAttributes]
	eggPath := fmt.Sprintf("/nests/%d/eggs/%d?include=variables", p.NestID, p.EggID)
	if err := c.do(ctx, http.MethodGet, eggPath, nil, &egg); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	env := make(map[string]string)
	for _, v := range egg.Attributes.Relationships.Variables.Data {
		env[v.Attributes.EnvVariable] = v.Attributes.DefaultValue
	}

	location := p.LocationID
	if location <= 0 {
		location = 1
	}

	body := createServerBody{
		Name:        p.Name,
		User:        p.UserID,
		Egg:         p.EggID,
		DockerImage: firstNonEmpty(egg.Attributes.DockerImage, c.defaults.DockerImage),
		Startup:     firstNonEmpty(egg.Attributes.Startup, c.defaults.Startup),
		Environment: env,
		Limits: limits{
			Memory: p.MemoryMB,
			Disk:   p.DiskMB,
			IO:     500,
			CPU:    p.CPU,
		},
		FeatureLimits: featureLimits{Databases: 1, Backups: 2, Allocations: 1},
		Deploy: deploy{
			Locations: []int{location},
			PortRange: []string{},
		},
	}

	var created object[serverAttributes]
	if err := c.do(ctx, http.MethodPost, "/servers", body, &created); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	full, err := c.GetServer(ctx, created.Attributes.ID)
	if err != nil {
		c.logger.WarnContext(ctx, "created server without allocation details",
			"panel_server_id", created.Attributes.ID,
			"error", err,
		)
		return created.Attributes.toServer(), nil
	}

	return full, nil
}

func (c *Client) GetServer(ctx context.Context, id int64) (*Server, error) {
	var resp object[serverAttributes]
	endpoint := fmt.Sprintf("/servers/%d?include=allocations", id)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attributes.toServer(), nil
}

func (c *Client) SuspendServer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/servers/%d/suspend", id), nil, nil)
}

func (c *Client) UnsuspendServer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/servers/%d/unsuspend", id), nil, nil)
}

func (c *Client) DeleteServer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/servers/%d", id), nil, nil)
}

// Ping checks that the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/nests?per_page=1", nil, nil)
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Username derives a panel username from the email local part plus a
// short random suffix.
func Username(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = nonAlnum.ReplaceAllString(local, "")

	suffix := make([]byte, 4)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36))))
		if err != nil {
			suffix[i] = 'x'
			continue
		}
		suffix[i] = base36[n.Int64()]
	}

	return strings.ToLower(local) + string(suffix)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
