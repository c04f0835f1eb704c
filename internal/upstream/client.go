package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/m-mizutani/goerr/v2"
	"io"
	"net/http"
	"time"
)

// maxBodySize caps the users payload; the demo api answers with a few KiB.
const maxBodySize = 4 << 20

type Client struct {
	httpClient *http.Client
	config     *Config
	logger     *logger.Logger
}

func New(config *Config, logger *logger.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upstream config: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger.Component("upstream"),
	}, nil
}

// FetchUsers issues a single GET to the configured endpoint and decodes a JSON
// array of users. Request-layer failures come back as *TransportError, anything
// else (malformed payload) as a plain wrapped error.
func (c *Client) FetchUsers(ctx context.Context) ([]domain.User, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return nil, goerr.Wrap(&TransportError{Err: err}, "failed to build users request",
			goerr.V("url", c.config.URL))
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(&TransportError{Err: err}, "users request failed",
			goerr.V("url", c.config.URL))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, goerr.Wrap(&TransportError{StatusCode: resp.StatusCode}, "users request rejected",
			goerr.V("url", c.config.URL),
			goerr.V("status", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, goerr.Wrap(&TransportError{Err: err}, "failed to read users response",
			goerr.V("url", c.config.URL))
	}
	if len(body) > maxBodySize {
		return nil, goerr.Wrap(ErrResponseTooLarge, "failed to read users response",
			goerr.V("url", c.config.URL),
			goerr.V("limit", maxBodySize))
	}

	var users []domain.User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, goerr.Wrap(err, "failed to decode users response",
			goerr.V("url", c.config.URL),
			goerr.V("body_size", len(body)))
	}
	if users == nil {
		// a literal `null` body is not a sequence of users
		return nil, goerr.New("users response is not an array", goerr.V("url", c.config.URL))
	}

	c.logger.Debug("users fetched",
		"count", len(users),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	return users, nil
}
