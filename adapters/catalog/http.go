package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPConfig configures the remote topic catalog
type HTTPConfig struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

// HTTPCatalog fetches topics from a remote catalog service
type HTTPCatalog struct {
	url    string
	token  string
	client *http.Client
	logger *zap.Logger
}

var _ repositories.TopicCatalog = (*HTTPCatalog)(nil)

// NewHTTPCatalog creates a remote catalog client
func NewHTTPCatalog(config HTTPConfig, logger *zap.Logger) (*HTTPCatalog, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("catalog URL is required")
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPCatalog{
		url:    config.URL,
		token:  config.Token,
		client: client,
		logger: logger,
	}, nil
}

// ListTopics implements repositories.TopicCatalog. An unusable payload yields
// an empty list together with an error wrapping domain.ErrInvalidCatalog.
func (c *HTTPCatalog) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return []entities.Topic{}, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return []entities.Topic{}, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []entities.Topic{}, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return []entities.Topic{}, fmt.Errorf("failed to read catalog: %w", err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return []entities.Topic{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	topics, err := normalize(doc)
	if err != nil {
		return []entities.Topic{}, err
	}

	c.logger.Debug("Catalog fetched", zap.Int("topics", len(topics)))
	return topics, nil
}
