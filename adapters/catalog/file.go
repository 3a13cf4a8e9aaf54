package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// FileCatalog reads a YAML question pack. The file is re-read on every call
// so edits show up without a restart.
type FileCatalog struct {
	fs     afero.Fs
	path   string
	logger *zap.Logger
}

var _ repositories.TopicCatalog = (*FileCatalog)(nil)

// NewFileCatalog creates a catalog over a YAML file on fs
func NewFileCatalog(fs afero.Fs, path string, logger *zap.Logger) *FileCatalog {
	return &FileCatalog{fs: fs, path: path, logger: logger}
}

// ListTopics implements repositories.TopicCatalog
func (c *FileCatalog) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return []entities.Topic{}, fmt.Errorf("failed to read question pack %s: %w", c.path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a question pack
func ParseYAML(data []byte) ([]entities.Topic, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []entities.Topic{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	topics, err := normalize(doc)
	if err != nil {
		return []entities.Topic{}, err
	}
	return topics, nil
}
