package embedding

import (
	"fmt"

	"github.com/nao1215/docaudit/internal/audit"
	"github.com/nao1215/docaudit/internal/config"
)

// New returns the embedder selected by cfg.EmbedProvider.
// The none provider disables semantic pair checks and returns nil.
func New(cfg *config.Config) (audit.Embedder, error) {
	switch cfg.EmbedProvider {
	case "", config.EmbedProviderNone:
		return nil, nil
	case config.EmbedProviderHash:
		return NewHashEmbedder(config.DefaultHashDimensions), nil
	case config.EmbedProviderOllama:
		return NewOllamaEmbedder(cfg.EmbedURL, cfg.EmbedModel), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.EmbedProvider)
	}
}
