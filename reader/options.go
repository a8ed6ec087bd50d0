package reader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/internal/options"
	"github.com/arloliu/schemabin/schema"
)

type config struct {
	logger         *zap.Logger
	links          map[string]*schema.Graph
	skipSchemaHash bool
}

// Option configures New.
type Option = options.Option[*config]

// WithLogger sets the logger used for header and decompression facts at
// debug level.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithLinks registers the graphs that Link types resolve into, keyed by
// schema key. Links can also be added later with AddLink.
func WithLinks(links map[string]*schema.Graph) Option {
	return options.Named("links", func(c *config) error {
		for key, g := range links {
			if key == "" || g == nil {
				return fmt.Errorf("%w: link needs a key and a graph", errs.ErrInvalidOption)
			}
			c.links[key] = g
		}

		return nil
	})
}

// WithoutSchemaCheck skips comparing the buffer's schema fingerprint with
// the graph's.
func WithoutSchemaCheck() Option {
	return options.NoError(func(c *config) {
		c.skipSchemaHash = true
	})
}
