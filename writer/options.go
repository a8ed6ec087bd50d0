package writer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/schemabin/compress"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/internal/options"
)

// Option configures a Writer.
type Option = options.Option[*Writer]

// TransformFunc converts a value before it is written as a Tuple or
// NamedTuple, e.g. a struct into a map[string]any.
type TransformFunc func(v any) (any, error)

// WithCompression compresses the buffer body. The default is
// format.CompressionNone, which keeps primitive dumps zero-copy.
func WithCompression(c format.CompressionType) Option {
	return options.Named("compression", func(w *Writer) error {
		codec, err := compress.GetCodec(c)
		if err != nil {
			return err
		}
		w.compression = c
		w.codec = codec

		return nil
	})
}

// WithTransform registers fn for every value written as typeName. Only
// Tuple and NamedTuple types can be transformed.
func WithTransform(typeName string, fn TransformFunc) Option {
	return options.Named("transform", func(w *Writer) error {
		if fn == nil {
			return fmt.Errorf("%w: nil transform for %q", errs.ErrInvalidOption, typeName)
		}
		t, err := w.graph.Lookup(typeName)
		if err != nil {
			return err
		}
		switch t.Kind() { //nolint:exhaustive
		case format.KindTuple, format.KindNamedTuple:
		default:
			return fmt.Errorf("%w: %q is a %s, only tuples can be transformed", errs.ErrInvalidOption, typeName, t.Kind())
		}
		w.transforms[typeName] = fn

		return nil
	})
}

// WithLogger sets the logger used for layout statistics at debug level.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	})
}

// WithBufferSize sets the initial body buffer capacity.
func WithBufferSize(size int) Option {
	return options.Named("buffer size", func(w *Writer) error {
		if size <= 0 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidOption, size)
		}
		w.bufferSize = size

		return nil
	})
}
