package writer

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/arloliu/schemabin/compress"
	"github.com/arloliu/schemabin/encoding"
	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/format"
	"github.com/arloliu/schemabin/internal/options"
	"github.com/arloliu/schemabin/internal/pool"
	"github.com/arloliu/schemabin/lazy"
	"github.com/arloliu/schemabin/schema"
	"github.com/arloliu/schemabin/section"
)

// Writer encodes value trees against one schema graph.
type Writer struct {
	graph       *schema.Graph
	compression format.CompressionType
	codec       compress.Codec
	transforms  map[string]TransformFunc
	logger      *zap.Logger
	bufferSize  int
}

// New creates a Writer for graph.
func New(graph *schema.Graph, opts ...Option) (*Writer, error) {
	if graph == nil {
		return nil, fmt.Errorf("%w: nil schema graph", errs.ErrUsage)
	}

	w := &Writer{
		graph:       graph,
		compression: format.CompressionNone,
		codec:       compress.NewNoOpCompressor(),
		transforms:  make(map[string]TransformFunc),
		logger:      zap.NewNop(),
		bufferSize:  pool.BufferDefaultSize,
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	return w, nil
}

// Encode writes value as type root and returns the finished buffer: the
// 32-byte header followed by the, possibly compressed, body. The returned
// slice is owned by the caller.
func (w *Writer) Encode(value any, root string) ([]byte, error) {
	if _, err := w.graph.Lookup(root); err != nil {
		return nil, fmt.Errorf("root type: %w", err)
	}

	ctx := newBuildContext(w)
	rootNode, err := ctx.spawn(w.graph, root, lazy.FromSlice([]any{value}, nil, nil))
	if err != nil {
		return nil, err
	}
	if err = ctx.expand(); err != nil {
		return nil, err
	}

	nodesEnd, err := ctx.allocate()
	if err != nil {
		return nil, err
	}

	body := pool.GetBuffer()
	defer pool.PutBuffer(body)
	body.Grow(max(w.bufferSize, nodesEnd))
	body.ExtendOrGrow(nodesEnd)

	strs := encoding.NewStringTableEncoder()
	defer strs.Finish()

	rootTypeOffset, err := strs.AddString(root)
	if err != nil {
		return nil, err
	}
	if err = ctx.emit(body.Bytes(), strs); err != nil {
		return nil, err
	}

	body.Align(schema.PointerSize)
	stringTableOffset := body.Len()
	body.MustWrite(strs.Bytes())
	if body.Len() > math.MaxInt32 {
		return nil, fmt.Errorf("%w: body of %d bytes exceeds the int32 offset range", errs.ErrValue, body.Len())
	}

	header := section.NewHeader(w.graph.Fingerprint())
	header.Compression = w.compression
	header.SetHasLinks(ctx.hasLinks)
	header.RootOffset = uint32(rootNode.offset)           //nolint:gosec
	header.StringTableOffset = uint32(stringTableOffset) //nolint:gosec
	header.RootTypeOffset = rootTypeOffset
	header.BodyLength = uint32(body.Len()) //nolint:gosec

	stored, err := w.codec.Compress(body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("compress body: %w", err)
	}
	header.StoredLength = uint32(len(stored)) //nolint:gosec

	out := make([]byte, 0, section.HeaderSize+len(stored))
	out = header.AppendTo(out)
	out = append(out, stored...)

	if ce := w.logger.Check(zap.DebugLevel, "encoded buffer"); ce != nil {
		stats := compress.Stats{Algorithm: w.compression, OriginalSize: body.Len(), CompressedSize: len(stored)}
		ce.Write(
			zap.String("root", root),
			zap.Int("types", len(ctx.order)),
			zap.Int("nodes", ctx.nodeCount),
			zap.Int("refs", len(ctx.refs)),
			zap.Int("strings", strs.Len()),
			zap.Int("body_bytes", body.Len()),
			zap.Int("stored_bytes", len(stored)),
			zap.Stringer("compression", w.compression),
			zap.Float64("ratio", stats.Ratio()),
		)
	}

	return out, nil
}
