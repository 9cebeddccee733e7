package vidfetch

import (
	"context"
	"io"
)

// A context-aware io.Reader wrapper: reads fail once ctx is done, so a copy
// from a network stream can be cancelled by client disconnect.
type readerContext struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerContext) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// ReaderContext wraps r so that reads return ctx.Err() once ctx is cancelled.
func ReaderContext(ctx context.Context, r io.Reader) io.Reader {
	return &readerContext{ctx: ctx, r: r}
}
