package xio

import (
	"context"
	"io"
)

type readerFunc func(p []byte) (n int, err error)

func (rf readerFunc) Read(p []byte) (n int, err error) { return rf(p) }

// Copy copies src to dst like io.Copy, stopping early when ctx is cancelled.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, readerFunc(func(p []byte) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
			return src.Read(p)
		}
	}))
}

// CopyN copies exactly n bytes from src to dst, stopping early when ctx is
// cancelled. Like io.CopyN, it returns io.EOF when src runs out before n.
func CopyN(ctx context.Context, dst io.Writer, src io.Reader, n int64) (int64, error) {
	written, err := Copy(ctx, dst, io.LimitReader(src, n))
	if written == n {
		return written, nil
	}
	if written < n && err == nil {
		err = io.EOF
	}
	return written, err
}
