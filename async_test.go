package streamzip_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukasmartin/streamzip"
)

func TestAsyncWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	aw := streamzip.NewAsyncWriter(&buf, streamzip.Config{})
	ctx := context.Background()

	require.NoError(t, aw.Add(ctx, streamzip.Member{
		Name:     "a.txt",
		Modified: testModTime,
		Method:   streamzip.Deflate32(),
		Content:  strings.NewReader("async hello"),
	}))
	require.NoError(t, aw.Add(ctx, streamzip.Member{
		Name:     "b.txt",
		Modified: testModTime,
		Method:   streamzip.StoreBuffered32(),
		Content:  strings.NewReader("async world"),
	}))
	require.NoError(t, aw.Close(ctx))

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, r.File, 2)
	assert.Equal(t, "a.txt", r.File[0].Name)
	assert.Equal(t, "b.txt", r.File[1].Name)
}

func TestAsyncWriterAddRespectsCancellation(t *testing.T) {
	var buf bytes.Buffer
	aw := streamzip.NewAsyncWriter(&buf, streamzip.Config{})

	// Occupy the background goroutine with a member whose content blocks,
	// so the next Add's send onto the op channel has no reader available
	// and must wait on ctx.Done() instead.
	unblock := make(chan struct{})
	go func() {
		_ = aw.Add(context.Background(), streamzip.Member{
			Name:     "blocker",
			Modified: testModTime,
			Method:   streamzip.StoreBuffered32(),
			Content:  blockingReader{unblock: unblock},
		})
	}()
	time.Sleep(20 * time.Millisecond)
	defer close(unblock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := aw.Add(ctx, streamzip.Member{
		Name:     "never",
		Modified: testModTime,
		Method:   streamzip.StoreBuffered32(),
		Content:  strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

type blockingReader struct{ unblock <-chan struct{} }

func (b blockingReader) Read(p []byte) (int, error) {
	<-b.unblock
	return 0, io.EOF
}

func TestAsyncWriterAddContextPropagatesToContentReader(t *testing.T) {
	var buf bytes.Buffer
	aw := streamzip.NewAsyncWriter(&buf, streamzip.Config{})

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "token")

	cr := &recordingContentReader{inner: strings.NewReader("payload"), key: ctxKey{}}
	require.NoError(t, aw.Add(ctx, streamzip.Member{
		Name:     "c.txt",
		Modified: testModTime,
		Method:   streamzip.StoreBuffered32(),
		Content:  cr,
	}))
	require.NoError(t, aw.Close(ctx))

	assert.Equal(t, "token", cr.observedValue)
}

type recordingContentReader struct {
	inner         *strings.Reader
	key           any
	observedValue any
}

func (r *recordingContentReader) Read(p []byte) (int, error) {
	return r.inner.Read(p)
}

func (r *recordingContentReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	r.observedValue = ctx.Value(r.key)
	return r.inner.Read(p)
}
