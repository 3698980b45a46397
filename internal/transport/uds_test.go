package transport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"execgate/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first")))
	require.NoError(t, WriteFrame(&buf, nil))
	require.NoError(t, WriteFrame(&buf, []byte("third")))

	for _, want := range []string{"first", "", "third"} {
		got, err := ReadFrame(&buf, MaxFrameSize)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	_, err := ReadFrame(&buf, MaxFrameSize)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("payload")))
	cut := bytes.NewReader(buf.Bytes()[:buf.Len()-2])

	_, err := ReadFrame(cut, MaxFrameSize)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 64)))

	_, err := ReadFrame(&buf, 63)
	require.ErrorIs(t, err, exception.ErrFrameTooLarge)

	require.ErrorIs(t, WriteFrame(io.Discard, make([]byte, MaxFrameSize+1)), exception.ErrFrameTooLarge)
}

func TestNewUDSListenerValidation(t *testing.T) {
	_, err := NewUDSListener("", EncodingBinary)
	require.ErrorIs(t, err, exception.ErrEmptyPathUDS)

	_, err = NewUDSListener("/tmp/x.sock", Encoding(0))
	require.ErrorIs(t, err, exception.ErrUnknownEncoding)

	_, err = DialUDS("")
	require.ErrorIs(t, err, exception.ErrEmptyPathUDS)
}

func TestUDSListenerRejectsNonSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-socket")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	l, err := NewUDSListener(path, EncodingText)
	require.NoError(t, err)
	require.ErrorIs(t, l.Listen(), exception.ErrPathNotSocketUDS)
}

func TestUDSListenerServeBeforeListen(t *testing.T) {
	l, err := NewUDSListener(filepath.Join(t.TempDir(), "idle.sock"), EncodingText)
	require.NoError(t, err)
	require.ErrorIs(t, l.Serve(context.Background(), func(Frame) error { return nil }), exception.ErrNotListeningUDS)
}

func TestUDSSourceDeliversFramesWithListenerEncoding(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "text.sock")
	binPath := filepath.Join(dir, "bin.sock")

	text, err := NewUDSListener(textPath, EncodingText)
	require.NoError(t, err)
	bin, err := NewUDSListener(binPath, EncodingBinary)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewUDSSource(8, text, bin)
	require.NoError(t, src.Start(ctx))
	defer src.Close()

	require.ErrorIs(t, text.Listen(), exception.ErrAlreadyListeningUDS)

	conn, err := DialUDS(textPath)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, WriteFrame(conn, []byte("order_accepted:a")))
	require.NoError(t, WriteFrame(conn, []byte("order_accepted:b")))

	readCtx, readCancel := context.WithTimeout(ctx, 2*time.Second)
	defer readCancel()

	for i, want := range []string{"order_accepted:a", "order_accepted:b"} {
		f, err := src.Next(readCtx)
		require.NoError(t, err)
		assert.Equal(t, EncodingText, f.Encoding)
		assert.Equal(t, textPath, f.Channel)
		assert.Equal(t, uint64(i+1), f.Seq)
		assert.Equal(t, want, string(f.Payload))
		assert.False(t, f.ReceivedAt.IsZero())
	}

	binConn, err := DialUDS(binPath)
	require.NoError(t, err)
	defer binConn.Close()
	require.NoError(t, WriteFrame(binConn, []byte{0x80}))

	f, err := src.Next(readCtx)
	require.NoError(t, err)
	assert.Equal(t, EncodingBinary, f.Encoding)

	cancel()
	_, err = src.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}
