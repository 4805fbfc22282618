package codec

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Compress deflates data into a zlib stream, the format every Blob is
// stored in (§4.A, §6).
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: decompress: %w", err)
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: decompress: %w", err)
	}
	return out, nil
}
