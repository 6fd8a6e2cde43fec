// Package compress provides compression for report and record files.
//
// ZSTD is the preferred algorithm; gzip is accepted for interoperability
// with tooling that cannot read zstd. The algorithm is chosen from the
// file extension on write and detected from the magic bytes on read.
//
// Example usage:
//
//	c := compress.NewCompressor(compress.AlgorithmZSTD, compress.LevelDefault)
//	compressed, err := c.Compress(reportJSON)
//	if err != nil {
//	    return err
//	}
//
//	// Later, without knowing how the file was written
//	original, err := compress.Decompress(compressed)
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// AlgorithmZSTD is the Zstandard compression algorithm.
	AlgorithmZSTD Algorithm = "zstd"

	// AlgorithmGzip is the gzip compression algorithm.
	AlgorithmGzip Algorithm = "gzip"

	// AlgorithmNone indicates no compression.
	AlgorithmNone Algorithm = "none"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// ParseAlgorithm converts a config value into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zstd", "zst":
		return AlgorithmZSTD, nil
	case "gzip", "gz":
		return AlgorithmGzip, nil
	case "", "none":
		return AlgorithmNone, nil
	default:
		return AlgorithmNone, fmt.Errorf("unsupported compression algorithm: %s", s)
	}
}

// Extension returns the file suffix for the algorithm, including the dot.
func (a Algorithm) Extension() string {
	switch a {
	case AlgorithmZSTD:
		return ".zst"
	case AlgorithmGzip:
		return ".gz"
	default:
		return ""
	}
}

// FromPath returns the algorithm implied by the final extension of path and
// the path with that extension removed.
func FromPath(path string) (Algorithm, string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return AlgorithmZSTD, strings.TrimSuffix(path, filepath.Ext(path))
	case ".gz":
		return AlgorithmGzip, strings.TrimSuffix(path, filepath.Ext(path))
	default:
		return AlgorithmNone, path
	}
}

// Detect sniffs the magic bytes of data.
func Detect(data []byte) Algorithm {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return AlgorithmZSTD
	case bytes.HasPrefix(data, gzipMagic):
		return AlgorithmGzip
	default:
		return AlgorithmNone
	}
}

// Level represents compression level.
type Level int

const (
	// LevelFastest prioritizes speed over compression ratio.
	LevelFastest Level = 1

	// LevelDefault is the default compression level (good balance).
	LevelDefault Level = 3

	// LevelBest provides maximum compression (slowest).
	LevelBest Level = 9
)

// Compressor provides compression and decompression functionality.
type Compressor struct {
	algorithm Algorithm
	level     Level

	// ZSTD encoder/decoder pools for reuse
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
}

// NewCompressor creates a new compressor with the specified algorithm and level.
func NewCompressor(algorithm Algorithm, level Level) *Compressor {
	c := &Compressor{
		algorithm: algorithm,
		level:     level,
	}

	if algorithm == AlgorithmZSTD {
		c.zstdEncoderPool = sync.Pool{
			New: func() any {
				enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(level))))
				return enc
			},
		}
		c.zstdDecoderPool = sync.Pool{
			New: func() any {
				dec, _ := zstd.NewReader(nil)
				return dec
			},
		}
	}

	return c
}

// Algorithm returns the compression algorithm.
func (c *Compressor) Algorithm() Algorithm {
	return c.algorithm
}

// Compress compresses the input data.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case AlgorithmZSTD:
		return c.compressZSTD(data)
	case AlgorithmGzip:
		return c.compressGzip(data)
	case AlgorithmNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", c.algorithm)
	}
}

// Decompress decompresses the input data.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case AlgorithmZSTD:
		return c.decompressZSTD(data)
	case AlgorithmGzip:
		return decompressGzip(data)
	case AlgorithmNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", c.algorithm)
	}
}

// compressZSTD compresses data using ZSTD.
func (c *Compressor) compressZSTD(data []byte) ([]byte, error) {
	enc := c.zstdEncoderPool.Get().(*zstd.Encoder)
	defer c.zstdEncoderPool.Put(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)

	if _, err := enc.Write(data); err != nil {
		return nil, fmt.Errorf("zstd write error: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close error: %w", err)
	}

	return buf.Bytes(), nil
}

// decompressZSTD decompresses ZSTD data.
func (c *Compressor) decompressZSTD(data []byte) ([]byte, error) {
	dec := c.zstdDecoderPool.Get().(*zstd.Decoder)
	defer c.zstdDecoderPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd reset error: %w", err)
	}

	result, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress error: %w", err)
	}

	return result, nil
}

// compressGzip compresses data using gzip.
func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	level := gzip.DefaultCompression
	if c.level <= 1 {
		level = gzip.BestSpeed
	} else if c.level >= 7 {
		level = gzip.BestCompression
	}

	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer error: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write error: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip close error: %w", err)
	}

	return buf.Bytes(), nil
}

// decompressGzip decompresses gzip data.
func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader error: %w", err)
	}
	defer reader.Close()

	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress error: %w", err)
	}

	return result, nil
}

// Default compressors for convenience.
var (
	// DefaultZSTD is the default ZSTD compressor.
	DefaultZSTD = NewCompressor(AlgorithmZSTD, LevelDefault)

	// DefaultGzip is the default gzip compressor.
	DefaultGzip = NewCompressor(AlgorithmGzip, LevelDefault)

	noCompression = NewCompressor(AlgorithmNone, LevelDefault)
)

// For returns the shared default compressor for an algorithm.
func For(a Algorithm) (*Compressor, error) {
	switch a {
	case AlgorithmZSTD:
		return DefaultZSTD, nil
	case AlgorithmGzip:
		return DefaultGzip, nil
	case AlgorithmNone, "":
		return noCompression, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// Decompress detects the algorithm from the magic bytes and decompresses.
// Uncompressed data is returned unchanged.
func Decompress(data []byte) ([]byte, error) {
	c, err := For(Detect(data))
	if err != nil {
		return nil, err
	}
	return c.Decompress(data)
}
