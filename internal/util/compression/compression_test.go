package compression

import (
	"bytes"
	"testing"
)

func TestCompressors(t *testing.T) {
	compressors := []Compressor{ZstdCompressor{}, GzipCompressor{}}

	for _, c := range compressors {
		t.Run(c.Name(), func(t *testing.T) {
			t.Run("Round trip", func(t *testing.T) {
				original := bytes.Repeat([]byte("<p>Some repetitive post body.</p>\n"), 100)

				compressed, err := c.Compress(original)
				if err != nil {
					t.Fatalf("Compress failed: %v", err)
				}
				if len(compressed) >= len(original) {
					t.Errorf("Expected compression to shrink %d bytes, got %d", len(original), len(compressed))
				}

				decompressed, err := c.Decompress(compressed)
				if err != nil {
					t.Fatalf("Decompress failed: %v", err)
				}
				if !bytes.Equal(decompressed, original) {
					t.Error("Round trip did not preserve content")
				}
			})

			t.Run("Empty input", func(t *testing.T) {
				compressed, err := c.Compress(nil)
				if err != nil {
					t.Fatalf("Compress failed: %v", err)
				}
				decompressed, err := c.Decompress(compressed)
				if err != nil {
					t.Fatalf("Decompress failed: %v", err)
				}
				if len(decompressed) != 0 {
					t.Errorf("Expected empty output, got %d bytes", len(decompressed))
				}
			})

			t.Run("Garbage input fails to decompress", func(t *testing.T) {
				if _, err := c.Decompress([]byte("definitely not compressed")); err == nil {
					t.Error("Expected an error for invalid input")
				}
			})
		})
	}
}

func TestForName(t *testing.T) {
	if got := ForName("gzip").Name(); got != "gzip" {
		t.Errorf("Expected gzip, got %s", got)
	}
	if got := ForName("zstd").Name(); got != "zstd" {
		t.Errorf("Expected zstd, got %s", got)
	}
	// Unknown codec names fall back to zstd.
	if got := ForName("").Name(); got != "zstd" {
		t.Errorf("Expected zstd fallback, got %s", got)
	}
}
