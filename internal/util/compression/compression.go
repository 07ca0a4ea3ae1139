// Package compression provides codecs for stored post body snapshots.
package compression

// Compressor compresses and decompresses byte slices.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Name() string
}

// ForName returns the compressor for a codec name, defaulting to zstd.
func ForName(name string) Compressor {
	switch name {
	case "gzip":
		return GzipCompressor{}
	default:
		return ZstdCompressor{}
	}
}
