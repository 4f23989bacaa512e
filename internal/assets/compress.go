package assets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

func compressible(path string) bool {
	switch filepath.Ext(path) {
	case ".js", ".css", ".map", ".html", ".json", ".svg":
		return true
	}
	return false
}

// precompress writes gzip and zstd siblings of an output file so static file
// servers can send them without compressing on the fly
func precompress(path string, data []byte) error {
	var gz bytes.Buffer
	gw, err := gzip.NewWriterLevel(&gz, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := gw.Write(data); err != nil {
		return fmt.Errorf("failed to gzip %s: %w", path, err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to gzip %s: %w", path, err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	zst := enc.EncodeAll(data, nil)
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	if err := os.WriteFile(path+".gz", gz.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(path+".zst", zst, 0o644); err != nil {
		return err
	}

	log.Debug().
		Str("file", path).
		Int("original_bytes", len(data)).
		Int("gzip_bytes", gz.Len()).
		Int("zstd_bytes", len(zst)).
		Msg("Precompressed file")

	return nil
}
