package pipeline

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"
)

// writeImage encodes img and atomically replaces path.
func writeImage(path string, img image.Image, format imaging.Format, opts ...imaging.EncodeOption) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
