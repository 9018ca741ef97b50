package storage

import (
	"fmt"

	"archivist/internal/command"
)

// Artifact filenames are derived from the first eight characters of the asset id.

func HeroThumbnailName(assetID string) string { return command.ShortID(assetID) + "_thumb.jpg" }

func SlateThumbnailName(assetID string) string { return command.ShortID(assetID) + "_slate.jpg" }

func PlayableName(assetID string) string { return command.ShortID(assetID) + "_h264.mp4" }

func SupportName(assetID string) string { return command.ShortID(assetID) + "_h265.mp4" }

func WebVariantName(assetID string) string { return command.ShortID(assetID) + "_web.jpg" }

func ConvertedAudioName(assetID string) string { return command.ShortID(assetID) + ".mp3" }

// IconName is the placeholder icon for an audio asset at size pixels.
func IconName(assetID string, size int) string {
	return fmt.Sprintf("%s_icon_%d.png", command.ShortID(assetID), size)
}
