package asset

import (
	"time"

	"archivist/internal/command"
)

// Kind is the media family of an asset.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindAudio, KindImage, KindFile:
		return true
	}
	return false
}

// Status is the processing lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// LastErrorLimit caps the persisted last error text.
const LastErrorLimit = 500

// Artifact names a single-path derived artifact column.
type Artifact string

const (
	ArtifactThumbnail      Artifact = "thumbnail"
	ArtifactSlateThumbnail Artifact = "slate_thumbnail"
	ArtifactPlayableProxy  Artifact = "playable_proxy"
	ArtifactSupportProxy   Artifact = "support_proxy"
	ArtifactWebVariant     Artifact = "web_variant"
	ArtifactConvertedAudio Artifact = "converted_audio"
	ArtifactIconSmall      Artifact = "icon_small"
	ArtifactIconLarge      Artifact = "icon_large"
)

// Artifacts lists every single-path artifact column.
func Artifacts() []Artifact {
	return []Artifact{
		ArtifactThumbnail, ArtifactSlateThumbnail, ArtifactPlayableProxy, ArtifactSupportProxy,
		ArtifactWebVariant, ArtifactConvertedAudio, ArtifactIconSmall, ArtifactIconLarge,
	}
}

func (a Artifact) valid() bool {
	for _, known := range Artifacts() {
		if a == known {
			return true
		}
	}
	return false
}

// MandatoryArtifacts are the artifacts a kind must have before it may
// be marked completed.
func MandatoryArtifacts(kind Kind) []Artifact {
	switch kind {
	case KindVideo:
		return []Artifact{ArtifactThumbnail, ArtifactSlateThumbnail, ArtifactPlayableProxy}
	case KindAudio:
		return []Artifact{ArtifactConvertedAudio}
	case KindImage:
		return []Artifact{ArtifactWebVariant, ArtifactThumbnail}
	default:
		return nil
	}
}

// DerivedArtifacts holds storage paths relative to the media root.
type DerivedArtifacts struct {
	Thumbnail      string          `json:"thumbnail,omitempty"`
	SlateThumbnail string          `json:"slate_thumbnail,omitempty"`
	PlayableProxy  string          `json:"playable_proxy,omitempty"`
	SupportProxy   string          `json:"support_proxy,omitempty"`
	WebVariant     string          `json:"web_variant,omitempty"`
	ConvertedAudio string          `json:"converted_audio,omitempty"`
	IconSmall      string          `json:"icon_small,omitempty"`
	IconLarge      string          `json:"icon_large,omitempty"`
	CustomVariants []CustomVariant `json:"custom_variants,omitempty"`
}

// Get returns the path stored for a single-path artifact.
func (d DerivedArtifacts) Get(a Artifact) string {
	switch a {
	case ArtifactThumbnail:
		return d.Thumbnail
	case ArtifactSlateThumbnail:
		return d.SlateThumbnail
	case ArtifactPlayableProxy:
		return d.PlayableProxy
	case ArtifactSupportProxy:
		return d.SupportProxy
	case ArtifactWebVariant:
		return d.WebVariant
	case ArtifactConvertedAudio:
		return d.ConvertedAudio
	case ArtifactIconSmall:
		return d.IconSmall
	case ArtifactIconLarge:
		return d.IconLarge
	}
	return ""
}

// Paths returns every non-empty artifact path including custom variants.
func (d DerivedArtifacts) Paths() []string {
	var paths []string
	for _, a := range Artifacts() {
		if p := d.Get(a); p != "" {
			paths = append(paths, p)
		}
	}
	for _, v := range d.CustomVariants {
		if v.Path != "" {
			paths = append(paths, v.Path)
		}
	}
	return paths
}

// CustomVariant is one on-demand encode appended to an asset.
type CustomVariant struct {
	FileName   string           `json:"filename"`
	Path       string           `json:"path"`
	PresetID   string           `json:"preset_id"`
	Container  string           `json:"container"`
	Codec      string           `json:"codec"`
	Resolution string           `json:"resolution,omitempty"`
	SizeMB     float64          `json:"file_size_mb"`
	CreatedAt  time.Time        `json:"created_at"`
	Settings   command.Settings `json:"settings"`
}

// Asset is one media object tracked through the processing pipeline.
type Asset struct {
	ID                  string
	Kind                Kind
	Container           string
	OriginalName        string
	Identifier          string
	SourcePath          string
	Status              Status
	LastError           string
	Artifacts           DerivedArtifacts
	Metadata            map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ProcessingStartedAt *time.Time
}

// MissingMandatory lists mandatory artifacts that are still empty.
func (a *Asset) MissingMandatory() []Artifact {
	var missing []Artifact
	for _, artifact := range MandatoryArtifacts(a.Kind) {
		if a.Artifacts.Get(artifact) == "" {
			missing = append(missing, artifact)
		}
	}
	return missing
}

// MetadataOnly reports whether the asset has no source file attached yet.
func (a *Asset) MetadataOnly() bool {
	return a.SourcePath == ""
}

// Registration describes a new asset.
type Registration struct {
	Kind         Kind
	Container    string
	OriginalName string
	Identifier   string
	SourcePath   string
	Metadata     map[string]any
}

// Filter scopes list queries. Zero values match everything.
type Filter struct {
	Container    string
	Statuses     []Status
	Kind         Kind
	MetadataOnly bool
	Limit        int
}
