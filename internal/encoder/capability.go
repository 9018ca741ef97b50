package encoder

// Kind identifies an encoder tier in the fallback chain.
type Kind string

const (
	KindApple     Kind = "hardware-apple"
	KindNVIDIA    Kind = "hardware-nvidia"
	KindVAAPI     Kind = "hardware-vaapi"
	KindQuickSync Kind = "hardware-quicksync"
	KindSoftware  Kind = "software"
)

// DefaultRenderDevice is the DRM render node probed for VAAPI.
const DefaultRenderDevice = "/dev/dri/renderD128"

// Capability is the frozen encoder configuration shared by all workers.
type Capability struct {
	Kind Kind `json:"kind"`
	// VideoEncoder produces the H.264 playable proxy.
	VideoEncoder string `json:"video_encoder"`
	// SecondaryEncoder produces the H.265 support proxy.
	SecondaryEncoder string `json:"secondary_encoder,omitempty"`
	// AccelerationFlag is the -hwaccel value, or the device path for VAAPI.
	AccelerationFlag string `json:"acceleration_flag,omitempty"`
}

// Hardware reports whether the capability uses a GPU or media engine.
func (c Capability) Hardware() bool {
	return c.Kind != "" && c.Kind != KindSoftware
}

// Software is the unconditional last tier.
func Software() Capability {
	return Capability{Kind: KindSoftware, VideoEncoder: "libx264", SecondaryEncoder: "libx265"}
}

// ForKind returns the canonical capability for a tier. VAAPI uses the
// default render device; unknown kinds resolve to software.
func ForKind(kind Kind) Capability {
	switch kind {
	case KindApple:
		return Capability{Kind: KindApple, VideoEncoder: "h264_videotoolbox", SecondaryEncoder: "hevc_videotoolbox", AccelerationFlag: "videotoolbox"}
	case KindNVIDIA:
		return Capability{Kind: KindNVIDIA, VideoEncoder: "h264_nvenc", SecondaryEncoder: "hevc_nvenc", AccelerationFlag: "cuda"}
	case KindVAAPI:
		return Capability{Kind: KindVAAPI, VideoEncoder: "h264_vaapi", SecondaryEncoder: "hevc_vaapi", AccelerationFlag: DefaultRenderDevice}
	case KindQuickSync:
		return Capability{Kind: KindQuickSync, VideoEncoder: "h264_qsv", SecondaryEncoder: "hevc_qsv", AccelerationFlag: "qsv"}
	default:
		return Software()
	}
}
