package command

import (
	"fmt"

	"archivist/internal/encoder"
)

// Family selects which encoder of a capability an output uses.
type Family int

const (
	// H264 is the playable proxy family (capability.VideoEncoder).
	H264 Family = iota
	// H265 is the support proxy family (capability.SecondaryEncoder).
	H265
)

// VideoSpec describes one transcode output.
type VideoSpec struct {
	Output       string
	Height       int
	Family       Family
	AudioBitrate string
}

// PlayableSpec is the 1080p H.264 playable proxy.
func PlayableSpec(output string, height int) VideoSpec {
	return VideoSpec{Output: output, Height: height, Family: H264, AudioBitrate: "192k"}
}

// SupportSpec is the 720p H.265 support proxy.
func SupportSpec(output string, height int) VideoSpec {
	return VideoSpec{Output: output, Height: height, Family: H265, AudioBitrate: "128k"}
}

// BuildVideoCommand translates an output spec and the active capability
// into an ffmpeg invocation. It is pure: the same inputs always yield the
// same argv.
func BuildVideoCommand(ffmpeg, input string, spec VideoSpec, capability encoder.Capability) Command {
	if capability.Kind == "" {
		capability = encoder.Software()
	}
	height := spec.Height
	if height <= 0 {
		height = 1080
	}
	audioBitrate := spec.AudioBitrate
	if audioBitrate == "" {
		audioBitrate = "192k"
	}

	args := []string{"-y", "-hide_banner"}
	args = append(args, inputFlags(capability)...)
	args = append(args, "-i", input)
	args = append(args, "-c:v", encoderFor(capability, spec.Family))
	args = append(args, rateFlags(capability.Kind, spec.Family)...)
	args = append(args,
		"-vf", filterChain(capability.Kind, height),
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-movflags", "+faststart",
		spec.Output,
	)
	return Command{Binary: binaryOr(ffmpeg, "ffmpeg"), Args: args}
}

func encoderFor(capability encoder.Capability, family Family) string {
	if family == H265 {
		if capability.SecondaryEncoder != "" {
			return capability.SecondaryEncoder
		}
		return encoder.ForKind(capability.Kind).SecondaryEncoder
	}
	if capability.VideoEncoder != "" {
		return capability.VideoEncoder
	}
	return encoder.ForKind(capability.Kind).VideoEncoder
}

// inputFlags keeps decoded frames on the device for tiers whose filters
// run there.
func inputFlags(capability encoder.Capability) []string {
	switch capability.Kind {
	case encoder.KindNVIDIA:
		return []string{"-hwaccel", "cuda", "-hwaccel_output_format", "cuda"}
	case encoder.KindVAAPI:
		device := capability.AccelerationFlag
		if device == "" {
			device = encoder.DefaultRenderDevice
		}
		return []string{"-hwaccel", "vaapi", "-vaapi_device", device, "-hwaccel_output_format", "vaapi"}
	default:
		return nil
	}
}

func rateFlags(kind encoder.Kind, family Family) []string {
	support := family == H265
	switch kind {
	case encoder.KindApple:
		if support {
			return []string{"-b:v", "4M", "-maxrate", "6M", "-bufsize", "8M", "-allow_sw", "1"}
		}
		return []string{"-b:v", "8M", "-maxrate", "10M", "-bufsize", "16M", "-allow_sw", "1"}
	case encoder.KindNVIDIA:
		if support {
			return []string{"-preset", "p3", "-rc:v", "vbr", "-cq:v", "26", "-b:v", "4M", "-maxrate", "6M", "-bufsize", "8M"}
		}
		return []string{"-preset", "p4", "-rc:v", "vbr", "-cq:v", "20", "-b:v", "8M", "-maxrate", "12M", "-bufsize", "16M"}
	case encoder.KindVAAPI:
		if support {
			return []string{"-qp", "26"}
		}
		return []string{"-qp", "20"}
	case encoder.KindQuickSync:
		if support {
			return []string{"-preset", "veryfast", "-global_quality", "28"}
		}
		return []string{"-preset", "veryfast", "-global_quality", "23"}
	default:
		if support {
			return []string{"-preset", "ultrafast", "-crf", "28", "-threads", "0", "-x265-params", "aq-mode=0:me=dia:rd=2:ref=1"}
		}
		return []string{"-preset", "veryfast", "-tune", "fastdecode", "-crf", "23", "-threads", "0", "-x264-params", "aq-mode=0:me=dia:subme=2:ref=1"}
	}
}

func filterChain(kind encoder.Kind, height int) string {
	switch kind {
	case encoder.KindNVIDIA:
		return fmt.Sprintf("yadif_cuda,scale_cuda=-2:%d", height)
	case encoder.KindVAAPI:
		return fmt.Sprintf("deinterlace_vaapi,scale_vaapi=w=-2:h=%d", height)
	default:
		return fmt.Sprintf("yadif,scale=-2:%d", height)
	}
}
