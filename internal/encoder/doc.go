// Package encoder discovers the best video encoder the installed ffmpeg can
// drive.
//
// A Prober walks a fixed tier chain (Apple VideoToolbox, NVIDIA NVENC, VAAPI,
// Intel Quick Sync, software x264/x265). Apple and NVIDIA tiers must pass a
// short synthetic encode; VAAPI trusts the render node and Quick Sync trusts
// the encoder listing. Every failure is captured as a TierResult so the chain
// always ends at software. The resulting Capability is computed once and
// injected into the pipeline at startup.
package encoder
