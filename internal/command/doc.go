// Package command builds ffmpeg, ffprobe, and RAW converter invocations.
//
// Every builder is a pure function of its inputs: tier-specific transcode
// commands derive from an encoder.Capability, thumbnails from a timestamp and
// height, and custom encodes from a normalized Settings value. Nothing here
// runs a process; the pipeline executes the returned Command.
package command
