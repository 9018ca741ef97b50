// Package storage lays artifacts out under the media root in logical
// buckets (sources, playable, support, thumbnails, slates, web, audio,
// icons, encoded). Assets store bucket-relative paths; bucket directories
// are created on demand.
package storage
