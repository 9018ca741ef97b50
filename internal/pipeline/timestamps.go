package pipeline

import "math"

const (
	heroMark  = 7.1
	slateMark = 2.0
	tailGuard = 0.5
)

// Timestamps picks the hero and slate frame positions for a clip of
// duration seconds. Long clips skip a typical countdown with a fixed 7.1s
// hero mark; short clips scale with their length. Both marks stay at least
// half a second before the end and never go negative.
func Timestamps(duration float64) (hero, slate float64) {
	switch {
	case duration < 5:
		hero, slate = duration/2, 0.5
	case duration < 10:
		hero, slate = duration*0.6, 1.0
	default:
		hero, slate = heroMark, slateMark
	}
	limit := duration - tailGuard
	hero = math.Max(0, math.Min(hero, limit))
	slate = math.Max(0, math.Min(slate, limit))
	return hero, slate
}
