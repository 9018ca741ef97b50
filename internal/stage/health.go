package stage

import "strings"

// Health reports whether a pipeline can accept work. Encoder names the
// video encoder a transcoding pipeline will drive.
type Health struct {
	Name    string
	Ready   bool
	Detail  string
	Encoder string
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// WithEncoder records the encoder and, for a ready pipeline without other
// detail, surfaces it as the detail line.
func (h Health) WithEncoder(encoder string) Health {
	h.Encoder = strings.TrimSpace(encoder)
	if h.Ready && h.Detail == "" && h.Encoder != "" {
		h.Detail = "encoder " + h.Encoder
	}
	return h
}
