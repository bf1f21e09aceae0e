package config

import "time"

// ExternalEndpoint is one candidate radio transport endpoint. Config
// carries a priority-ordered list so a station can fail over to a
// backup injection endpoint without a code change.
type ExternalEndpoint struct {
	URL      string        `json:"url"`
	Priority int           `json:"priority"`
	Timeout  time.Duration `json:"timeout"`
}
