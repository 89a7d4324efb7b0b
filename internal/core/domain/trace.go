package domain

import "time"

// Hop is one TTL step reported by traceroute.
type Hop struct {
	TTL      int       `json:"ttl"`
	Address  string    `json:"address,omitempty"` // empty when every probe timed out
	Host     string    `json:"host,omitempty"`
	RTTs     []float64 `json:"rtts_ms,omitempty"`
	Timeouts int       `json:"timeouts"`
}

// Responded reports whether any probe for this TTL got an answer.
func (h Hop) Responded() bool {
	return h.Address != ""
}

// Location is the geolocated position of an IP address.
type Location struct {
	IP          string  `json:"ip"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	ISP         string  `json:"isp,omitempty"`
	Source      string  `json:"source"` // provider that answered: ipapi, mmdb
}

// LocatedHop pairs a hop with its location, if one could be found.
type LocatedHop struct {
	Hop
	Location *Location `json:"location,omitempty"`
}

// Trace is one traceroute run towards Target.
type Trace struct {
	ID         string       `json:"id"`
	Target     string       `json:"target"`
	Hops       []LocatedHop `json:"hops"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Error      string       `json:"error,omitempty"`
}

// Located returns the hops that have a location, in TTL order.
func (t *Trace) Located() []LocatedHop {
	var out []LocatedHop
	for _, h := range t.Hops {
		if h.Location != nil {
			out = append(out, h)
		}
	}
	return out
}

// TraceEvent kinds.
const (
	EventHop  = "hop"
	EventDone = "done"
)

// TraceEvent is published while a trace runs.
type TraceEvent struct {
	TraceID string      `json:"trace_id"`
	Kind    string      `json:"kind"`
	Hop     *LocatedHop `json:"hop,omitempty"`
	Trace   *Trace      `json:"trace,omitempty"`
}
