package domain

// Leg is one atomic swap within a multi-hop route.
type Leg struct {
	Venue    string `json:"venue"`
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
	FeeBps   uint64 `json:"fee_bps"`
	// Network is the network the venue lives on; empty for single-network
	// routes.
	Network string `json:"network,omitempty"`
}

// Route is the ordered sequence of legs converting principal back to the
// starting asset (or a settlement asset). A route is created per attempt and
// discarded after use.
type Route struct {
	Legs []Leg `json:"legs"`
}

// Continuous reports whether every adjacent leg pair satisfies
// legs[i].TokenOut == legs[i+1].TokenIn. Routes violating this are rejected
// before any capital movement.
func (r Route) Continuous() bool {
	for i := 0; i+1 < len(r.Legs); i++ {
		if r.Legs[i].TokenOut != r.Legs[i+1].TokenIn {
			return false
		}
	}
	return true
}

// StartToken returns the input asset of the first leg, or "" for an empty
// route.
func (r Route) StartToken() string {
	if len(r.Legs) == 0 {
		return ""
	}
	return r.Legs[0].TokenIn
}

// EndToken returns the output asset of the last leg, or "" for an empty
// route.
func (r Route) EndToken() string {
	if len(r.Legs) == 0 {
		return ""
	}
	return r.Legs[len(r.Legs)-1].TokenOut
}

// Closed reports whether the route returns to its starting asset.
func (r Route) Closed() bool {
	return len(r.Legs) > 0 && r.StartToken() == r.EndToken()
}
