package domain

// Policy holds the lifecycle rules that are configuration rather than code.
type Policy struct {
	InitialStatus     Status
	Transitions       map[Status][]Status
	EnforceTransition bool
	AllowEmptyItems   bool
	DefaultPageSize   int
	MaxPageSize       int
}

// DefaultPolicy is PLACED → PAID → SHIPPED → COMPLETED with CANCELLED
// reachable from every non-terminal state.
func DefaultPolicy() Policy {
	return Policy{
		InitialStatus: StatusPlaced,
		Transitions: map[Status][]Status{
			StatusPlaced:  {StatusPaid, StatusCancelled},
			StatusPaid:    {StatusShipped, StatusCancelled},
			StatusShipped: {StatusCompleted, StatusCancelled},
		},
		EnforceTransition: true,
		AllowEmptyItems:   false,
		DefaultPageSize:   50,
		MaxPageSize:       500,
	}
}

// CanTransition reports whether the graph has an edge from -> to. Terminal
// states have no outgoing edges.
func (p Policy) CanTransition(from, to Status) bool {
	if !p.EnforceTransition {
		return true
	}
	for _, next := range p.Transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (p Policy) IsTerminal(s Status) bool {
	return len(p.Transitions[s]) == 0
}

// ItemsEditable reports whether line items may still change in status s.
func (p Policy) ItemsEditable(s Status) bool {
	return s == p.InitialStatus
}
