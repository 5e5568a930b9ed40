package scheduler

// Allocation describes how demand was rationed against supply for a run.
type Allocation struct {
	TotalDemand   int            `json:"total_demand"`
	TotalSupply   int            `json:"total_supply"`
	ShortageRatio float64        `json:"shortage_ratio"`
	Targets       map[string]int `json:"targets"`
}

// Shortage reports whether targets were rationed.
func (a Allocation) Shortage() bool {
	return a.TotalSupply < a.TotalDemand
}

// balance sets the adjusted target of every planned event.
//
// Supply counts a leader once per event they qualify for, so it can exceed
// the number of distinct leaders.
func balance(plans []*plannedEvent) Allocation {
	alloc := Allocation{ShortageRatio: 1, Targets: make(map[string]int, len(plans))}
	for _, p := range plans {
		alloc.TotalDemand += p.event.LeadersNeeded
		alloc.TotalSupply += len(p.available)
	}

	shortage := alloc.TotalSupply < alloc.TotalDemand
	if shortage {
		alloc.ShortageRatio = float64(alloc.TotalSupply) / float64(alloc.TotalDemand)
	}

	for _, p := range plans {
		needed := p.event.LeadersNeeded
		switch {
		case needed == 0:
			p.target = 0
		case shortage:
			p.target = AdjustedTarget(needed, len(p.available), alloc.TotalSupply, alloc.TotalDemand)
		default:
			p.target = needed
		}
		alloc.Targets[p.event.Name] = p.target
	}
	return alloc
}

// AdjustedTarget rations an event's headcount under shortage: its fair share
// floor(needed * supply / demand), at least one, and never more than the
// leaders available. The share is computed in integers so it is exact.
func AdjustedTarget(needed, available, supply, demand int) int {
	if demand <= 0 {
		return min(needed, available)
	}
	share := needed * supply / demand
	if share < 1 {
		share = 1
	}
	return min(share, available)
}
