package switcher

import "github.com/wordtrail/syncore/internal/learner"

// MergeResult is the outcome of reconciling a local pending queue against
// remote authoritative truth.
type MergeResult struct {
	// Keep holds local actions the remote hasn't resolved, in their
	// original insertion order.
	Keep []learner.QueuedAction

	// Resolve maps entity ids whose remote status is terminal; their local
	// pending actions are moot and get dropped.
	Resolve map[string]learner.Status

	// Adopt maps remote non-terminal entities this client has no pending
	// action for — work in progress started elsewhere (another device).
	Adopt map[string]learner.Status
}

// Merge reconciles the local queue against the remote entity-status map.
// Deterministic and order-independent: the result depends only on the sets,
// not on the order either was produced.
//
//   - local actions whose entity is terminal remotely are dropped
//   - remote non-terminal entities not referenced locally are adopted
//   - local actions the remote doesn't mention are kept untouched
func Merge(local []learner.QueuedAction, remote map[string]learner.Status) MergeResult {
	res := MergeResult{
		Resolve: map[string]learner.Status{},
		Adopt:   map[string]learner.Status{},
	}

	referenced := make(map[string]bool, len(local))
	for _, a := range local {
		referenced[a.EntityID] = true
	}

	for entityID, status := range remote {
		switch {
		case status.Terminal():
			res.Resolve[entityID] = status
		case !referenced[entityID]:
			res.Adopt[entityID] = status
		}
	}

	for _, a := range local {
		if _, resolved := res.Resolve[a.EntityID]; resolved {
			continue
		}
		res.Keep = append(res.Keep, a)
	}

	return res
}
