package scheduling

import "sort"

// ConflictSet holds the ids of every claim that overlaps another claim on the
// same resource. Membership is binary.
type ConflictSet map[ClaimID]struct{}

// Has reports whether the claim is conflicted.
func (s ConflictSet) Has(id ClaimID) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in sorted order.
func (s ConflictSet) IDs() []ClaimID {
	ids := make([]ClaimID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FindConflicts partitions claims by resource id and compares every pair in a
// partition. Two claims conflict iff a.start < b.end && a.end > b.start, so
// back-to-back bookings are not conflicts.
//
// Partitions are keyed by class and resource id. O(n²) per partition.
func FindConflicts(claims []ResourceClaim) ConflictSet {
	type key struct {
		class ResourceClass
		id    string
	}
	partitions := make(map[key][]int)
	for i, c := range claims {
		k := key{c.Class, c.ResourceID}
		partitions[k] = append(partitions[k], i)
	}

	conflicts := make(ConflictSet)
	for _, idx := range partitions {
		for a := 0; a < len(idx); a++ {
			ca := claims[idx[a]]
			for b := a + 1; b < len(idx); b++ {
				cb := claims[idx[b]]
				if ca.Interval.Overlaps(cb.Interval) {
					conflicts[ca.ID] = struct{}{}
					conflicts[cb.ID] = struct{}{}
				}
			}
		}
	}
	return conflicts
}

// ResourceLane groups the claims drawn on one resource row.
type ResourceLane struct {
	ResourceID string          `json:"resource_id"`
	Claims     []ResourceClaim `json:"claims"`
	Conflicted []ClaimID       `json:"conflicted"`
}

// GroupByResource lays claims of one class out per resource in the order of
// resourceIDs. Claims on resources missing from resourceIDs are appended as
// extra rows, sorted by id, so nothing assigned is hidden.
func GroupByResource(claims []ResourceClaim, class ResourceClass, resourceIDs []string, conflicts ConflictSet) []ResourceLane {
	byID := make(map[string][]ResourceClaim)
	for _, c := range claims {
		if c.Class != class {
			continue
		}
		byID[c.ResourceID] = append(byID[c.ResourceID], c)
	}

	lanes := make([]ResourceLane, 0, len(resourceIDs))
	seen := make(map[string]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		seen[id] = true
		lanes = append(lanes, newLane(id, byID[id], conflicts))
	}

	var extra []string
	for id := range byID {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		lanes = append(lanes, newLane(id, byID[id], conflicts))
	}
	return lanes
}

func newLane(id string, claims []ResourceClaim, conflicts ConflictSet) ResourceLane {
	lane := ResourceLane{ResourceID: id, Claims: claims, Conflicted: []ClaimID{}}
	if lane.Claims == nil {
		lane.Claims = []ResourceClaim{}
	}
	for _, c := range claims {
		if conflicts.Has(c.ID) {
			lane.Conflicted = append(lane.Conflicted, c.ID)
		}
	}
	return lane
}
