package audit

// ComputeDiff reconciles two audits keyed by serial number.
//
// Added lists serials present only in current, in current's order. Removed
// lists serials present only in previous, in previous's order. StatusChanged
// lists serials present in both whose snapshots both exist and differ; a
// missing snapshot on either side is never reported, so absent data cannot
// produce a false change. The function is pure: identical inputs always
// yield identical output.
func ComputeDiff(previous, current []*Item) Diff {
	prevBySerial := make(map[string]*Item, len(previous))
	for _, item := range previous {
		if _, exists := prevBySerial[item.SerialNumber]; !exists {
			prevBySerial[item.SerialNumber] = item
		}
	}
	currBySerial := make(map[string]*Item, len(current))
	for _, item := range current {
		if _, exists := currBySerial[item.SerialNumber]; !exists {
			currBySerial[item.SerialNumber] = item
		}
	}

	diff := Diff{
		Added:         []string{},
		Removed:       []string{},
		StatusChanged: []StatusChange{},
	}

	seen := make(map[string]struct{}, len(current))
	for _, item := range current {
		if _, dup := seen[item.SerialNumber]; dup {
			continue
		}
		seen[item.SerialNumber] = struct{}{}

		prev, inPrevious := prevBySerial[item.SerialNumber]
		if !inPrevious {
			diff.Added = append(diff.Added, item.SerialNumber)
			continue
		}

		if prev.StatusSnapshot == nil || item.StatusSnapshot == nil {
			continue
		}
		if *prev.StatusSnapshot != "" && *item.StatusSnapshot != "" && *prev.StatusSnapshot != *item.StatusSnapshot {
			diff.StatusChanged = append(diff.StatusChanged, StatusChange{
				SerialNumber: item.SerialNumber,
				From:         *prev.StatusSnapshot,
				To:           *item.StatusSnapshot,
			})
		}
	}

	seen = make(map[string]struct{}, len(previous))
	for _, item := range previous {
		if _, dup := seen[item.SerialNumber]; dup {
			continue
		}
		seen[item.SerialNumber] = struct{}{}

		if _, inCurrent := currBySerial[item.SerialNumber]; !inCurrent {
			diff.Removed = append(diff.Removed, item.SerialNumber)
		}
	}

	return diff
}
