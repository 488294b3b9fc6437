package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func item(serial string, status *string) *Item {
	return &Item{SerialNumber: serial, StatusSnapshot: status}
}

func TestComputeDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous []*Item
		current  []*Item
		want     Diff
	}{
		{
			name:     "empty inputs yield empty report",
			previous: nil,
			current:  nil,
			want:     Diff{Added: []string{}, Removed: []string{}, StatusChanged: []StatusChange{}},
		},
		{
			name:     "no previous audit reports everything as added",
			previous: nil,
			current:  []*Item{item("SN-1", nil), item("SN-2", nil)},
			want:     Diff{Added: []string{"SN-1", "SN-2"}, Removed: []string{}, StatusChanged: []StatusChange{}},
		},
		{
			name: "added removed and changed in one report",
			previous: []*Item{
				item("SN-1", strptr("In Use")),
				item("SN-2", strptr("In Storage")),
				item("SN-3", strptr("In Use")),
			},
			current: []*Item{
				item("SN-1", strptr("In Use")),
				item("SN-3", strptr("Under Repair")),
				item("SN-4", strptr("In Storage")),
			},
			want: Diff{
				Added:   []string{"SN-4"},
				Removed: []string{"SN-2"},
				StatusChanged: []StatusChange{
					{SerialNumber: "SN-3", From: "In Use", To: "Under Repair"},
				},
			},
		},
		{
			name: "missing snapshot on either side is never a change",
			previous: []*Item{
				item("SN-1", nil),
				item("SN-2", strptr("In Use")),
				item("SN-3", strptr("")),
			},
			current: []*Item{
				item("SN-1", strptr("In Use")),
				item("SN-2", nil),
				item("SN-3", strptr("In Use")),
			},
			want: Diff{Added: []string{}, Removed: []string{}, StatusChanged: []StatusChange{}},
		},
		{
			name: "duplicate serials within one side count once",
			previous: []*Item{
				item("SN-1", strptr("In Use")),
			},
			current: []*Item{
				item("SN-2", nil),
				item("SN-2", nil),
			},
			want: Diff{Added: []string{"SN-2"}, Removed: []string{"SN-1"}, StatusChanged: []StatusChange{}},
		},
		{
			name: "order follows scan order of each side",
			previous: []*Item{
				item("SN-9", nil),
				item("SN-1", nil),
				item("SN-5", nil),
			},
			current: []*Item{
				item("SN-7", nil),
				item("SN-2", nil),
			},
			want: Diff{
				Added:         []string{"SN-7", "SN-2"},
				Removed:       []string{"SN-9", "SN-1", "SN-5"},
				StatusChanged: []StatusChange{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiff(tt.previous, tt.current)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeDiffSelfIsEmpty(t *testing.T) {
	items := []*Item{
		item("SN-1", strptr("In Use")),
		item("SN-2", strptr("In Storage")),
	}

	got := ComputeDiff(items, items)

	assert.Empty(t, got.Added)
	assert.Empty(t, got.Removed)
	assert.Empty(t, got.StatusChanged)
}

func TestComputeDiffIsDeterministic(t *testing.T) {
	previous := []*Item{item("SN-3", strptr("In Use")), item("SN-1", nil), item("SN-2", nil)}
	current := []*Item{item("SN-2", nil), item("SN-4", strptr("Lost")), item("SN-3", strptr("Retired"))}

	first := ComputeDiff(previous, current)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeDiff(previous, current))
	}
}
