package authorities

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/StricklySoft/stricklysoft-gateway/internal/testutil/fixtures"
)

func TestAugment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    []string
		marker string
		want   []string
	}{
		{
			name: "adds user role and sorts",
			raw:  []string{fixtures.GroupSales, fixtures.GroupEveryone},
			want: []string{fixtures.GroupEveryone, fixtures.GroupSales, RoleUser},
		},
		{
			name:   "admin marker grants admin role",
			raw:    []string{fixtures.GroupAdmins},
			marker: fixtures.GroupAdmins,
			want:   []string{fixtures.GroupAdmins, RoleAdmin, RoleUser},
		},
		{
			name: "marker ignored when storage has none",
			raw:  []string{fixtures.GroupAdmins},
			want: []string{fixtures.GroupAdmins, RoleUser},
		},
		{
			name: "duplicates and blanks dropped",
			raw:  []string{"B", "A", "B", "", RoleUser},
			want: []string{"A", "B", RoleUser},
		},
		{
			name: "empty input",
			raw:  []string{},
			want: []string{RoleUser},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Augment(tt.raw, tt.marker)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Augment(got, tt.marker))
		})
	}
}

func TestAugment_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	raw := []string{"B", "A"}
	Augment(raw, "")
	assert.Equal(t, []string{"B", "A"}, raw)
}
