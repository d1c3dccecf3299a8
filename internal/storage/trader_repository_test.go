package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTraderOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []string
		want     string
	}{
		{
			name:     "default when empty",
			ordering: nil,
			want:     "win_rate DESC, returns DESC, copiers DESC",
		},
		{
			name:     "single ascending",
			ordering: []string{"returns"},
			want:     "returns ASC",
		},
		{
			name:     "descending prefix",
			ordering: []string{"-win_rate"},
			want:     "win_rate DESC",
		},
		{
			name:     "multiple fields preserve order",
			ordering: []string{"-win_rate", "copiers"},
			want:     "win_rate DESC, copiers ASC",
		},
		{
			name:     "unknown fields are dropped",
			ordering: []string{"name; DROP TABLE traders", "returns"},
			want:     "returns ASC",
		},
		{
			name:     "all unknown falls back to default",
			ordering: []string{"sneaky", "-also_sneaky"},
			want:     "win_rate DESC, returns DESC, copiers DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildTraderOrderBy(tt.ordering))
		})
	}
}

func TestValidTraderOrderField(t *testing.T) {
	assert.True(t, ValidTraderOrderField("win_rate"))
	assert.True(t, ValidTraderOrderField("-win_rate"))
	assert.True(t, ValidTraderOrderField("copiers"))
	assert.False(t, ValidTraderOrderField("name"))
	assert.False(t, ValidTraderOrderField(""))
}
