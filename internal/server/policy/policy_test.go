package policy

import (
	"testing"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwns(t *testing.T) {
	tests := []struct {
		name         string
		owner, actor string
		want         bool
	}{
		{"same user", "u1", "u1", true},
		{"other user", "u1", "u2", false},
		{"empty owner", "", "u1", false},
		{"empty actor", "u1", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Owns(tt.owner, tt.actor))
		})
	}
}

func TestRequireOwner(t *testing.T) {
	require.NoError(t, RequireOwner("u1", "u1"))
	require.ErrorIs(t, RequireOwner("u1", "u2"), common.ErrorForbidden)
	require.ErrorIs(t, RequireOwner("", ""), common.ErrorForbidden)
}
