package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsh/crossarb/internal/domain"
)

// stubSource returns a fixed learned target for every key.
type stubSource struct {
	target float64
	ok     bool
}

func (s stubSource) Target(Key) (float64, bool) { return s.target, s.ok }

func TestResolverStaticBases(t *testing.T) {
	r := Resolver{ProfitOpen: 0.002, ProfitClose: 0.0005}
	key := testKey()

	tests := []struct {
		dir  domain.Direction
		want float64
	}{
		{domain.DirectionOpen, 0.002},
		{domain.DirectionClose, 0.0005},
		{domain.DirectionHalfClose, 0.00125},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(key, tt.dir)
		require.True(t, ok)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestResolverLearnedOverride(t *testing.T) {
	key := testKey()

	tests := []struct {
		name     string
		learned  stubSource
		dir      domain.Direction
		want     float64
		tradable bool
	}{
		{"positive learned overrides open", stubSource{0.0031, true}, domain.DirectionOpen, 0.0031, true},
		{"positive learned overrides close", stubSource{0.0031, true}, domain.DirectionClose, 0.0031, true},
		{"negative learned honored for close", stubSource{-0.001, true}, domain.DirectionClose, -0.001, true},
		{"negative learned refuses open", stubSource{-0.001, true}, domain.DirectionOpen, 0, false},
		{"negative learned refuses half_close", stubSource{-0.001, true}, domain.DirectionHalfClose, 0, false},
		{"no learned value falls back", stubSource{0, false}, domain.DirectionOpen, 0.002, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolver{ProfitOpen: 0.002, ProfitClose: 0.0005, Learned: tt.learned}
			got, ok := r.Resolve(key, tt.dir)
			assert.Equal(t, tt.tradable, ok)
			if tt.tradable {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
