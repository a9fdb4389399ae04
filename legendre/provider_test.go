package legendre_test

import (
	"testing"

	"github.com/katalvlaran/wavemoth/config"
	"github.com/katalvlaran/wavemoth/legendre"
	"github.com/katalvlaran/wavemoth/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Nside = 8
	cfg.Resolve() // lmax = mmax = 16
	p, err := legendre.NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, resource.Header{Lmax: 16, Mmax: 16, Nside: 8}, p.Header())
	assert.Len(t, p.Thetas(), 16)

	prob, err := p.Problem(resource.Key{M: 3, Odd: true})
	require.NoError(t, err)
	assert.Equal(t, 16, prob.Matrix.Rows())
	assert.Equal(t, 7, prob.Matrix.Cols()) // l = 4, 6, ..., 16
	assert.Equal(t, cfg.Eps, prob.Eps)
	assert.Equal(t, cfg.MinRows, prob.MinRows)
	assert.Equal(t, cfg.ChunkSize, prob.ChunkSize)

	last, err := p.Problem(resource.Key{M: 16, Odd: true})
	require.NoError(t, err)
	assert.Equal(t, 0, last.Matrix.Cols())

	_, err = p.Problem(resource.Key{M: 17})
	require.ErrorIs(t, err, legendre.ErrInvalidOrder)
}

func TestNewProviderRejectsBadHeaders(t *testing.T) {
	cfg := config.Default()
	cfg.Resolve()
	cfg.Mmax = cfg.Lmax + 1
	_, err := legendre.NewProvider(cfg)
	require.ErrorIs(t, err, legendre.ErrInvalidOrder)

	cfg = config.Default()
	cfg.Nside = 0
	_, err = legendre.NewProvider(cfg)
	require.ErrorIs(t, err, resource.ErrBadHeader)
}
