// SPDX-License-Identifier: MIT

package legendre

import (
	"fmt"

	"github.com/katalvlaran/wavemoth/config"
	"github.com/katalvlaran/wavemoth/precompute"
	"github.com/katalvlaran/wavemoth/resource"
)

// Provider serves the Legendre matrices of one resource file: for key
// (m, odd), λ_l^m on the northern rings 1..2·Nside.
type Provider struct {
	header    resource.Header
	eps       float64
	minRows   int
	chunkSize int
	thetas    []float64
}

var _ precompute.Provider = (*Provider)(nil)

// NewProvider precomputes the ring colatitudes of cfg.Nside.
// Only the numerical fields of cfg are used.
func NewProvider(cfg config.Config) (*Provider, error) {
	h := resource.Header{Lmax: cfg.Lmax, Mmax: cfg.Mmax, Nside: cfg.Nside}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("NewProvider: %w", err)
	}
	if cfg.Mmax > cfg.Lmax {
		return nil, fmt.Errorf("NewProvider: mmax=%d > lmax=%d: %w", cfg.Mmax, cfg.Lmax, ErrInvalidOrder)
	}
	thetas, err := RingThetas(cfg.Nside, true)
	if err != nil {
		return nil, fmt.Errorf("NewProvider: %w", err)
	}

	return &Provider{
		header:    h,
		eps:       cfg.Eps,
		minRows:   cfg.MinRows,
		chunkSize: cfg.ChunkSize,
		thetas:    thetas,
	}, nil
}

// Header implements precompute.Provider.
func (p *Provider) Header() resource.Header { return p.header }

// Thetas returns a copy of the sampled colatitudes.
func (p *Provider) Thetas() []float64 { return append([]float64(nil), p.thetas...) }

// Problem implements precompute.Provider.
func (p *Provider) Problem(k resource.Key) (precompute.Problem, error) {
	if !p.header.Contains(k) {
		return precompute.Problem{}, fmt.Errorf("Problem: %v with mmax=%d: %w", k, p.header.Mmax, ErrInvalidOrder)
	}
	a, err := Matrix(k.M, p.header.Lmax, k.Odd, p.thetas)
	if err != nil {
		return precompute.Problem{}, err
	}

	return precompute.Problem{Matrix: a, Eps: p.eps, MinRows: p.minRows, ChunkSize: p.chunkSize}, nil
}
