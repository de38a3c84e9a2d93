package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTrustBands(t *testing.T) {
	bands := ParseTrustBands("500:0.3,200:0.5,50:0.8")
	assert.Equal(t, []TrustBand{
		{MinScore: 500, Multiplier: 0.3},
		{MinScore: 200, Multiplier: 0.5},
		{MinScore: 50, Multiplier: 0.8},
	}, bands)

	// Input order does not matter; bands sort highest threshold first.
	bands = ParseTrustBands("50:0.8, 500:0.3 ,200:0.5")
	assert.Equal(t, 500, bands[0].MinScore)
	assert.Equal(t, 50, bands[2].MinScore)
}

func TestParseTrustBandsDropsMalformed(t *testing.T) {
	bands := ParseTrustBands("500:0.3,garbage,200:1.5,:0.5,100:0.7")
	assert.Equal(t, []TrustBand{
		{MinScore: 500, Multiplier: 0.3},
		{MinScore: 100, Multiplier: 0.7},
	}, bands)
}

func TestParseTrustBandsFallsBackToDefaults(t *testing.T) {
	assert.Equal(t, DefaultTrustBands(), ParseTrustBands(""))
	assert.Equal(t, DefaultTrustBands(), ParseTrustBands("nonsense"))
}

func TestMultiplier(t *testing.T) {
	cfg := ScreeningConfig{TrustBands: DefaultTrustBands()}

	assert.Equal(t, 0.3, cfg.Multiplier(1200))
	assert.Equal(t, 0.3, cfg.Multiplier(500))
	assert.Equal(t, 0.5, cfg.Multiplier(499))
	assert.Equal(t, 0.8, cfg.Multiplier(50))
	assert.Equal(t, 1.0, cfg.Multiplier(49))
	assert.Equal(t, 1.0, cfg.Multiplier(0))
}
