package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetBeforeSaveSanitisesName(t *testing.T) {
	initTestDB(t)

	asset := Asset{
		Type:       AssetTypeCard,
		StorageKey: "assets/card/k1.png",
		MimeType:   "image/png",
		Name:       "my card (final)!.png",
	}
	assert.NoError(t, CreateAsset(&asset))
	assert.Equal(t, "my_card__final__.png", asset.Name)
}

func TestValidAssetType(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		valid bool
	}{
		{"card", AssetTypeCard, true},
		{"card back", AssetTypeCardBack, true},
		{"pack front", AssetTypePackFront, true},
		{"pack back", AssetTypePackBack, true},
		{"empty", "", false},
		{"unknown", "banner", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidAssetType(tt.typ))
		})
	}
}

func TestIsPackSide(t *testing.T) {
	assert.True(t, IsPackSide(AssetTypePackFront))
	assert.True(t, IsPackSide(AssetTypePackBack))
	assert.False(t, IsPackSide(AssetTypeCard))
	assert.False(t, IsPackSide(AssetTypeCardBack))
}

func TestAssetHasWebp(t *testing.T) {
	asset := Asset{StorageKey: "assets/card/k1.png"}
	assert.False(t, asset.HasWebp())
	asset.WebpKey = "assets/card/k1.webp"
	assert.True(t, asset.HasWebp())
}
