package models

import (
	"errors"
	"server/storage"
	"strings"

	"gorm.io/gorm"
)

const (
	AssetTypeCard      = "card"
	AssetTypeCardBack  = "card-back"
	AssetTypePackFront = "pack-front"
	AssetTypePackBack  = "pack-back"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	// ErrActiveConflict means a write would leave two active assets of the same type
	ErrActiveConflict = errors.New("another asset of this type is already active")
)

type Asset struct {
	ID         uint64 `gorm:"primaryKey" json:"id"`
	Type       string `gorm:"type:varchar(50);index:idx_type_active,priority:1;not null" json:"type"`
	StorageKey string `gorm:"type:varchar(100);uniqueIndex;not null" json:"storageKey"`
	// WebpKey points at the derived WebP variant. Empty means the upload-time
	// transform failed or was skipped; the read path falls back to StorageKey.
	WebpKey        string         `gorm:"type:varchar(100)" json:"thumbnailKey,omitempty"`
	MimeType       string         `gorm:"type:varchar(50)" json:"contentType"`
	Size           int64          `json:"size"`
	Width          uint32         `json:"width,omitempty"`
	Height         uint32         `json:"height,omitempty"`
	IsActive       bool           `gorm:"index:idx_type_active,priority:2;not null;default:false" json:"isActive"`
	PackSetID      string         `gorm:"type:varchar(100);index" json:"packSetId,omitempty"`
	Name           string         `gorm:"type:varchar(300)" json:"originalName"`
	BucketID       uint64         `json:"-"`
	Bucket         storage.Bucket `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	CreatedAt      int64          `json:"createdAt"`
	UpdatedAt      int64          `json:"updatedAt"`
	HasDerivedWebp bool           `gorm:"-" json:"hasDerivedWebp"`
}

func ValidAssetType(t string) bool {
	switch t {
	case AssetTypeCard, AssetTypeCardBack, AssetTypePackFront, AssetTypePackBack:
		return true
	}
	return false
}

// IsPackSide reports whether the type is one half of a two-sided pack visual
func IsPackSide(t string) bool {
	return t == AssetTypePackFront || t == AssetTypePackBack
}

func (a *Asset) HasWebp() bool {
	return a.WebpKey != ""
}

func (a *Asset) BeforeSave(tx *gorm.DB) (err error) {
	// Restrict the characters in Name
	var name strings.Builder
	for i, c := range a.Name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			(c == '.' && i > 0) || (c == '-') || (c == '_') {

			name.WriteRune(c)
		} else {
			// Replace all other characters with '_' (underscore)
			name.WriteString("_")
		}
	}
	a.Name = name.String()

	// The single-active invariant is owned by the assets service write path;
	// this re-check runs inside the caller's transaction as defense in depth
	if a.IsActive {
		var count int64
		q := tx.Model(&Asset{}).Where("type = ? AND is_active = ?", a.Type, true)
		if a.ID != 0 {
			q = q.Where("id <> ?", a.ID)
		}
		if err = q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrActiveConflict
		}
	}
	return
}

func (a *Asset) AfterFind(tx *gorm.DB) (err error) {
	a.HasDerivedWebp = a.HasWebp()
	return
}
