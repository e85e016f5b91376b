package models

import (
	"errors"
	"server/db"

	"gorm.io/gorm"
)

func FindAssetByID(id uint64) (*Asset, error) {
	asset := Asset{}
	err := db.Instance.Joins("Bucket").First(&asset, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindAsset looks up an asset and verifies it belongs to the given type.
// A type mismatch is reported the same way as a missing record.
func FindAsset(id uint64, assetType string) (*Asset, error) {
	asset := Asset{}
	err := db.Instance.Joins("Bucket").Where("assets.id = ? AND assets.type = ?", id, assetType).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func FindAssetsByType(assetType string) ([]Asset, error) {
	var assets []Asset
	err := db.Instance.Where("type = ?", assetType).
		Order("created_at DESC, id DESC").Find(&assets).Error
	return assets, err
}

// FindAssetsPage returns up to limit assets of the given type, newest first,
// starting below the given cursor id (0 means from the top). The next cursor
// is the id of the last returned asset.
func FindAssetsPage(assetType string, cursor uint64, limit int) (assets []Asset, next uint64, hasMore bool, err error) {
	q := db.Instance.Where("type = ?", assetType)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	err = q.Order("id DESC").Limit(limit + 1).Find(&assets).Error
	if err != nil {
		return nil, 0, false, err
	}
	if len(assets) > limit {
		assets = assets[:limit]
		hasMore = true
	}
	if len(assets) > 0 {
		next = assets[len(assets)-1].ID
	}
	return
}

// FindActiveAsset returns the single active asset of the given type, or nil
// when the type has no active asset.
func FindActiveAsset(assetType string) (*Asset, error) {
	asset := Asset{}
	err := db.Instance.Where("type = ? AND is_active = ?", assetType, true).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func FindAssetsByPackSet(packSetID string) ([]Asset, error) {
	var assets []Asset
	err := db.Instance.Where("pack_set_id = ? AND pack_set_id <> ''", packSetID).Find(&assets).Error
	return assets, err
}

// CreateAsset persists a new asset record. The row is always inserted
// inactive; when no other asset of the type is active yet it is then
// promoted through the same demote-then-promote pair ActivateAsset uses.
// Counting inside the insert transaction would not do: two concurrent
// first uploads each read count=0 on their own snapshot and both commit
// active. The demote UPDATE takes row locks on the type's rows, so racing
// bootstrap promotions serialize and settle on a single active row.
func CreateAsset(asset *Asset) error {
	asset.IsActive = false
	if err := db.Instance.Create(asset).Error; err != nil {
		return err
	}
	asset.HasDerivedWebp = asset.HasWebp()
	var activeCount int64
	err := db.Instance.Model(&Asset{}).
		Where("type = ? AND is_active = ? AND id <> ?", asset.Type, true, asset.ID).
		Count(&activeCount).Error
	if err == nil && activeCount == 0 {
		err = ActivateAsset(asset.ID, asset.Type)
	}
	if err != nil {
		// Remove the half-created record so the caller can roll its blobs
		// back without leaving metadata pointing at deleted bytes
		db.Instance.Delete(&Asset{}, asset.ID)
		return err
	}
	if activeCount == 0 {
		asset.IsActive = true
	}
	return nil
}

func UpdateAsset(asset *Asset) error {
	return db.Instance.Save(asset).Error
}

func DeleteAsset(asset *Asset) error {
	result := db.Instance.Delete(&Asset{}, asset.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// ActivateAsset promotes the given asset and demotes every other asset of the
// type in a single transaction, so readers never observe two active assets.
// The demote UPDATE locks the type's rows, serializing concurrent writers.
func ActivateAsset(id uint64, assetType string) error {
	return db.Instance.Transaction(func(tx *gorm.DB) error {
		asset := Asset{}
		err := tx.Where("id = ? AND type = ?", id, assetType).First(&asset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssetNotFound
		}
		if err != nil {
			return err
		}
		if err = tx.Model(&Asset{}).Where("type = ? AND id <> ?", assetType, id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		asset.IsActive = true
		return tx.Model(&asset).Select("is_active", "updated_at").Updates(&asset).Error
	})
}

// CountPackSide returns how many assets of the given type already share the
// pack set id. At most one front and one back may exist per set.
func CountPackSide(packSetID, assetType string) (int64, error) {
	var count int64
	err := db.Instance.Model(&Asset{}).
		Where("pack_set_id = ? AND type = ?", packSetID, assetType).Count(&count).Error
	return count, err
}
