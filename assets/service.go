package assets

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"server/config"
	"server/imaging"
	"server/models"
	"server/storage"

	"github.com/google/uuid"
)

// Transformer converts image bytes to WebP and reports image metadata.
// Implemented by transformer.Client; tests plug in a local one.
type Transformer interface {
	Transform(data []byte, opts imaging.Options) ([]byte, error)
	Inspect(data []byte) (*imaging.Info, error)
}

// Service owns every write to the per-type single-active state. Callers must
// not toggle is_active through the models package directly.
type Service struct {
	Transformer Transformer
}

func NewService(transformer Transformer) *Service {
	return &Service{Transformer: transformer}
}

var allowedMimeTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type UploadRequest struct {
	Data      []byte
	Type      string
	Name      string
	MimeType  string
	PackSetID string
}

// UploadResult separates upload success from transform degradation: the
// asset is always created, TransformWarning says whether the derived WebP
// variant is missing and why.
type UploadResult struct {
	Asset            *models.Asset
	TransformWarning string
}

func (s *Service) validateUpload(r *UploadRequest) error {
	if !models.ValidAssetType(r.Type) {
		return &ValidationError{Reason: "unknown asset type: " + r.Type}
	}
	if _, ok := allowedMimeTypes[r.MimeType]; !ok {
		return &ValidationError{Reason: "content type not allowed: " + r.MimeType}
	}
	if len(r.Data) == 0 {
		return &ValidationError{Reason: "empty file"}
	}
	if len(r.Data) > imaging.MaxInputSize {
		return &ValidationError{Reason: "file exceeds the 10MB limit"}
	}
	if models.IsPackSide(r.Type) {
		if r.PackSetID == "" {
			return &ValidationError{Reason: "packSetId is required for " + r.Type}
		}
		count, err := models.CountPackSide(r.PackSetID, r.Type)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if count > 0 {
			return &ValidationError{Reason: "pack set " + r.PackSetID + " already has a " + r.Type}
		}
	} else if r.PackSetID != "" {
		return &ValidationError{Reason: "packSetId is only valid for pack-front and pack-back"}
	}
	return nil
}

// Upload stores the original blob, derives a WebP variant (best-effort) and
// commits the metadata record. The metadata write is the commit point: a
// failure before it leaves at most an orphaned blob, never a record
// pointing at missing bytes. Not idempotent - repeated calls create
// distinct assets.
func (s *Service) Upload(r *UploadRequest) (*UploadResult, error) {
	if err := s.validateUpload(r); err != nil {
		return nil, err
	}
	store := storage.GetDefaultStorage()

	keyBase := "assets/" + r.Type + "/" + uuid.NewString()
	storageKey := keyBase + allowedMimeTypes[r.MimeType]
	size, err := store.Save(storageKey, bytes.NewReader(r.Data), r.MimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	asset := models.Asset{
		Type:       r.Type,
		StorageKey: storageKey,
		MimeType:   r.MimeType,
		Size:       size,
		PackSetID:  r.PackSetID,
		Name:       r.Name,
		BucketID:   store.GetBucket().ID,
	}
	result := UploadResult{Asset: &asset}

	// Both calls below are best-effort: a broken or slow worker degrades the
	// asset to original-only instead of failing the upload
	if info, err := s.Transformer.Inspect(r.Data); err == nil {
		asset.Width = uint32(info.Width)
		asset.Height = uint32(info.Height)
	}
	derived, err := s.Transformer.Transform(r.Data, imaging.Options{Quality: config.TRANSFORMER_QUALITY})
	if err != nil {
		log.Printf("Transform failed for upload %s: %v", storageKey, err)
		result.TransformWarning = "WebP conversion failed, serving original only: " + err.Error()
	} else {
		// A distinct suffix so a WebP original never collides with its variant
		webpKey := keyBase + "_thumb.webp"
		if _, err = store.Save(webpKey, bytes.NewReader(derived), "image/webp"); err != nil {
			log.Printf("Cannot store derived variant %s: %v", webpKey, err)
			result.TransformWarning = "could not store the WebP variant: " + err.Error()
		} else {
			asset.WebpKey = webpKey
		}
	}

	if err = models.CreateAsset(&asset); err != nil {
		// Roll the blobs back so they don't linger unreferenced
		if delErr := store.Delete(storageKey); delErr != nil {
			log.Printf("Orphaned blob %s after failed metadata write: %v", storageKey, delErr)
		}
		if asset.WebpKey != "" {
			if delErr := store.Delete(asset.WebpKey); delErr != nil {
				log.Printf("Orphaned blob %s after failed metadata write: %v", asset.WebpKey, delErr)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &result, nil
}

// Activate promotes the asset and demotes all others of the type in one
// transaction. Idempotent.
func (s *Service) Activate(id uint64, assetType string) error {
	if !models.ValidAssetType(assetType) {
		return ErrNotFound
	}
	return models.ActivateAsset(id, assetType)
}

// Delete removes the metadata record first, then the blobs. A blob delete
// failure leaves a garbage-collectable orphan and is only logged; the
// reverse order could leave a record pointing at missing bytes, which would
// break the read path.
func (s *Service) Delete(id uint64, assetType string) error {
	asset, err := models.FindAsset(id, assetType)
	if err != nil {
		return err
	}
	store := storage.StorageFrom(&asset.Bucket)
	if store == nil {
		return fmt.Errorf("%w: no storage for bucket %d", ErrStorage, asset.BucketID)
	}
	if err = models.DeleteAsset(asset); err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err = store.Delete(asset.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Orphaned blob %s after deleting asset %d: %v", asset.StorageKey, asset.ID, err)
	}
	if asset.HasWebp() {
		if err = store.Delete(asset.WebpKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Orphaned blob %s after deleting asset %d: %v", asset.WebpKey, asset.ID, err)
		}
	}
	return nil
}

type Page struct {
	Assets  []models.Asset
	Cursor  uint64
	HasMore bool
}

const DefaultPageSize = 50

func (s *Service) ListByType(assetType string, cursor uint64, limit int) (*Page, error) {
	if !models.ValidAssetType(assetType) {
		return nil, &ValidationError{Reason: "unknown asset type: " + assetType}
	}
	if limit <= 0 || limit > 200 {
		limit = DefaultPageSize
	}
	items, next, hasMore, err := models.FindAssetsPage(assetType, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &Page{Assets: items, Cursor: next, HasMore: hasMore}, nil
}

func (s *Service) Active(assetType string) (*models.Asset, error) {
	if !models.ValidAssetType(assetType) {
		return nil, &ValidationError{Reason: "unknown asset type: " + assetType}
	}
	return models.FindActiveAsset(assetType)
}

type Pair struct {
	Front *models.Asset `json:"front"`
	Back  *models.Asset `json:"back"`
}

// PairByPackSet resolves the two sides of a pack visual. Assets without a
// pack set id never pair with anything, including themselves.
func (s *Service) PairByPackSet(packSetID string) (*Pair, error) {
	if packSetID == "" {
		return nil, &ValidationError{Reason: "packSetId must not be empty"}
	}
	found, err := models.FindAssetsByPackSet(packSetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	pair := Pair{}
	for i := range found {
		switch found[i].Type {
		case models.AssetTypePackFront:
			pair.Front = &found[i]
		case models.AssetTypePackBack:
			pair.Back = &found[i]
		}
	}
	return &pair, nil
}
