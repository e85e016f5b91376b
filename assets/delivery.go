package assets

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"server/imaging"
	"server/models"
	"server/storage"
	"server/transformer"
	"time"
)

const (
	FormatAuto     = "auto"
	FormatWebp     = "webp"
	FormatOriginal = "original"
)

// Presigned S3 links stay valid long enough for any client retry but well
// short of credentials rotation windows
const downloadURIExpiry = 15 * time.Minute

// RedirectURI returns a pre-signed download location when the asset lives in
// an S3 bucket and the request can be served from a stored blob unmodified,
// so the bytes never proxy through this server. Requests that need a
// transform (custom dimensions, or webp without a stored variant) report
// false and go through Resolve instead.
func (s *Service) RedirectURI(id uint64, assetType string, opts ResolveOptions) (string, bool) {
	if opts.Width > 0 || opts.Height > 0 {
		return "", false
	}
	asset, err := models.FindAsset(id, assetType)
	if err != nil || !asset.Bucket.IsS3() {
		return "", false
	}
	key := asset.StorageKey
	if opts.Format != FormatOriginal {
		if !asset.HasWebp() {
			return "", false
		}
		key = asset.WebpKey
	}
	uri := asset.Bucket.CreateS3DownloadURI(key, downloadURIExpiry)
	if uri == "" {
		log.Printf("Cannot presign %s in bucket %d, proxying instead", key, asset.BucketID)
		return "", false
	}
	return uri, true
}

type ResolveOptions struct {
	Format  string // auto | webp | original, defaults to auto
	Width   uint
	Height  uint
	Quality int
}

// Resolve returns the bytes and content type to serve for an asset. The
// stored WebP variant wins when it exists and no custom dimensions are
// requested; custom requests are transformed on the fly and not cached
// back, so repeated custom-dimension requests re-transform each time.
// A transform timeout propagates to the caller; any other transform
// failure falls back to the stored original so the response is never
// broken.
func (s *Service) Resolve(id uint64, assetType string, opts ResolveOptions) ([]byte, string, error) {
	format := opts.Format
	if format == "" {
		format = FormatAuto
	}
	custom := opts.Width > 0 || opts.Height > 0
	if format == FormatOriginal && custom {
		// Resizing means re-encoding, which contradicts the requested format
		return nil, "", &ValidationError{Reason: "width/height cannot be combined with format=original"}
	}

	asset, err := models.FindAsset(id, assetType)
	if err != nil {
		return nil, "", err
	}
	store := storage.StorageFrom(&asset.Bucket)
	if store == nil {
		return nil, "", fmt.Errorf("%w: no storage for bucket %d", ErrStorage, asset.BucketID)
	}

	if !custom && (format == FormatAuto || format == FormatWebp) && asset.HasWebp() {
		buf := bytes.Buffer{}
		if _, err = store.Load(asset.WebpKey, &buf); err == nil {
			return buf.Bytes(), "image/webp", nil
		}
		// Derived blob is gone, degrade to the original below
		log.Printf("Cannot load derived variant %s: %v", asset.WebpKey, err)
	}

	original := bytes.Buffer{}
	if _, err = store.Load(asset.StorageKey, &original); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if format == FormatOriginal {
		return original.Bytes(), asset.MimeType, nil
	}

	out, err := s.Transformer.Transform(original.Bytes(), imaging.Options{
		Width:   opts.Width,
		Height:  opts.Height,
		Quality: opts.Quality,
	})
	if err != nil {
		if transformer.IsTimeout(err) {
			return nil, "", err
		}
		log.Printf("On-the-fly transform failed for asset %d: %v", asset.ID, err)
		return original.Bytes(), asset.MimeType, nil
	}
	return out, "image/webp", nil
}
