package storage

import (
	"errors"
	"fmt"
	"io"
	"log"
	"server/config"
	"server/db"
)

// ErrNotFound is returned when a storage key has no object behind it.
var ErrNotFound = errors.New("object not found")

// StorageAPI is a durable blob store addressed by opaque keys. Keys are
// generated by the caller so that metadata and blob can be correlated
// before either write commits. Keys are write-once.
type StorageAPI interface {
	Save(key string, reader io.Reader, mimeType string) (int64, error)
	Load(key string, writer io.Writer) (int64, error)
	Delete(key string) error
	GetBucket() *Bucket
	GetTotalSpace() uint64
	GetFreeSpace() uint64
}

var (
	cachedStorage []StorageAPI
)

func Init() {
	if err := db.Instance.AutoMigrate(&Bucket{}); err != nil {
		panic(err)
	}

	cachedStorage = []StorageAPI{}
	var buckets []Bucket
	err := db.Instance.Find(&buckets).Error
	if err != nil {
		panic(err)
	}
	if len(buckets) == 0 && config.DEFAULT_BUCKET_DIR != "" {
		bucket := Bucket{
			Name:        "default",
			StorageType: StorageTypeFile,
			Path:        config.DEFAULT_BUCKET_DIR,
		}
		if err = bucket.Create(); err != nil {
			panic(err)
		}
		buckets = append(buckets, bucket)
	}
	log.Printf("Storage Buckets found: %d\n", len(buckets))
	for _, bucket := range buckets {
		cachedStorage = append(cachedStorage, NewStorage(&bucket))
	}
}

func NewStorage(bucket *Bucket) StorageAPI {
	if bucket.StorageType == StorageTypeFile {
		return NewDiskStorage(bucket)
	} else if bucket.StorageType == StorageTypeS3 {
		return NewS3Storage(bucket)
	}
	panic(fmt.Sprintf("Storage type unavailable for Bucket %d", bucket.ID))
}

func StorageFrom(bucket *Bucket) StorageAPI {
	for _, s := range cachedStorage {
		if s.GetBucket().ID == bucket.ID {
			return s
		}
	}
	return nil
}

func GetDefaultStorage() StorageAPI {
	if len(cachedStorage) == 0 {
		panic("no storage available")
	}
	for _, s := range cachedStorage {
		if s.GetBucket().StorageType == StorageTypeFile {
			return s
		}
	}
	return cachedStorage[0]
}
