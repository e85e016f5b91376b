package handlers

import (
	"log"
	"net/http"
	"server/db"
	"server/storage"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func hasWriteAccess(bucket *storage.Bucket) error {
	store := storage.NewStorage(bucket)
	testKey := "tmp/access-check"
	if _, err := store.Save(testKey, strings.NewReader("some-content"), "text/plain"); err != nil {
		log.Printf("Cannot save to bucket: %+v", bucket)
		return err
	}
	if err := store.Delete(testKey); err != nil {
		log.Printf("Cannot delete from bucket: %+v", bucket)
		return err
	}
	return nil
}

func cleanupPath(in *storage.Bucket) {
	for strings.Contains(in.Path, "..") {
		in.Path = strings.ReplaceAll(in.Path, "..", "")
	}
	for strings.Contains(in.Path, "//") {
		in.Path = strings.ReplaceAll(in.Path, "//", "/")
	}
}

func BucketSave(c *gin.Context) {
	bucket := storage.Bucket{}
	err := c.ShouldBindWith(&bucket, binding.JSON)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	cleanupPath(&bucket)

	if bucket.Name == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "Empty bucket name"})
		return
	}
	if bucket.StorageType == storage.StorageTypeFile {
		if bucket.Path == "" {
			c.JSON(http.StatusBadRequest, Response{Error: "Empty bucket path"})
			return
		}
		if bucket.Path[0] != '/' {
			c.JSON(http.StatusBadRequest, Response{Error: "Path must be absolute and start with / (slash)"})
			return
		}
	} else if bucket.StorageType == storage.StorageTypeS3 {
		if bucket.S3Key == "" || bucket.S3Secret == "" {
			c.JSON(http.StatusBadRequest, Response{Error: "'S3 Key' and 'S3 Secret' must be provided"})
			return
		}
		if bucket.Region == "" {
			bucket.Region = "us-east-1"
		}
	} else {
		c.JSON(http.StatusBadRequest, Response{Error: "'type' must be one of 'file' or 's3'"})
		return
	}
	if err = bucket.TryInit(); err != nil {
		c.JSON(http.StatusForbidden, Response{Error: err.Error()})
		return
	}
	if err := hasWriteAccess(&bucket); err != nil {
		c.JSON(http.StatusForbidden, Response{Error: "No write access to bucket: " + err.Error()})
		return
	}
	if bucket.ID == 0 {
		err = db.Instance.Create(&bucket).Error
	} else {
		err = db.Instance.Save(&bucket).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}
	// Re-initialize storage
	storage.Init()
	c.JSON(http.StatusOK, Response{Success: true, Message: "bucket saved"})
}

func BucketList(c *gin.Context) {
	buckets := []storage.Bucket{}
	result := db.Instance.Find(&buckets)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, Response{Error: "DB error"})
		return
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: buckets})
}
