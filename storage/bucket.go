package storage

import (
	"os"
	"server/db"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type StorageType uint8

const (
	StorageTypeFile StorageType = 0
	StorageTypeS3   StorageType = 1
)

type Bucket struct {
	ID          uint64      `gorm:"primaryKey" json:"id"`
	CreatedAt   int64       `json:"-"`
	UpdatedAt   int64       `json:"-"`
	Name        string      `gorm:"type:varchar(200)" json:"name"`
	StorageType StorageType `json:"type"`
	// Path is a directory on a drive or a key prefix in a S3 bucket
	Path          string `gorm:"type:varchar(300)" json:"path"`
	S3Key         string `gorm:"type:varchar(200)" json:"s3key"`
	S3Secret      string `gorm:"type:varchar(200)" json:"s3secret"`
	Endpoint      string `gorm:"type:varchar(300)" json:"endpoint"`
	Region        string `gorm:"type:varchar(50)" json:"region"`
	SSEEncryption string `gorm:"type:varchar(50)" json:"sse_encryption"`
}

func (b *Bucket) IsS3() bool {
	return b.StorageType == StorageTypeS3
}

func (b *Bucket) Create() error {
	if err := b.TryInit(); err != nil {
		return err
	}
	return db.Instance.Create(b).Error
}

// TryInit prepares the bucket for use (pre-creates the directory for disk buckets)
func (b *Bucket) TryInit() error {
	if b.StorageType == StorageTypeFile {
		return os.MkdirAll(b.Path, 0777)
	}
	return nil
}

// GetRemotePath returns the object key within the S3 bucket, honouring the
// configured key prefix
func (b *Bucket) GetRemotePath(key string) string {
	if b.IsS3() && b.Path != "" {
		return b.Path + "/" + key
	}
	return key
}

func (b *Bucket) CreateSVC() *s3.S3 {
	creds := credentials.NewStaticCredentials(b.S3Key, b.S3Secret, "")
	config := aws.Config{
		Credentials: creds,
		Region:      &b.Region,
	}
	if b.Endpoint != "" {
		config.Endpoint = &b.Endpoint
		config.S3ForcePathStyle = aws.Bool(true)
	}
	sess := session.Must(session.NewSession(&config))
	return s3.New(sess)
}

// CreateS3DownloadURI pre-signs a GET for the given key
func (b *Bucket) CreateS3DownloadURI(key string, expiry time.Duration) string {
	svc := b.CreateSVC()
	req, _ := svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: &b.Name,
		Key:    aws.String(b.GetRemotePath(key)),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return ""
	}
	return url
}
