package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// StorageService owns the certificate asset bucket. PDF rendering and upload
// are external collaborators; this service ensures the bucket exists and
// derives the public URL each asset will live at.
type StorageService struct {
	appContext.DefaultService

	client *minio.Client

	endpoint  string
	accessKey string
	secretKey string
	bucket    string
	useSSL    bool
	publicURL string
}

const STORAGE_SVC = "storage_svc"

func (svc StorageService) Id() string {
	return STORAGE_SVC
}

func (svc *StorageService) Configure(ctx *appContext.Context) error {
	svc.endpoint = os.Getenv("MINIO_ENDPOINT")
	svc.accessKey = os.Getenv("MINIO_ACCESS_KEY")
	svc.secretKey = os.Getenv("MINIO_SECRET_KEY")
	svc.bucket = os.Getenv("MINIO_BUCKET")
	if svc.bucket == "" {
		svc.bucket = "certificates"
	}
	svc.useSSL = os.Getenv("MINIO_USE_SSL") == "true"
	svc.publicURL = strings.TrimSuffix(os.Getenv("MINIO_PUBLIC_URL"), "/")

	return svc.DefaultService.Configure(ctx)
}

func (svc *StorageService) Start() error {
	if svc.endpoint == "" {
		log.Warn("MINIO_ENDPOINT not set; certificate assets get URL-only records")
		return nil
	}

	client, err := minio.New(svc.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(svc.accessKey, svc.secretKey, ""),
		Secure: svc.useSSL,
	})
	if err != nil {
		return fmt.Errorf("minio client: %w", err)
	}
	svc.client = client

	return svc.ensureBucket()
}

func (svc *StorageService) ensureBucket() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := svc.client.BucketExists(ctx, svc.bucket)
	if err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}
	if !exists {
		if err = svc.client.MakeBucket(ctx, svc.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("bucket create: %w", err)
		}
		log.WithField("bucket", svc.bucket).Info("created storage bucket")
	}
	return nil
}

// CertificateObjectURL is where a certificate's asset will live once
// rendered, valid before the object exists.
func (svc *StorageService) CertificateObjectURL(serial string) string {
	base := svc.publicURL
	if base == "" {
		scheme := "http"
		if svc.useSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, svc.endpoint)
	}
	return fmt.Sprintf("%s/%s/%s", base, svc.bucket, certificateObjectName(serial))
}

func certificateObjectName(serial string) string {
	return fmt.Sprintf("certs/%s.pdf", serial)
}
