package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dearher/bagstore/internal/domain/product"
)

var (
	ErrNoValidImages = errors.New("No valid image files provided")
	ErrUploadTimeout = errors.New("image upload timed out")
	ErrNotConfigured = errors.New("image storage is not configured")
	ErrForeignURL    = errors.New("url does not belong to this image store")
)

const (
	DefaultFolder  = "products"
	DefaultTimeout = 60 * time.Second

	maxParallelUploads = 4
)

// Image is one uploaded file as received from the admin form.
type Image struct {
	Filename string
	Data     []byte
}

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Config struct {
	Bucket     string
	Prefix     string
	CDNBaseURL string
	Region     string
	Timeout    time.Duration
}

// S3Uploader stores product images in a bucket fronted by a CDN.
type S3Uploader struct {
	client ObjectAPI
	cfg    Config
	log    *zap.Logger
}

func NewS3Uploader(client ObjectAPI, cfg Config, log *zap.Logger) *S3Uploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.CDNBaseURL = strings.TrimRight(cfg.CDNBaseURL, "/")
	if cfg.CDNBaseURL == "" && cfg.Bucket != "" {
		cfg.CDNBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Uploader{client: client, cfg: cfg, log: log.Named("upload")}
}

// Upload stores every non-empty image under <prefix>/<folder>/ and returns
// their public URLs in input order, skipping entries that are empty or not
// images. Images go up in parallel; the first failure cancels the rest. The
// whole batch shares one timeout and is not retried.
func (u *S3Uploader) Upload(ctx context.Context, folder string, images []Image) ([]string, error) {
	if u.cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	type accepted struct {
		image Image
		mime  *mimetype.MIME
	}
	valid := make([]accepted, 0, len(images))
	for _, img := range images {
		if len(img.Data) == 0 {
			u.log.Debug("skipping empty upload", zap.String("filename", img.Filename))
			continue
		}
		mime := mimetype.Detect(img.Data)
		if !strings.HasPrefix(mime.String(), "image/") {
			u.log.Debug("skipping non-image upload", zap.String("filename", img.Filename), zap.String("mime", mime.String()))
			continue
		}
		valid = append(valid, accepted{image: img, mime: mime})
	}
	if len(valid) == 0 {
		return nil, ErrNoValidImages
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	dir := u.folderPath(folder)
	urls := make([]string, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, v := range valid {
		g.Go(func() error {
			key := dir + "/" + uuid.New().String() + v.mime.Extension()
			_, err := u.client.PutObject(gctx, &s3.PutObjectInput{
				Bucket:       aws.String(u.cfg.Bucket),
				Key:          aws.String(key),
				Body:         bytes.NewReader(v.image.Data),
				ContentType:  aws.String(v.mime.String()),
				CacheControl: aws.String("public, max-age=31536000, immutable"),
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", v.image.Filename, err)
			}
			u.log.Info("uploaded image", zap.String("key", key), zap.Int("bytes", len(v.image.Data)))
			urls[i] = u.cfg.CDNBaseURL + "/" + key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrUploadTimeout
		}
		return nil, err
	}
	return urls, nil
}

// Delete removes an image previously returned by Upload.
func (u *S3Uploader) Delete(ctx context.Context, url string) error {
	if u.cfg.Bucket == "" {
		return ErrNotConfigured
	}
	key, ok := strings.CutPrefix(url, u.cfg.CDNBaseURL+"/")
	if !ok || key == "" {
		return ErrForeignURL
	}
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (u *S3Uploader) folderPath(folder string) string {
	name := product.Slugify(folder)
	if name == "" {
		name = DefaultFolder
	}
	if u.cfg.Prefix == "" {
		return name
	}
	return u.cfg.Prefix + "/" + name
}
