package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ObjectStorageGateway stores each report as one object: the photo, with the
// description and coordinates as user metadata. A bucket notification on the
// backend picks it up from there.
type ObjectStorageGateway struct {
	conn   *minio.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewObjectStorageGateway connects to an S3 compatible endpoint.
func NewObjectStorageGateway(endpoint, accessKeyID, secretAccessKey, bucket, prefix string, useSSL bool, logger zerolog.Logger) (*ObjectStorageGateway, error) {
	conn, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &ObjectStorageGateway{
		conn:   conn,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Submit uploads the report with a single PutObject.
func (o *ObjectStorageGateway) Submit(ctx context.Context, sub Submission) (Response, error) {
	objectName := path.Join(o.prefix, uuid.New().String()+extensionFor(sub.MIMEType))

	info, err := o.conn.PutObject(ctx, o.bucket, objectName, bytes.NewReader(sub.File), int64(len(sub.File)),
		minio.PutObjectOptions{
			ContentType: sub.MIMEType,
			UserMetadata: map[string]string{
				// Header values must stay ASCII
				"description": url.QueryEscape(sub.Description),
				"latitude":    sub.Latitude,
				"longitude":   sub.Longitude,
				"filename":    url.QueryEscape(sub.FileName),
			},
		})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.StatusCode == 0 {
			return Response{}, &Error{Err: err}
		}
		o.logger.Warn().
			Int("status", errResp.StatusCode).
			Str("code", errResp.Code).
			Msg("Object storage rejected report")
		return Response{}, &Error{StatusCode: errResp.StatusCode, Message: errResp.Message, Err: err}
	}

	o.logger.Info().
		Str("bucket", info.Bucket).
		Str("object", info.Key).
		Int64("size", info.Size).
		Msg("Report stored")
	return Response{StatusCode: 200}, nil
}

func extensionFor(mimeType string) string {
	if m := mimetype.Lookup(mimeType); m != nil {
		return m.Extension()
	}
	return ""
}
