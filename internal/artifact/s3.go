package artifact

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignTTL is the default lifetime of a returned access URL.
const PresignTTL = 7 * 24 * time.Hour

// S3 writes artifacts to an S3-compatible bucket. Client errors never fail
// the caller: a failed upload returns an empty path, a nil url and a nil
// error; a failed presign returns the key with a nil url and a nil error.
type S3 struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

func NewS3(client *s3.Client, bucket string) *S3 {
	return &S3{client: client, presigner: s3.NewPresignClient(client), bucket: bucket}
}

func (w *S3) Write(ctx context.Context, runID string, kind Kind, name string, contentType string, content []byte, when time.Time) (string, *string, error) {
	key := Key(runID, kind, name, when)

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		// artifact errors are soft: logged upstream by the orchestrator,
		// never escalated to run failure.
		return "", nil, nil
	}

	req, err := w.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return key, nil, nil
	}
	url := req.URL
	return key, &url, nil
}
