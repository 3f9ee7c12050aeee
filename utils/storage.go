package utils

import (
	"bytes"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const signatureFolder = "signatures"

// SignatureStorage uploads contract signature blobs to an S3-compatible
// bucket. Signed contracts reference the returned URL; the blob itself is the
// legal artifact and is never deleted.
type SignatureStorage struct {
	bucket   string
	endpoint string
	client   *s3.S3
}

func NewSignatureStorage(accessKey, secretKey, bucket, region, endpoint string) (*SignatureStorage, error) {
	if bucket == "" || endpoint == "" {
		return nil, fmt.Errorf("storage: bucket and endpoint are required")
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Endpoint:    aws.String(endpoint),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create session: %w", err)
	}
	return &SignatureStorage{
		bucket:   bucket,
		endpoint: endpoint,
		client:   s3.New(sess),
	}, nil
}

func (s *SignatureStorage) UploadSignature(file []byte, fileName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", signatureFolder, fileName)

	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(filePath),
		Body:          bytes.NewReader(file),
		ContentLength: aws.Int64(int64(len(file))),
		ContentType:   aws.String("image/png"),
		ACL:           aws.String("private"),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload signature to S3: %v", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, filePath), nil
}
