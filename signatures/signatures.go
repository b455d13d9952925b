package signatures

import (
	"os"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
)

var ArchiveSignatureFunc = ArchiveSignature

// ArchiveSignature copy the signature payload of a decided action into the
// object store. Best-effort: callers log failures and move on, the decision
// record keeps the authoritative copy.
func ArchiveSignature(actionID types.ID, signatureData string) error {
	if signatureData == "" {
		return nil
	}
	bucket, err := BuildBucketFromEnv()
	if err != nil {
		return err
	}
	return bucket.PutObject("signatures/"+actionID.String()+".dat", strings.NewReader(signatureData))
}

func BuildBucketFromEnv() (*oss.Bucket, error) {
	endpoint := os.ExpandEnv(os.Getenv("OSS_ENDPOINT"))
	if endpoint == "" {
		endpoint = "dummy"
	}
	accessKey := os.Getenv("OSS_ACCESS_KEY")
	secretKey := os.Getenv("OSS_SECRET_KEY")
	bucket := os.Getenv("OSS_BUCKET")
	if bucket == "" {
		bucket = "procflow"
	}
	return BuildBucket(endpoint, accessKey, secretKey, bucket)
}

func BuildBucket(endpoint, accessKey, secretKey, bucketName string) (*oss.Bucket, error) {
	cli, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, err
	}

	bucket, err := cli.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	return bucket, nil
}
