package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewDefaultClient builds an S3 client from the default AWS configuration
// chain (environment, shared config, instance metadata).
func NewDefaultClient(ctx context.Context, optFns ...func(o *s3.Options)) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, optFns...), nil
}
