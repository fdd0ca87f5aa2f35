// utils/r2.go
package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"party-game-system/models"
)

var r2Client *s3.Client
var r2Bucket string
var bundleKey string

// InitR2 configures the R2 client used to pull the published catalog bundle.
// Optional: when the R2 env vars are absent the bundle fallback stays off.
func InitR2() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	r2Bucket = os.Getenv("R2_BUCKET_NAME")
	bundleKey = os.Getenv("R2_CATALOG_BUNDLE_KEY")
	if bundleKey == "" {
		bundleKey = "catalog/bundle.json"
	}

	if accountID == "" || accessKeyID == "" || accessKeySecret == "" || r2Bucket == "" {
		return fmt.Errorf("R2 environment variables not set")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load R2 config: %w", err)
	}

	r2Client = s3.NewFromConfig(cfg)
	return nil
}

// R2Enabled reports whether InitR2 has run successfully.
func R2Enabled() bool {
	return r2Client != nil
}

// DownloadCatalogBundle fetches the published catalog snapshot from R2. Used
// as a cache-refresh fallback when the catalog service list calls fail.
func DownloadCatalogBundle(ctx context.Context) (*models.CatalogBundle, error) {
	if r2Client == nil {
		return nil, fmt.Errorf("R2 client not initialized")
	}

	out, err := r2Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r2Bucket),
		Key:    aws.String(bundleKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog bundle from R2: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog bundle: %w", err)
	}

	var bundle models.CatalogBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode catalog bundle: %w", err)
	}
	return &bundle, nil
}
