package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/imageplanner/internal/imagery"
)

// PlanArchive persists finished placement plans to S3 so downstream document
// renderers can pick them up after the job record expires.
type PlanArchive struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewPlanArchive builds an archive against the given bucket. Credentials and
// region come from the default AWS config chain.
func NewPlanArchive(ctx context.Context, bucket, prefix string) (*PlanArchive, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if prefix == "" {
		prefix = "plans"
	}
	return &PlanArchive{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// Save uploads the result JSON under <prefix>/<jobID>.json and returns the
// s3:// URL.
func (a *PlanArchive) Save(ctx context.Context, jobID string, res imagery.ProcessResult) (string, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	key := path.Join(a.prefix, jobID+".json")
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"job_id":  jobID,
			"created": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload plan: %w", err)
	}
	url := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	log.Info().Str("job_id", jobID).Str("url", url).Int("size", len(body)).Msg("archived placement plan")
	return url, nil
}

// Load fetches an archived plan by job id.
func (a *PlanArchive) Load(ctx context.Context, jobID string) (imagery.ProcessResult, error) {
	key := path.Join(a.prefix, jobID+".json")
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return imagery.ProcessResult{}, fmt.Errorf("download plan: %w", err)
	}
	defer out.Body.Close()
	var res imagery.ProcessResult
	if err := json.NewDecoder(out.Body).Decode(&res); err != nil {
		return imagery.ProcessResult{}, fmt.Errorf("decode plan: %w", err)
	}
	return res, nil
}
