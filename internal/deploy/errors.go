package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors for deployment.
var (
	ErrDeployConfig = errors.New("invalid deploy configuration")
	ErrUpload       = errors.New("upload failed")
	ErrDelete       = errors.New("delete failed")
	ErrList         = errors.New("listing bucket failed")
)

// classifyS3Error wraps err with sentinel and a short reason derived from
// the S3 error code.
func classifyS3Error(err error, sentinel error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", sentinel, operation, err)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%w: %s: bucket does not exist", sentinel, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); code {
		case "AccessDenied":
			return fmt.Errorf("%w: %s: access denied", sentinel, operation)
		case "NoSuchBucket":
			return fmt.Errorf("%w: %s: bucket does not exist", sentinel, operation)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s: service unavailable, retry later", sentinel, operation)
		default:
			return fmt.Errorf("%w: %s (code: %s): %v", sentinel, operation, code, err)
		}
	}

	return fmt.Errorf("%w: %s: %v", sentinel, operation, err)
}
