package core

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Video host field limits.
const (
	HostVideoNameMaxLen        = 128
	HostVideoDescriptionMaxLen = 5000
)

// Template placeholder values that must never reach the live host.
const (
	PlaceholderClientID     = "your-client-id"
	PlaceholderClientSecret = "your-client-secret"
)

var ErrHostCredentialsNotConfigured = errors.New(
	"video host API credentials are not configured properly; " +
		"set the client id, client secret and access token")

type (
	// UploadQuota reports the account's storage allowance, when the host
	// exposes one. Accounts without a quota may lack upload capability.
	UploadQuota struct {
		SpaceFree int64
		SpaceUsed int64
		SpaceMax  int64
	}

	// HostIdentity is the host's view of the authenticated account.
	HostIdentity struct {
		Name        string
		URI         string
		AccountType string
		UploadQuota *UploadQuota // nil when the host reports none
	}

	// UploadMeta carries the optional display fields attached to an upload.
	// Values must already be truncated to the host's field limits.
	UploadMeta struct {
		Name        string
		Description string
	}

	// VideoDetails is the host's post-processing metadata for an asset.
	// Ready is false while the host is still transcoding; Duration is only
	// meaningful once Ready.
	VideoDetails struct {
		URI      string
		Duration int
		Ready    bool
	}

	// VideoHostService is a client for the third-party video hosting API.
	VideoHostService interface {
		// Identity performs an authenticated read of the current account.
		// A successful call proves the three configured secrets belong to
		// the same host application.
		Identity(ctx context.Context) (HostIdentity, error)
		// Upload transmits a local file and returns the opaque remote
		// video identifier/URI assigned by the host.
		Upload(ctx context.Context, filePath string, meta UploadMeta) (string, error)
		// VideoDetails fetches the finalized metadata of an uploaded video.
		VideoDetails(ctx context.Context, remoteID string) (VideoDetails, error)
	}
)

// HostRequestError is a rejection by the video host, as opposed to a
// transport failure. ErrCode/Description carry the host's machine-readable
// error body when present.
type HostRequestError struct {
	StatusCode  int
	ErrCode     string
	Description string
}

func (e *HostRequestError) Error() string {
	msg := e.ErrCode
	if msg == "" {
		msg = fmt.Sprintf("request rejected with status %d", e.StatusCode)
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

// IsHostRequestError reports whether err is a host rejection and returns it.
func IsHostRequestError(err error) (*HostRequestError, bool) {
	herr, ok := errors.Cause(err).(*HostRequestError)
	return herr, ok
}

// Validate checks that all three secrets are present and none is a
// template placeholder. It cannot detect cross-app token mismatches;
// those only surface on a live Identity call.
func (vhc VideoHostConfig) Validate() error {
	if vhc.ClientID == "" || vhc.ClientID == PlaceholderClientID ||
		vhc.ClientSecret == "" || vhc.ClientSecret == PlaceholderClientSecret ||
		vhc.AccessToken == "" {
		return ErrHostCredentialsNotConfigured
	}
	return nil
}

// TaskScheduler dispatches deferred units of work. Delivery is
// at-least-once; tasks must be idempotent.
type TaskScheduler interface {
	Schedule(task string, payload interface{}) error
}

// RetryableError marks a task failure that should be attempted again
// later, such as an asset the host is still processing.
type RetryableError struct {
	Err   error
	After time.Duration // 0 lets the scheduler pick the backoff delay
}

func NewRetryableError(err error) error { return &RetryableError{Err: err} }

func (e *RetryableError) Error() string { return e.Err.Error() }

func IsRetryable(err error) bool {
	_, ok := errors.Cause(err).(*RetryableError)
	return ok
}
