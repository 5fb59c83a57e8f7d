package vimeosvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
)

const apiVersion = "application/vnd.vimeo.*+json;version=3.4"

type (
	service struct {
		conf   core.VideoHostConfig
		client *http.Client
		logger core.Logger
	}

	meResponse struct {
		Name        string `json:"name"`
		URI         string `json:"uri"`
		AccountType string `json:"account"`
		UploadQuota *struct {
			Space struct {
				Free int64 `json:"free"`
				Max  int64 `json:"max"`
				Used int64 `json:"used"`
			} `json:"space"`
		} `json:"upload_quota"`
	}

	createVideoResponse struct {
		URI    string `json:"uri"`
		Upload struct {
			Approach   string `json:"approach"`
			UploadLink string `json:"upload_link"`
		} `json:"upload"`
	}

	videoResponse struct {
		URI       string `json:"uri"`
		Duration  int    `json:"duration"`
		Transcode struct {
			Status string `json:"status"`
		} `json:"transcode"`
	}

	errorResponse struct {
		Error            string `json:"error"`
		ErrorCode        int    `json:"error_code"`
		DeveloperMessage string `json:"developer_message"`
	}
)

var _ core.VideoHostService = (*service)(nil)

// NewService returns a client for the Vimeo API using the configured
// credentials. client may be nil.
func NewService(conf *core.Config, logger core.Logger, client *http.Client) *service {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &service{conf: conf.VideoHost, client: client, logger: logger}
}

func (svc *service) Identity(ctx context.Context) (core.HostIdentity, error) {
	var me meResponse
	if err := svc.do(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return core.HostIdentity{}, err
	}

	identity := core.HostIdentity{
		Name:        me.Name,
		URI:         me.URI,
		AccountType: me.AccountType,
	}
	if me.UploadQuota != nil {
		identity.UploadQuota = &core.UploadQuota{
			SpaceFree: me.UploadQuota.Space.Free,
			SpaceUsed: me.UploadQuota.Space.Used,
			SpaceMax:  me.UploadQuota.Space.Max,
		}
	}
	return identity, nil
}

func (svc *service) Upload(ctx context.Context, filePath string, meta core.UploadMeta) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrap(err, "opening video file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(err, "stat video file")
	}

	body := map[string]interface{}{
		"upload": map[string]interface{}{
			"approach": "tus",
			"size":     fmt.Sprintf("%d", info.Size()),
		},
	}
	if meta.Name != "" {
		body["name"] = meta.Name
	}
	if meta.Description != "" {
		body["description"] = meta.Description
	}

	var created createVideoResponse
	if err := svc.do(ctx, http.MethodPost, "/me/videos", body, &created); err != nil {
		return "", err
	}
	if created.Upload.UploadLink == "" {
		return "", errors.Errorf("host returned no upload link for %s", created.URI)
	}

	if err := svc.uploadBytes(ctx, created.Upload.UploadLink, f, info.Size()); err != nil {
		return "", err
	}
	return created.URI, nil
}

func (svc *service) VideoDetails(ctx context.Context, remoteID string) (core.VideoDetails, error) {
	path := remoteID
	if !strings.HasPrefix(path, "/") {
		path = "/videos/" + remoteID
	}
	path += "?fields=uri,duration,transcode.status"

	var video videoResponse
	if err := svc.do(ctx, http.MethodGet, path, nil, &video); err != nil {
		return core.VideoDetails{}, err
	}
	return core.VideoDetails{
		URI:      video.URI,
		Duration: video.Duration,
		Ready:    video.Transcode.Status == "complete",
	}, nil
}

// uploadBytes pushes the whole file to the tus upload link in one patch.
func (svc *service) uploadBytes(ctx context.Context, uploadLink string, r io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, uploadLink, r)
	if err != nil {
		return errors.Wrap(err, "building upload request")
	}
	req.ContentLength = size
	req.Header.Set("Tus-Resumable", "1.0.0")
	req.Header.Set("Upload-Offset", "0")
	req.Header.Set("Content-Type", "application/offset+octet-stream")

	res, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "uploading video bytes")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return svc.requestError(res)
	}
	return nil
}

func (svc *service) do(ctx context.Context, method, path string, body, out interface{}) error {
	uri := strings.TrimSuffix(svc.conf.BaseURL, "/") + path

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+svc.conf.AccessToken)
	req.Header.Set("Accept", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return svc.requestError(res)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "decoding %s %s response", method, path)
		}
	}
	return nil
}

// requestError turns a non-2xx host response into a HostRequestError,
// preserving the host's own error body when it sends one.
func (svc *service) requestError(res *http.Response) error {
	herr := &core.HostRequestError{StatusCode: res.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err == nil && len(raw) > 0 {
		var body errorResponse
		if err := json.Unmarshal(raw, &body); err == nil {
			herr.ErrCode = body.Error
			herr.Description = body.DeveloperMessage
		}
	}
	if herr.ErrCode == "" {
		herr.ErrCode = http.StatusText(res.StatusCode)
	}
	return herr
}
