package vimeosvc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasalabs/darasa/core"
	logsvc "github.com/darasalabs/darasa/services/logger"
)

func newTestService(t *testing.T, handler http.Handler) (*service, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	conf := &core.Config{}
	conf.VideoHost.BaseURL = ts.URL
	conf.VideoHost.AccessToken = "test-token"
	return NewService(conf, logsvc.NewNopLogger(), ts.Client()), ts
}

func TestIdentity(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, apiVersion, r.Header.Get("Accept"))
		fmt.Fprint(w, `{
			"name": "Darasa Academy",
			"uri": "/users/1234",
			"account": "pro",
			"upload_quota": {"space": {"free": 100, "used": 20, "max": 120}}
		}`)
	}))

	identity, err := svc.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Darasa Academy", identity.Name)
	assert.Equal(t, "/users/1234", identity.URI)
	assert.Equal(t, "pro", identity.AccountType)
	require.NotNil(t, identity.UploadQuota)
	assert.Equal(t, int64(100), identity.UploadQuota.SpaceFree)
	assert.Equal(t, int64(20), identity.UploadQuota.SpaceUsed)
	assert.Equal(t, int64(120), identity.UploadQuota.SpaceMax)
}

func TestIdentity_noQuota(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "Basic Account", "uri": "/users/1", "account": "basic"}`)
	}))

	identity, err := svc.Identity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity.UploadQuota)
}

func TestIdentity_hostError(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{
			"error": "You must provide a valid authenticated access token.",
			"error_code": 8003,
			"developer_message": "The access token is invalid."
		}`)
	}))

	_, err := svc.Identity(context.Background())
	require.Error(t, err)

	herr, ok := core.IsHostRequestError(err)
	require.True(t, ok, "want a host rejection, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, herr.StatusCode)
	assert.Equal(t, "You must provide a valid authenticated access token.", herr.ErrCode)
	assert.Equal(t, "The access token is invalid.", herr.Description)
}

func TestIdentity_nonJSONError(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream unavailable")
	}))

	_, err := svc.Identity(context.Background())
	herr, ok := core.IsHostRequestError(err)
	require.True(t, ok, "want a host rejection, got %v", err)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), herr.ErrCode)
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.mp4")
	content := []byte("fake video bytes")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	var uploaded []byte
	mux := http.NewServeMux()
	srvURL := "" // set once the server is up
	mux.HandleFunc("/me/videos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"approach":"tus"`)
		assert.Contains(t, string(body), fmt.Sprintf(`"size":"%d"`, len(content)))
		assert.Contains(t, string(body), `"name":"Intro"`)

		fmt.Fprintf(w, `{
			"uri": "/videos/987654",
			"upload": {"approach": "tus", "upload_link": %q}
		}`, srvURL+"/upload/987654")
	})
	mux.HandleFunc("/upload/987654", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "1.0.0", r.Header.Get("Tus-Resumable"))
		assert.Equal(t, "0", r.Header.Get("Upload-Offset"))

		var err error
		uploaded, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusNoContent)
	})

	svc, ts := newTestService(t, mux)
	srvURL = ts.URL

	uri, err := svc.Upload(context.Background(), path, core.UploadMeta{Name: "Intro"})
	require.NoError(t, err)
	assert.Equal(t, "/videos/987654", uri)
	assert.Equal(t, content, uploaded)
}

func TestUpload_missingUploadLink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"uri": "/videos/1", "upload": {"approach": "tus"}}`)
	}))

	_, err := svc.Upload(context.Background(), path, core.UploadMeta{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no upload link")
}

func TestVideoDetails(t *testing.T) {
	tests := []struct {
		name      string
		remoteID  string
		wantPath  string
		status    string
		wantReady bool
	}{
		{"byNumericID", "987654", "/videos/987654", "complete", true},
		{"byURI", "/videos/987654", "/videos/987654", "complete", true},
		{"stillTranscoding", "987654", "/videos/987654", "in_progress", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, "uri,duration,transcode.status", r.URL.Query().Get("fields"))
				fmt.Fprintf(w, `{
					"uri": %q,
					"duration": 754,
					"transcode": {"status": %q}
				}`, tt.wantPath, tt.status)
			}))

			details, err := svc.VideoDetails(context.Background(), tt.remoteID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, details.URI)
			assert.Equal(t, 754, details.Duration)
			assert.Equal(t, tt.wantReady, details.Ready)
		})
	}
}
