package netx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutPresigned(t *testing.T) {
	file := []byte("hello, s3")
	ctx := context.Background()

	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody []byte
		var gotCT, gotMethod, gotSum string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotSum = r.Header.Get("X-Amz-Checksum-Sha1")
			gotBody, _ = io.ReadAll(r.Body)
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		etag, err := PutPresigned(ctx, ts.Client(), ts.URL+"/bucket/key?partNumber=1&X-Amz-Signature=abc",
			map[string]string{"X-Amz-Checksum-Sha1": "c3VtCg=="}, file)
		require.NoError(t, err)
		assert.Equal(t, `"abc"`, etag)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "application/octet-stream", gotCT)
		assert.Equal(t, file, gotBody)
		assert.Equal(t, "c3VtCg==", gotSum)
	})

	t.Run("non-200 -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		_, err := PutPresigned(ctx, ts.Client(), ts.URL, nil, file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload failed: 403")
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		_, err := PutPresigned(ctx, http.DefaultClient, ts.URL, nil, file)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "upload failed")
	})
}

func TestPostJSON(t *testing.T) {
	ctx := context.Background()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid token"}`))
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["fileName"]})
	}))
	defer ts.Close()

	var out struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, PostJSON(ctx, ts.Client(), ts.URL, "tok", map[string]string{"fileName": "a"}, &out))
	assert.Equal(t, "a", out.Echo)

	err := PostJSON(ctx, ts.Client(), ts.URL, "", map[string]string{}, &out)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid token", apiErr.Message)
}
