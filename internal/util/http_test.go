package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	b, err := GetBytes(context.Background(), srv.URL+"/ok", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = GetBytes(context.Background(), srv.URL+"/missing", time.Second)
	assert.Error(t, err)
}

func TestGetBytesRejectsSchemes(t *testing.T) {
	for _, u := range []string{"file:///etc/passwd", "ftp://example.com/x", "not a url"} {
		_, err := GetBytes(context.Background(), u, time.Second)
		assert.ErrorIs(t, err, ErrBadURL, u)
	}
}
