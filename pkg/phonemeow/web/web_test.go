package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/phonemeow/pkg/phonemeow/web"
)

func TestKVClient_GetValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user_hashes.json", r.URL.Path)
		assert.Equal(t, "s3cr3t", r.URL.Query().Get("auth"))
		_, _ = w.Write([]byte(`["aa","bb"]`))
	}))
	defer srv.Close()

	kv := web.NewKVClient(srv.URL, "s3cr3t", zerolog.Nop())
	value, err := kv.GetValues(context.Background(), "user_hashes")
	require.NoError(t, err)
	require.True(t, value.IsArray())
	entries := value.Array()
	require.Len(t, entries, 2)
	assert.Equal(t, "aa", entries[0].Str)
}

func TestKVClient_GetValues_NullNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	kv := web.NewKVClient(srv.URL, "", zerolog.Nop())
	value, err := kv.GetValues(context.Background(), "users/deadbeef")
	require.NoError(t, err)
	assert.False(t, value.Exists())
}

func TestKVClient_GetValues_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	kv := web.NewKVClient(srv.URL, "expired", zerolog.Nop())
	_, err := kv.GetValues(context.Background(), "user_hashes")
	assert.ErrorIs(t, err, web.ErrDirectoryUnauthorized)
}

func TestKVClient_SetValue(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody = string(body)
	}))
	defer srv.Close()

	kv := web.NewKVClient(srv.URL+"/", "", zerolog.Nop())
	require.NoError(t, kv.SetValue(context.Background(), "user_hashes", []string{"aa"}))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/user_hashes.json", gotPath)
	assert.JSONEq(t, `["aa"]`, gotBody)
}

func TestKVClient_SetValue_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	kv := web.NewKVClient(srv.URL, "", zerolog.Nop())
	err := kv.SetValue(context.Background(), "user_hashes", []string{"aa"})
	assert.ErrorIs(t, err, web.ErrDirectoryUnexpected)
}
