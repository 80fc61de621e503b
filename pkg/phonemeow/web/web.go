// Package web implements the remote directory collaborators over HTTP: a
// Firebase-style JSON key-value client and a websocket watch stream for the
// registered hash set.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

var (
	ErrDirectoryUnauthorized = errors.New("directory rejected auth token")
	ErrDirectoryUnexpected   = errors.New("unexpected response from directory")
)

const defaultRequestTimeout = 20 * time.Second

// KVClient talks to a JSON key-value directory service. Every node lives at
// <base>/<path>.json, GET reads it, PUT replaces it. A null body means the
// node does not exist.
type KVClient struct {
	log       zerolog.Logger
	baseURL   string
	authToken string
	http      *http.Client
}

func NewKVClient(baseURL, authToken string, log zerolog.Logger) *KVClient {
	return &KVClient{
		log:       log.With().Str("component", "directory_client").Logger(),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		http:      &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (kv *KVClient) nodeURL(path string) string {
	u := kv.baseURL + "/" + strings.Trim(path, "/") + ".json"
	if kv.authToken != "" {
		u += "?auth=" + url.QueryEscape(kv.authToken)
	}
	return u
}

func (kv *KVClient) GetValues(ctx context.Context, path string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, kv.nodeURL(path), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to prepare directory request: %w", err)
	}
	resp, err := kv.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read directory response: %w", err)
	}
	if err = checkStatus(resp.StatusCode); err != nil {
		return gjson.Result{}, err
	}
	kv.log.Trace().Str("path", path).Int("body_length", len(body)).Msg("Directory node fetched")
	parsed := gjson.ParseBytes(body)
	if parsed.Type == gjson.Null {
		return gjson.Result{}, nil
	}
	return parsed, nil
}

func (kv *KVClient) SetValue(ctx context.Context, path string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal directory value: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, kv.nodeURL(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to prepare directory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := kv.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return checkStatus(resp.StatusCode)
}

func checkStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrDirectoryUnauthorized
	default:
		return fmt.Errorf("%w: HTTP %d", ErrDirectoryUnexpected, statusCode)
	}
}
