package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// ImageSearch finds a representative illustration for a mood query on Pixabay.
type ImageSearch struct {
	baseURL string
	apiKey  string
	client  *http.Client
	mirror  ImageMirror
}

// ImageMirror re-hosts a remote image and returns the new URL.
type ImageMirror interface {
	Mirror(ctx context.Context, remoteURL string) (string, error)
}

func NewImageSearch(baseURL, apiKey string) *ImageSearch {
	return &ImageSearch{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// WithMirror makes every found image pass through m before it is returned.
func (s *ImageSearch) WithMirror(m ImageMirror) *ImageSearch {
	s.mirror = m
	return s
}

// FetchImage returns an image URL for query, or "" when query is empty or
// anything goes wrong. Failures are logged and never returned.
func (s *ImageSearch) FetchImage(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	imageURL, err := s.search(ctx, query)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"query": query, "error": err}).Warn("image search failed")
		return ""
	}
	if imageURL == "" || s.mirror == nil {
		return imageURL
	}

	mirrored, err := s.mirror.Mirror(ctx, imageURL)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"url": imageURL, "error": err}).Warn("image mirror failed, keeping source url")
		return imageURL
	}
	return mirrored
}

func (s *ImageSearch) search(ctx context.Context, query string) (string, error) {
	if s.apiKey == "" {
		return "", errors.New("pixabay api key not configured")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("key", s.apiKey)
	params.Set("min_width", "1280")
	params.Set("min_height", "720")
	params.Set("image_type", "illustration")
	params.Set("category", "feelings")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("pixabay returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read pixabay response")
	}
	if !gjson.ValidBytes(body) {
		return "", errors.New("pixabay returned invalid json")
	}
	return gjson.GetBytes(body, "hits.0.largeImageURL").String(), nil
}
