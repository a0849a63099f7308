// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	ytdl "github.com/kkdai/youtube/v2"
	"google.golang.org/api/youtube/v3"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const maxWatchPageBytes = 4 << 20

// DataAPIClient reads the snippet through the YouTube Data API. It needs an
// API key.
type DataAPIClient struct {
	Service *youtube.Service
}

func (c *DataAPIClient) Name() string {
	return "data-api"
}

func (c *DataAPIClient) Description(ctx context.Context, ref model.VideoReference) (string, error) {
	resp, err := c.Service.Videos.List([]string{"snippet"}).Id(ref.VideoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", fmt.Errorf("video %s not found", ref.VideoID)
	}
	return resp.Items[0].Snippet.Description, nil
}

// InnertubeClient reads the description from the player response, the way
// the mobile apps do. It needs no credentials.
type InnertubeClient struct {
	Client *ytdl.Client
}

func (c *InnertubeClient) Name() string {
	return "innertube"
}

func (c *InnertubeClient) Description(ctx context.Context, ref model.VideoReference) (string, error) {
	client := c.Client
	if client == nil {
		client = &ytdl.Client{}
	}
	video, err := client.GetVideoContext(ctx, ref.VideoID)
	if err != nil {
		return "", err
	}
	return video.Description, nil
}

// WatchPageClient scrapes the description meta tags of the public watch page.
type WatchPageClient struct {
	HTTPClient *http.Client
	// BaseURL defaults to https://www.youtube.com.
	BaseURL string
}

func (c *WatchPageClient) Name() string {
	return "watch-page"
}

func (c *WatchPageClient) Description(ctx context.Context, ref model.VideoReference) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = "https://www.youtube.com"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/watch?v="+url.QueryEscape(ref.VideoID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("watch page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return "", err
	}
	for _, selector := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok && content != "" {
			return content, nil
		}
	}
	return "", errors.New("no description meta tag")
}
