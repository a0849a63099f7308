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

package metadata_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/wrapperai/wrapper-ai/internal/core/metadata"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

var ref = model.VideoReference{RawURL: "https://youtu.be/dQw4w9WgXcQ", VideoID: "dQw4w9WgXcQ"}

type fakeClient struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Description(ctx context.Context, _ model.VideoReference) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestPrimaryWins(t *testing.T) {
	primary := &fakeClient{name: "p", text: " description "}
	secondary := &fakeClient{name: "s", text: "other"}
	e := &metadata.Enricher{Primary: primary, Secondary: secondary}

	assert.Equal(t, "description", e.Fetch(context.Background(), ref))
	assert.Equal(t, 0, secondary.calls)
}

func TestSecondaryAfterFailure(t *testing.T) {
	e := &metadata.Enricher{
		Primary:   &fakeClient{name: "p", err: errors.New("quota")},
		Secondary: &fakeClient{name: "s", text: "from the page"},
	}
	assert.Equal(t, "from the page", e.Fetch(context.Background(), ref))
}

func TestFailuresAreSilent(t *testing.T) {
	e := &metadata.Enricher{
		Primary:   &fakeClient{name: "p", err: errors.New("boom")},
		Secondary: &fakeClient{name: "s", text: "   "},
	}
	assert.Equal(t, "", e.Fetch(context.Background(), ref))

	var nilEnricher *metadata.Enricher
	assert.Equal(t, "", nilEnricher.Fetch(context.Background(), ref))
	assert.Equal(t, "", nilEnricher.Start(context.Background(), ref).Wait(context.Background()))
	assert.Equal(t, "", e.Fetch(context.Background(), model.VideoReference{RawURL: "x"}))
}

func TestStartRunsConcurrently(t *testing.T) {
	e := &metadata.Enricher{Primary: &fakeClient{name: "p", text: "desc", delay: 30 * time.Millisecond}}
	started := time.Now()
	pending := e.Start(context.Background(), ref)
	assert.Less(t, time.Since(started), 30*time.Millisecond)
	assert.Equal(t, "desc", pending.Wait(context.Background()))
}

func TestWaitGivesUpWithContext(t *testing.T) {
	e := &metadata.Enricher{Primary: &fakeClient{name: "p", text: "late", delay: time.Second}}
	pending := e.Start(context.Background(), ref)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, "", pending.Wait(ctx))
}

func TestTimeoutBoundsSlowClients(t *testing.T) {
	e := &metadata.Enricher{
		Primary:   &fakeClient{name: "p", text: "late", delay: time.Second},
		Secondary: &fakeClient{name: "s", text: "late", delay: time.Second},
		Timeout:   20 * time.Millisecond,
	}
	started := time.Now()
	assert.Equal(t, "", e.Fetch(context.Background(), ref))
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestWatchPageClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/watch", r.URL.Path)
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		fmt.Fprint(w, `<html><head><meta property="og:description" content="Une vidéo sur les relances"></head></html>`)
	}))
	defer srv.Close()

	c := &metadata.WatchPageClient{HTTPClient: srv.Client(), BaseURL: srv.URL}
	got, err := c.Description(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "Une vidéo sur les relances", got)
}

func TestWatchPageClientWithoutTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>x</title></head></html>`)
	}))
	defer srv.Close()

	c := &metadata.WatchPageClient{HTTPClient: srv.Client(), BaseURL: srv.URL}
	_, err := c.Description(context.Background(), ref)
	assert.Error(t, err)
}

func TestDataAPIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"dQw4w9WgXcQ","snippet":{"title":"t","description":"Description officielle"}}]}`)
	}))
	defer srv.Close()

	svc, err := youtube.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	c := &metadata.DataAPIClient{Service: svc}
	got, err := c.Description(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "Description officielle", got)
}
