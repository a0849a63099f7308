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

package generation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/parser"
)

type step struct {
	text string
	err  error
}

// scripted replays its steps in order and repeats the last one.
type scripted struct {
	name  string
	steps []step
	calls int
	reqs  []generation.Request
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Complete(_ context.Context, req generation.Request) (string, error) {
	s.reqs = append(s.reqs, req)
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i].text, s.steps[i].err
}

const valid = `{"blogPost":"<p>b</p>","twitterThread":["t"],"linkedinPost":"l"}`

func newClient(primary, secondary generation.Provider) (*generation.Client, *[]time.Duration) {
	var slept []time.Duration
	c := generation.NewClient(primary, secondary)
	c.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	c.Jitter = func(time.Duration) time.Duration { return 250 * time.Millisecond }
	return c, &slept
}

func quota() error {
	return apperr.New(apperr.QuotaExceeded, "primary: 429 Too Many Requests")
}

func TestTransientTwiceThenSuccess(t *testing.T) {
	primary := &scripted{name: "gemini", steps: []step{{err: quota()}, {err: quota()}, {text: valid}}}
	secondary := &scripted{name: "groq", steps: []step{{text: valid}}}
	c, slept := newClient(primary, secondary)

	got, attempts, err := generation.Generate(context.Background(), c, generation.Request{Prompt: "p", JSON: true}, parser.ParseStructuredContent)
	require.NoError(t, err)
	assert.Equal(t, "l", got.LinkedinPost)
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, 0, secondary.calls)
	assert.Equal(t, []time.Duration{2250 * time.Millisecond, 4250 * time.Millisecond}, *slept)
	assert.Len(t, attempts, 3)
	assert.Equal(t, model.OutcomeSuccess, attempts[2].Outcome)
	assert.Equal(t, model.ProviderPrimary, attempts[2].Provider)
}

func TestBackoffScheduleWithinJitterBounds(t *testing.T) {
	c := generation.NewClient(nil, nil)
	for n := 0; n < 3; n++ {
		base := time.Duration(1<<(n+1)) * time.Second
		for i := 0; i < 50; i++ {
			d := c.Backoff(n)
			assert.GreaterOrEqual(t, d, base)
			assert.Less(t, d, base+time.Second)
		}
	}
}

func TestTerminalPrimaryFallsBackOnceAndReportsPrimaryError(t *testing.T) {
	primaryErr := apperr.New(apperr.Internal, "primary: invalid argument")
	primary := &scripted{name: "gemini", steps: []step{{err: primaryErr}}}
	secondary := &scripted{name: "groq", steps: []step{{err: errors.New("secondary: bad gateway")}}}
	c, slept := newClient(primary, secondary)

	_, attempts, err := generation.Generate(context.Background(), c, generation.Request{Prompt: "p"}, parser.ParseStructuredContent)
	require.Error(t, err)
	assert.Equal(t, primaryErr.Error(), err.Error())
	assert.NotContains(t, err.Error(), "secondary")
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
	assert.Empty(t, *slept)
	assert.Len(t, attempts, 2)
}

func TestQuotaThreeTimesSecondarySucceeds(t *testing.T) {
	primary := &scripted{name: "gemini", steps: []step{{err: quota()}}}
	secondary := &scripted{name: "groq", steps: []step{{text: "```json\n" + valid + "\n```"}}}
	c, slept := newClient(primary, secondary)

	got, attempts, err := generation.Generate(context.Background(), c, generation.Request{Prompt: "p", JSON: true}, parser.ParseStructuredContent)
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, got.TwitterThread)
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, 1, secondary.calls)
	assert.Len(t, *slept, 2)
	assert.Equal(t, model.ProviderSecondary, attempts[len(attempts)-1].Provider)
	assert.True(t, secondary.reqs[0].JSON)
}

func TestQuotaThreeTimesSecondaryFails(t *testing.T) {
	primary := &scripted{name: "gemini", steps: []step{{err: quota()}}}
	secondary := &scripted{name: "groq", steps: []step{{err: apperr.New(apperr.ProviderUnavailable, "groq down")}}}
	c, _ := newClient(primary, secondary)

	_, _, err := generation.Generate(context.Background(), c, generation.Request{Prompt: "p"}, parser.ParseStructuredContent)
	assert.True(t, apperr.Is(err, apperr.QuotaExceeded))
	assert.Equal(t, 1, secondary.calls)
}

func TestParseFailureTriggersFallback(t *testing.T) {
	primary := &scripted{name: "gemini", steps: []step{{text: "Désolé, je ne peux pas."}}}
	secondary := &scripted{name: "groq", steps: []step{{text: valid}}}
	c, slept := newClient(primary, secondary)

	got, _, err := generation.Generate(context.Background(), c, generation.Request{Prompt: "p"}, parser.ParseStructuredContent)
	require.NoError(t, err)
	assert.Equal(t, "<p>b</p>", got.BlogPost)
	assert.Equal(t, 1, primary.calls)
	assert.Empty(t, *slept)
}

func TestMissingProviders(t *testing.T) {
	secondary := &scripted{name: "groq", steps: []step{{text: "hello"}}}
	c, _ := newClient(nil, secondary)
	text, _, err := c.Text(context.Background(), generation.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	c, _ = newClient(nil, nil)
	_, _, err = c.Text(context.Background(), generation.Request{Prompt: "p"})
	assert.True(t, apperr.Is(err, apperr.ConfigurationMissing))

	c, _ = newClient(generation.Unconfigured{ProviderName: "gemini", Setting: "GOOGLE_API_KEY"}, nil)
	_, _, err = c.Text(context.Background(), generation.Request{Prompt: "p"})
	assert.True(t, apperr.Is(err, apperr.ConfigurationMissing))
	assert.Contains(t, apperr.PublicMessage(err), "GOOGLE_API_KEY")
}

func TestCancelledDuringBackoffSkipsFallback(t *testing.T) {
	primary := &scripted{name: "gemini", steps: []step{{err: quota()}}}
	secondary := &scripted{name: "groq", steps: []step{{text: valid}}}
	c := generation.NewClient(primary, secondary)
	c.Sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, _, err := c.Text(context.Background(), generation.Request{Prompt: "p"})
	assert.True(t, apperr.Is(err, apperr.QuotaExceeded))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}
