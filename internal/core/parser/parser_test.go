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

package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/parser"
)

const content = `{"blogPost":"<h1>T</h1>","twitterThread":["one","two"],"linkedinPost":"post"}`

func TestFencedAndBareParseIdentically(t *testing.T) {
	bare, err := parser.ParseStructuredContent(content)
	require.NoError(t, err)

	fenced, err := parser.ParseStructuredContent("```json\n" + content + "\n```")
	require.NoError(t, err)
	assert.Equal(t, bare, fenced)

	plainFence, err := parser.ParseStructuredContent("```\n" + content + "\n```")
	require.NoError(t, err)
	assert.Equal(t, bare, plainFence)
}

func TestLeadingProseIsIgnored(t *testing.T) {
	got, err := parser.ParseStructuredContent("Voici le résultat demandé :\n" + content + "\nBonne lecture !")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got.TwitterThread)
	assert.Equal(t, "post", got.LinkedinPost)
}

func TestMissingKeysAreMalformed(t *testing.T) {
	cases := []string{
		"",
		"not json at all",
		`{"blogPost":"x","linkedinPost":"y"}`,
		`{"blogPost":"x","twitterThread":[],"linkedinPost":"y"}`,
		`{"blogPost":"x","twitterThread":"one","linkedinPost":"y"}`,
		`{"blogPost":"","twitterThread":["a"],"linkedinPost":"y"}`,
		`{"blogPost":"x","twitterThread":[1,2],"linkedinPost":"y"}`,
	}
	for _, raw := range cases {
		_, err := parser.ParseStructuredContent(raw)
		assert.True(t, apperr.Is(err, apperr.MalformedResponse), raw)
	}
}

func TestRawOutputIsKeptForLogsOnly(t *testing.T) {
	_, err := parser.ParseStructuredContent("secret prompt echo {oops")
	require.Error(t, err)

	var raw *parser.RawOutputError
	require.True(t, errors.As(err, &raw))
	assert.Equal(t, "secret prompt echo {oops", raw.Raw)
	assert.NotContains(t, apperr.PublicMessage(err), "secret")
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, parser.ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, parser.ExtractJSON(`prose {"a":{"b":2}} trailing`))
	assert.Equal(t, "no braces", parser.ExtractJSON("  no braces  "))
}

func TestParseToolConfig(t *testing.T) {
	raw := "```json\n" + `{
	  "name": "Cold Email Pro",
	  "description": "Génère des emails",
	  "inputs": [
	    {"key": "targetName", "label": "Nom", "type": "text"},
	    {"key": "tone", "label": "Ton", "type": "select", "options": ["Amical", "Formel"]}
	  ],
	  "promptTemplate": "Rédige un email pour {{targetName}} avec un ton {{tone}}."
	}` + "\n```"
	config, err := parser.ParseToolConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "Cold Email Pro", config.Name)
	assert.Len(t, config.Inputs, 2)
	assert.Equal(t, []string{"Amical", "Formel"}, config.Inputs[1].Options)
}

func TestParseToolConfigRejectsBadInputs(t *testing.T) {
	cases := []string{
		`{"name":"x"}`,
		`{"name":"x","promptTemplate":"p","inputs":[{"key":"a","type":"select"}]}`,
		`{"name":"x","promptTemplate":"p","inputs":[{"key":"a","type":"slider"}]}`,
		`{"name":"x","promptTemplate":"p","inputs":[{"label":"no key","type":"text"}]}`,
	}
	for _, raw := range cases {
		_, err := parser.ParseToolConfig(raw)
		assert.True(t, apperr.Is(err, apperr.MalformedResponse), raw)
	}

	config, err := parser.ParseToolConfig(`{"name":"x","promptTemplate":"p"}`)
	require.NoError(t, err)
	assert.NotNil(t, config.Inputs)
}
