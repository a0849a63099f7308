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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"

	"github.com/wrapperai/wrapper-ai/internal/app"
	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	test "github.com/wrapperai/wrapper-ai/internal/testutil"
)

func run(t *testing.T, primary generation.Provider, args ...string) (string, error) {
	t.Setenv(cloud.EnvSkipHealthCheck, "false")
	out := &bytes.Buffer{}
	c := &cli{
		out: out,
		newState: func(_ context.Context, config *cloud.Config) (*app.StateManager, error) {
			return app.NewStateManager(config, &cloud.ServiceClients{
				Primary:   primary,
				Secondary: generation.Unconfigured{ProviderName: "groq", Setting: cloud.EnvGroqAPIKey},
				Embedder:  &test.HashEmbedder{Dimensions: 1024},
				Store:     &test.MemoryStore{},
			})
		},
	}
	root := newRootCommand(c)
	root.SetArgs(append([]string{"--config-dir", t.TempDir(), "--runtime", "test"}, args...))
	root.SetContext(context.Background())
	err := root.Execute()
	return out.String(), err
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown(model.GetExampleStructuredContent())
	assert.Nil(t, err)

	require.Contains(t, out, "# Pourquoi automatiser vos relances")
	require.Contains(t, out, "## Les trois erreurs à éviter")
	require.Contains(t, out, "1. 1/ Vous perdez des ventes")
	require.Contains(t, out, "# LinkedIn")
	require.NotContains(t, out, "<h1>")
}

func TestRepurposeMarkdownFromText(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini",
		Replies: []test.Reply{{Text: model.ExampleJSON(model.GetExampleStructuredContent())}}}

	out, err := run(t, primary, "repurpose", "--text", "Un texte collé à la main.", "--markdown")
	assert.Nil(t, err)

	require.True(t, strings.HasPrefix(out, "# Blog post"))
	require.Contains(t, out, "# Thread")
	require.Equal(t, 1, primary.Calls())
}

func TestRepurposeWithoutInput(t *testing.T) {
	_, err := run(t, &test.ScriptedProvider{ProviderName: "gemini"}, "repurpose")
	assert.NotNil(t, err)
}

func TestIngestThenChat(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(name, []byte("not a document"), 0o600))

	_, err := run(t, &test.ScriptedProvider{ProviderName: "gemini"}, "ingest", name)
	assert.NotNil(t, err)

	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: "Aucune information."}}}
	out, err := run(t, primary, "chat", "Quel", "est", "le", "délai", "?")
	assert.Nil(t, err)
	require.Equal(t, "Aucune information.\n", out)
}

func TestToolRunFillsInputs(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: "Bonjour Alice"}}}

	out, err := run(t, primary, "tool", "run", "--template", "Salue {{name}}", "--input", "name=Alice")
	assert.Nil(t, err)

	require.Equal(t, "Bonjour Alice\n", out)
	require.Len(t, primary.Requests, 1)
	require.Contains(t, primary.Requests[0].Prompt, "Salue Alice")
}

func TestToolGeneratePrintsJSON(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini",
		Replies: []test.Reply{{Text: model.ExampleJSON(model.GetExampleToolConfig())}}}

	out, err := run(t, primary, "tool", "generate", "Un", "générateur", "d'emails")
	assert.Nil(t, err)
	require.Contains(t, out, `"name": "Cold Email Pro"`)
}

func TestHealthFailsWithoutProviders(t *testing.T) {
	out, err := run(t, generation.Unconfigured{ProviderName: "gemini", Setting: cloud.EnvGoogleAPIKey}, "health")
	assert.NotNil(t, err)
	require.Contains(t, out, "not configured")
}
