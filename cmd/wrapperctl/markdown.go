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
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// RenderMarkdown lays the three formats out as one Markdown document. The
// blog post is generated as HTML and converted.
func RenderMarkdown(content *model.StructuredContent) (string, error) {
	converter := md.NewConverter("", true, nil)
	blog, err := converter.ConvertString(content.BlogPost)
	if err != nil {
		return "", fmt.Errorf("failed to convert the blog post: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Blog post\n\n")
	b.WriteString(strings.TrimSpace(blog))
	b.WriteString("\n\n# Thread\n\n")
	for i, tweet := range content.TwitterThread {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(tweet))
	}
	b.WriteString("\n# LinkedIn\n\n")
	b.WriteString(strings.TrimSpace(content.LinkedinPost))
	b.WriteString("\n")
	return b.String(), nil
}
