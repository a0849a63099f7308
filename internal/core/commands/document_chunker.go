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

package commands

import (
	"strings"
	"unicode/utf8"

	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// SplitText cuts text into windows of size characters, each starting
// size-overlap characters after the previous one. Windows with fewer than
// minChars characters once trimmed are dropped.
func SplitText(text string, size int, overlap int, minChars int) []string {
	if size <= 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(chunk) >= minChars && chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// DocumentChunker splits the extracted text into indexed chunks.
type DocumentChunker struct {
	cor.BaseCommand
	size     int
	overlap  int
	minChars int
}

func NewDocumentChunker(name string, size int, overlap int, minChars int) *DocumentChunker {
	out := &DocumentChunker{BaseCommand: *cor.NewBaseCommand(name), size: size, overlap: overlap, minChars: minChars}
	out.InputParamName = KeyDocument
	return out
}

func (c *DocumentChunker) Execute(context cor.Context) {
	doc := context.Get(c.GetInputParam()).(*model.Document)

	parts := SplitText(doc.Text, c.size, c.overlap, c.minChars)
	chunks := make([]*model.DocumentChunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, model.NewDocumentChunk(doc, i, part))
	}
	usageOf(context).InputChars = utf8.RuneCountInString(doc.Text)
	context.Add(KeyChunks, chunks)
	c.Succeed(context, chunks)
}
