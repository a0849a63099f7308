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
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// ImageTextReader reads the text visible in an image.
type ImageTextReader interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// ExtractPDFText returns the plain text and the page count of a PDF.
// Malformed files make the parser panic, which is reported as InvalidInput.
func ExtractPDFText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Newf(apperr.InvalidInput, "the PDF could not be read: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, apperr.Wrap(apperr.InvalidInput, err, "the PDF could not be read")
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", 0, apperr.Wrap(apperr.InvalidInput, err, "the PDF could not be read")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", 0, apperr.Wrap(apperr.InvalidInput, err, "the PDF could not be read")
	}
	return buf.String(), doc.NumPage(), nil
}

// DocumentTextExtractor turns the raw document into text: the PDF parser
// for PDFs, the multimodal model for images.
type DocumentTextExtractor struct {
	cor.BaseCommand
	images ImageTextReader
}

func NewDocumentTextExtractor(name string, images ImageTextReader) *DocumentTextExtractor {
	out := &DocumentTextExtractor{BaseCommand: *cor.NewBaseCommand(name), images: images}
	out.InputParamName = KeyDocument
	return out
}

func (c *DocumentTextExtractor) Execute(context cor.Context) {
	doc := context.Get(c.GetInputParam()).(*model.Document)
	ctx := context.GetContext()

	var err error
	switch {
	case doc.MIMEType == MIMETypePDF:
		doc.Text, doc.PageCount, err = ExtractPDFText(doc.Data)
	case strings.HasPrefix(doc.MIMEType, "image/"):
		if c.images == nil {
			err = apperr.Missing("GOOGLE_API_KEY", "image text extraction")
			break
		}
		doc.Text, err = c.images.ExtractText(ctx, doc.Data, doc.MIMEType)
		doc.PageCount = 1
	default:
		err = apperr.Newf(apperr.InvalidInput, "unsupported file type %s", doc.MIMEType)
	}
	if err != nil {
		c.Fail(context, err)
		return
	}
	if strings.TrimSpace(doc.Text) == "" {
		c.Fail(context, apperr.New(apperr.NoExtractableText, fmt.Sprintf("no text could be extracted from %s", doc.Name)))
		return
	}
	slog.InfoContext(ctx, "document text extracted",
		slog.String("document", doc.Name), slog.Int("pages", doc.PageCount), slog.Int("chars", len(doc.Text)))
	c.Succeed(context, doc)
}
