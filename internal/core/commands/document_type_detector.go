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

	"github.com/h2non/filetype"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const MIMETypePDF = "application/pdf"

// DetectMIMEType sniffs the content of an upload. The declared content type
// is ignored: only PDFs and images are accepted.
func DetectMIMEType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.New(apperr.InvalidInput, "the uploaded file is empty")
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", apperr.New(apperr.InvalidInput, "unsupported file type: upload a PDF or an image")
	}
	mime := kind.MIME.Value
	if mime != MIMETypePDF && !strings.HasPrefix(mime, "image/") {
		return "", apperr.Newf(apperr.InvalidInput, "unsupported file type %s: upload a PDF or an image", mime)
	}
	return mime, nil
}

// DocumentTypeDetector stamps the document with its sniffed MIME type.
type DocumentTypeDetector struct {
	cor.BaseCommand
}

func NewDocumentTypeDetector(name string) *DocumentTypeDetector {
	out := &DocumentTypeDetector{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = KeyDocument
	return out
}

func (c *DocumentTypeDetector) Execute(context cor.Context) {
	doc := context.Get(c.GetInputParam()).(*model.Document)
	mime, err := DetectMIMEType(doc.Data)
	if err != nil {
		c.Fail(context, err)
		return
	}
	doc.MIMEType = mime
	c.Succeed(context, doc)
}
