// Package resumetext extracts plain text from uploaded resume files.
package resumetext

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MIMEText = "text/plain"
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupported is returned for file types without an extractor.
var ErrUnsupported = errors.New("unsupported file type")

var extensions = map[string]string{
	".txt":  MIMEText,
	".md":   MIMEText,
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
}

// DetectMIME picks the MIME type from the declared content type, falling back
// to the file extension for generic types.
func DetectMIME(filename, contentType string) string {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch mime {
	case MIMEText, MIMEPDF, MIMEDOCX:
		return mime
	}

	if byExt, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt
	}
	return mime
}

// Extract returns the text content of a resume file.
func Extract(mime string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch mime {
	case MIMEText:
		text = strings.ToValidUTF8(string(data), "")
	case MIMEPDF:
		text, err = extractPDF(data)
	case MIMEDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return documentText(doc.Editable().GetContent())
}

// documentText strips WordprocessingML markup, one line per paragraph.
func documentText(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read docx content: %w", err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			if utf8.Valid(t) {
				b.Write(t)
			}
		case xml.StartElement:
			if t.Name.Local == "tab" {
				b.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}
