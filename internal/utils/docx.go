package utils

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// ExtractDOCXText returns the first maxParagraphs non-empty paragraphs, one per line.
func ExtractDOCXText(data []byte, maxParagraphs int) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}

	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}
		paragraphs := docxParagraphs(content, maxParagraphs)
		return strings.Join(paragraphs, "\n"), nil
	}
	return "", fmt.Errorf("invalid DOCX: missing word/document.xml")
}

func docxParagraphs(xmlContent []byte, limit int) []string {
	decoder := xml.NewDecoder(bytes.NewReader(xmlContent))

	var paragraphs []string
	var current strings.Builder
	inParagraph := false

	for {
		if limit > 0 && len(paragraphs) >= limit {
			break
		}
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" && t.Name.Space == wordprocessingNS {
				inParagraph = true
				current.Reset()
			}
		case xml.EndElement:
			if t.Name.Local == "p" && t.Name.Space == wordprocessingNS {
				if text := strings.TrimSpace(current.String()); inParagraph && text != "" {
					paragraphs = append(paragraphs, text)
				}
				inParagraph = false
			}
		case xml.CharData:
			if inParagraph {
				current.Write(t)
			}
		}
	}
	return paragraphs
}
