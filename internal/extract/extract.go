package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/brieflyhq/briefly-back/internal/ai"
)

var (
	ErrUnsupportedType = errors.New("file type not supported for text extraction")
	ErrEmptyContent    = errors.New("could not extract content from file")
)

const (
	TypePDF  = "application/pdf"
	TypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extractor turns a stored upload into plain text. Dispatch is driven
// by the media type the client declared at upload time; the storage
// path plays no part in classification.
type Extractor struct {
	transcriber ai.Transcriber
}

func NewExtractor(transcriber ai.Transcriber) *Extractor {
	return &Extractor{transcriber: transcriber}
}

func (e *Extractor) Extract(ctx context.Context, fileName, fileType string, reader io.Reader) (string, error) {
	fileType = strings.TrimSpace(strings.ToLower(fileType))

	var (
		text string
		err  error
	)
	switch {
	case fileType == TypePDF:
		text, err = extractPDF(reader)
	case fileType == TypeDOCX:
		text, err = extractDOCX(reader)
	case strings.HasPrefix(fileType, "audio/") || strings.HasPrefix(fileType, "video/"):
		if e.transcriber == nil {
			return "", fmt.Errorf("no transcriber configured for %s", fileType)
		}
		text, err = e.transcriber.Transcribe(ctx, fileName, reader)
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
