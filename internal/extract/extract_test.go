package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeTranscriber struct {
	text string
	err  error

	gotFileName string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, fileName string, _ io.Reader) (string, error) {
	f.gotFileName = fileName
	return f.text, f.err
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)

	part, err := writer.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document part: %v", err)
	}
	if _, err := part.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buffer.Bytes()
}

func TestExtractDOCXParagraphsAndRuns(t *testing.T) {
	archive := buildDOCX(t, `<?xml version="1.0"?>
		<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body>
				<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
				<w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> paragraph.</w:t></w:r></w:p>
			</w:body>
		</w:document>`)

	extractor := NewExtractor(nil)
	text, err := extractor.Extract(context.Background(), "report.docx", TypeDOCX, bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "First paragraph.") {
		t.Fatalf("missing first paragraph in %q", text)
	}
	if !strings.Contains(text, "Second paragraph.") {
		t.Fatalf("runs not joined within paragraph: %q", text)
	}
}

func TestExtractDOCXEmptyDocument(t *testing.T) {
	archive := buildDOCX(t, `<?xml version="1.0"?>
		<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body><w:p></w:p></w:body>
		</w:document>`)

	extractor := NewExtractor(nil)
	_, err := extractor.Extract(context.Background(), "empty.docx", TypeDOCX, bytes.NewReader(archive))
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestExtractDOCXMissingDocumentPart(t *testing.T) {
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	part, _ := writer.Create("word/styles.xml")
	_, _ = part.Write([]byte(`<styles/>`))
	_ = writer.Close()

	extractor := NewExtractor(nil)
	_, err := extractor.Extract(context.Background(), "broken.docx", TypeDOCX, bytes.NewReader(buffer.Bytes()))
	if err == nil {
		t.Fatalf("expected error for archive without word/document.xml")
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	extractor := NewExtractor(nil)
	_, err := extractor.Extract(context.Background(), "notes.txt", "text/plain", strings.NewReader("plain text"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtractDispatchesAudioToTranscriber(t *testing.T) {
	transcriber := &fakeTranscriber{text: "spoken words"}
	extractor := NewExtractor(transcriber)

	text, err := extractor.Extract(context.Background(), "meeting.mp3", "audio/mpeg", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "spoken words" {
		t.Fatalf("unexpected transcript %q", text)
	}
	if transcriber.gotFileName != "meeting.mp3" {
		t.Fatalf("transcriber received file name %q", transcriber.gotFileName)
	}
}

func TestExtractVideoWithoutTranscriber(t *testing.T) {
	extractor := NewExtractor(nil)
	_, err := extractor.Extract(context.Background(), "talk.mp4", "video/mp4", strings.NewReader("bytes"))
	if err == nil {
		t.Fatalf("expected error when no transcriber is configured")
	}
}

func TestExtractEmptyTranscript(t *testing.T) {
	extractor := NewExtractor(&fakeTranscriber{text: "   "})
	_, err := extractor.Extract(context.Background(), "quiet.mp3", "audio/mpeg", strings.NewReader("bytes"))
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	extractor := NewExtractor(nil)
	_, err := extractor.Extract(context.Background(), "fake.pdf", TypePDF, strings.NewReader("not a pdf"))
	if err == nil {
		t.Fatalf("expected parse error for non-pdf bytes")
	}
}
