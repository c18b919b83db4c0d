package service

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"doodle_moodle_backend/internal/util"
)

// docxBytes 拼一个只含 word/document.xml 的最小 docx
func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	body.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(body.String())); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextDOCX(t *testing.T) {
	svc := NewDocumentService()

	data := docxBytes(t, "Photosynthesis basics.", "Light reactions occur in thylakoids.")
	text, err := svc.ExtractText("lecture.docx", data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Photosynthesis basics.") {
		t.Fatalf("missing first paragraph, got: %q", text)
	}
	if !strings.Contains(text, "thylakoids") {
		t.Fatalf("missing second paragraph, got: %q", text)
	}
}

func TestExtractTextRejectsUnknownBinary(t *testing.T) {
	svc := NewDocumentService()

	_, err := svc.ExtractText("notes.docx", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10})
	if !errors.Is(err, util.ErrUnsupportedFileType) {
		t.Fatalf("want ErrUnsupportedFileType got=%v", err)
	}
}

func TestExtractTextRejectsZipWithoutDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("random.txt")
	f.Write([]byte("hello"))
	zw.Close()

	svc := NewDocumentService()
	_, err := svc.ExtractText("fake.docx", buf.Bytes())
	if !errors.Is(err, util.ErrUnsupportedFileType) {
		t.Fatalf("want ErrUnsupportedFileType got=%v", err)
	}
}

func TestExtractTextEmptyFile(t *testing.T) {
	svc := NewDocumentService()
	if _, err := svc.ExtractText("empty.pdf", nil); err == nil {
		t.Fatal("want error for empty file")
	}
}

func TestTruncateForPrompt(t *testing.T) {
	svc := NewDocumentService()

	short := "short text"
	if got := svc.TruncateForPrompt(short, 100); got != short {
		t.Fatalf("short text should pass through, got %q", got)
	}

	long := "First sentence is reasonably long here indeed. Second part continues"
	got := svc.TruncateForPrompt(long, 50)
	if len(got) > 50 {
		t.Fatalf("want <=50 chars got=%d", len(got))
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("want cut at sentence boundary, got %q", got)
	}
}

func TestTruncateForPromptMultibyte(t *testing.T) {
	svc := NewDocumentService()

	// 中文句号是 3 字节，截断后必须仍是合法 UTF-8 且保留整个句号
	long := "课程第一章讲图的遍历算法。后半部分继续展开深度优先和广度优先"
	got := svc.TruncateForPrompt(long, 40)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid utf-8: %q", got)
	}
	if !strings.HasSuffix(got, "。") {
		t.Fatalf("want cut after full sentence mark, got %q", got)
	}

	// 裁剪点落在多字节字符中间时也不能产生半个字符
	for max := 1; max < len(long); max++ {
		if out := svc.TruncateForPrompt(long, max); !utf8.ValidString(out) {
			t.Fatalf("maxChars=%d produced invalid utf-8: %q", max, out)
		}
	}
}
