package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"doodle_moodle_backend/internal/util"

	"github.com/ledongthuc/pdf"
)

// DocumentService 从课程资料里提取纯文本，供大纲生成和出题使用
type DocumentService struct{}

func NewDocumentService() *DocumentService {
	return &DocumentService{}
}

// ExtractText 按文件头识别真实类型后提取文本，只接受 PDF 和 DOCX
func (s *DocumentService) ExtractText(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file: %s", filename)
	}

	if util.IsPDF(data) {
		return extractPDFText(data)
	}
	if util.IsZip(data) {
		return extractDOCXText(data)
	}

	return "", util.ErrUnsupportedFileType
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}

	text := collapseWhitespace(string(b))
	if text == "" {
		return "", fmt.Errorf("no text extracted from pdf")
	}
	return text, nil
}

// extractDOCXText 读 word/document.xml，拼接所有 <w:t> 文本段
func extractDOCXText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx zip: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		// zip 但不是 docx
		return "", util.ErrUnsupportedFileType
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	xmlBytes, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", err
	}

	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		// 正文文本都在 <w:t> 里，段落边界记成空格即可
		if se.Name.Local != "t" {
			continue
		}
		var v string
		_ = dec.DecodeElement(&v, &se)
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}

	text := collapseWhitespace(out.String())
	if text == "" {
		return "", fmt.Errorf("no text extracted from docx")
	}
	return text, nil
}

// TruncateForPrompt 把长文本裁剪到提示词预算内，尽量在句子边界截断
func (s *DocumentService) TruncateForPrompt(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	// 裁剪点可能落在多字节字符中间，先退到合法的 rune 边界
	cut := text[:maxChars]
	for len(cut) > 0 {
		if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	if idx := strings.LastIndexAny(cut, ".!?。"); idx > maxChars/2 {
		_, size := utf8.DecodeRuneInString(cut[idx:])
		return cut[:idx+size]
	}
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		return cut[:idx]
	}
	return cut
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
