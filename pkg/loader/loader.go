// Package loader extracts plain text from local documents for ingestion.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extensions lists the formats Load understands.
var Extensions = []string{".txt", ".md", ".pdf", ".docx"}

func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load returns the text content of the file at path.
func Load(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDOCX(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Walk returns every supported file under root, or root itself when it is
// a file.
func Walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !Supported(root) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(root))
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Root returns the directory that source names are relative to. A single
// file is rooted at its parent directory.
func Root(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}

// SourceName is the slash-separated path of file relative to root, used as
// the stored document source.
func SourceName(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == "." {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

func loadPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

func loadDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	return docxText(r.Editable().GetContent()), nil
}

// docxText keeps the <w:t> runs of document.xml, one line per paragraph.
func docxText(xml string) string {
	var sb strings.Builder
	for _, para := range strings.Split(xml, "</w:p>") {
		var line strings.Builder
		parts := strings.Split(para, "<w:t")
		for i, part := range parts {
			// Skip <w:tab/>, <w:tbl> and friends.
			if i == 0 || part == "" || (part[0] != '>' && part[0] != ' ') {
				continue
			}
			open := strings.Index(part, ">")
			end := strings.Index(part, "</w:t>")
			if open < 0 || end < open {
				continue
			}
			line.WriteString(part[open+1 : end])
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			sb.WriteString(unescapeXML(text))
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

var xmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}
