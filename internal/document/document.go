// Package document turns announcement files into an ordered list of content
// blocks: narrative paragraphs and tables of plain cell text.
package document

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"vehcat/internal"
)

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockTable
)

func (k BlockKind) String() string {
	if k == BlockTable {
		return "table"
	}
	return "paragraph"
}

type Block struct {
	Kind BlockKind
	Text string
	Rows [][]string
}

func Paragraph(text string) Block {
	return Block{Kind: BlockParagraph, Text: text}
}

func Table(rows [][]string) Block {
	return Block{Kind: BlockTable, Rows: rows}
}

type Format string

const (
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatEML  Format = "eml"
)

func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatDOCX, true
	case ".html", ".htm":
		return FormatHTML, true
	case ".xlsx":
		return FormatXLSX, true
	case ".pdf":
		return FormatPDF, true
	case ".eml":
		return FormatEML, true
	}
	return "", false
}

type Document struct {
	Path   string
	Format Format
	Size   int64
	Blocks []Block
	// Skipped names the parts (sheets, pages, attachments) that could not be
	// read, each with its error. The rest of the document is still returned.
	Skipped []string
}

type skips []string

func (s *skips) add(part string, err error) {
	*s = append(*s, fmt.Sprintf("%s: %v", part, err))
}

func (d *Document) Paragraphs() []string {
	out := []string{}
	for _, b := range d.Blocks {
		if b.Kind == BlockParagraph {
			out = append(out, b.Text)
		}
	}
	return out
}

func (d *Document) Tables() [][][]string {
	out := [][][]string{}
	for _, b := range d.Blocks {
		if b.Kind == BlockTable {
			out = append(out, b.Rows)
		}
	}
	return out
}

type Options struct {
	// LargeFileThreshold is the size in bytes above which the document is
	// copied to a temporary file and read from there. Zero disables it.
	LargeFileThreshold int64
	TempDir            string
	Logger             *slog.Logger
}

type source interface {
	io.Reader
	io.ReaderAt
}

func Open(path string, opts Options) (*Document, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), internal.ErrUnsupportedFormat)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	src := path
	if opts.LargeFileThreshold > 0 && info.Size() > opts.LargeFileThreshold {
		logger.Warn("large document, reading from temporary copy", "path", path, "size", humanize.Bytes(uint64(info.Size())))
		tmp, err := copyToTemp(path, opts.TempDir)
		if err != nil {
			return nil, fmt.Errorf("copy large document: %w", err)
		}
		defer os.Remove(tmp)
		src = tmp
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sk skips
	blocks, err := readBlocks(format, f, info.Size(), &sk)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	for _, s := range sk {
		logger.Warn("document part skipped", "path", path, "reason", s)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), internal.ErrNoBlocks)
	}
	return &Document{Path: path, Format: format, Size: info.Size(), Blocks: blocks, Skipped: sk}, nil
}

// Parse reads blocks from in-memory content of the given format. The second
// result lists the parts that were skipped.
func Parse(format Format, content []byte) ([]Block, []string, error) {
	var sk skips
	blocks, err := readBlocks(format, bytes.NewReader(content), int64(len(content)), &sk)
	return blocks, sk, err
}

func readBlocks(format Format, r source, size int64, sk *skips) ([]Block, error) {
	switch format {
	case FormatDOCX:
		return readDOCX(r, size)
	case FormatHTML:
		return readHTML(r)
	case FormatXLSX:
		return readXLSX(r, sk)
	case FormatPDF:
		return readPDF(r, size, sk)
	case FormatEML:
		return readEML(r, sk)
	default:
		return nil, fmt.Errorf("%s: %w", format, internal.ErrUnsupportedFormat)
	}
}

func copyToTemp(path, dir string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, "vehcat-*"+filepath.Ext(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
