package document

import (
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"lukechampine.com/blake3"
)

// Format is a supported document container format.
type Format string

const (
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no backend.
	ErrUnsupportedFormat = stderrors.New("unsupported document format")

	// ErrNoParagraph is returned by Tree.SetText when the anchor resolves to nothing.
	ErrNoParagraph = stderrors.New("anchor does not resolve to a paragraph")

	// ErrUnrepresentable is returned by Tree.SetText when the backend cannot
	// store the text so that it reads back unchanged.
	ErrUnrepresentable = stderrors.New("text cannot be represented in the document")
)

// Tree is a parsed, editable document.
//
// Paragraphs are reported in true document order: body paragraphs and table
// cell paragraphs interleave as they occur. Implementations are not safe for
// concurrent use; the index serializes access.
type Tree interface {
	Format() Format
	Paragraphs() []Paragraph
	// SetText replaces the whole content of the anchored paragraph.
	SetText(a Anchor, text string) error
	// Encode serializes the tree back into the container format.
	Encode() ([]byte, error)
}

// checkText rejects text no backend can store: invalid UTF-8, control
// characters other than tab and line feed, and the XML non-characters.
func checkText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8", ErrUnrepresentable)
	}
	for _, r := range s {
		switch {
		case r == '\t', r == '\n':
		case r < 0x20, r == 0x7f, r == 0xfffe, r == 0xffff:
			return fmt.Errorf("%w: control character %U", ErrUnrepresentable, r)
		}
	}
	return nil
}

// FormatOf picks a backend from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatDOCX, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Parse decodes data with the backend for format.
func Parse(format Format, data []byte) (Tree, error) {
	switch format {
	case FormatDOCX:
		return ParseDOCX(data)
	case FormatMarkdown:
		return ParseMarkdown(data), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Open reads and parses the document at path. The raw bytes are returned so
// callers can fingerprint exactly what was parsed.
func Open(path string) (Tree, []byte, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	tree, err := Parse(format, data)
	if err != nil {
		return nil, nil, err
	}
	return tree, data, nil
}

// Fingerprint returns the hex blake3 digest of the document bytes.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory, fsyncs it, then renames it into place. An existing file's mode is
// kept. Neither the temp file nor the destination may be a symlink.
func WriteFileAtomic(path string, data []byte) error {
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic is WriteFileAtomic for content produced by write. The
// destination is left untouched if write fails.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	perm := os.FileMode(0600)
	if info, err := os.Lstat(path); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("destination is a symlink: %s", path)
		}
		perm = info.Mode().Perm()
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("failed to generate temp file name: %w", err)
	}
	tempPath := filepath.Join(filepath.Dir(path),
		"."+filepath.Base(path)+"."+hex.EncodeToString(randBytes)+".tmp")

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := write(file); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return fmt.Errorf("destination exists; replacing files is not supported on Windows: %w", err)
			}
		}
		return fmt.Errorf("failed to finalize write: %w", err)
	}

	success = true
	return nil
}
