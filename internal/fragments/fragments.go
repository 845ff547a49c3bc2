package fragments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nao1215/docaudit/internal/model"
)

// Format is a fragment file encoding.
type Format string

const (
	// FormatJSON is UTF-8 JSON.
	FormatJSON Format = "json"
	// FormatMsgpack is MessagePack.
	FormatMsgpack Format = "msgpack"
)

var (
	// ErrUnsupportedFormat is returned for a file extension that is not a fragment file.
	ErrUnsupportedFormat = errors.New("unsupported fragment file format")

	// ErrInvalidDocument is returned when a file cannot be decoded.
	ErrInvalidDocument = errors.New("invalid fragment document")
)

// Document is one extracted document.
type Document struct {
	// Name identifies the document; the file name is used when empty.
	Name string `json:"document" msgpack:"document"`

	// DocumentType selects the reference configuration for the document.
	DocumentType string `json:"document_type,omitempty" msgpack:"document_type,omitempty"`

	// Fragments are the extracted fragments in reading order.
	Fragments []model.PageFragment `json:"fragments" msgpack:"fragments"`
}

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mpk", ".msgp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// IsFragmentFile reports whether path has a fragment file extension.
func IsFragmentFile(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// Load reads the document stored at path.
func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open fragment file: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	return doc, nil
}

// Decode reads one document from r.
func Decode(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read fragments: %w", err)
	}

	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatMsgpack:
		return decodeMsgpack(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func decodeJSON(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var frags []model.PageFragment
		if err := json.Unmarshal(data, &frags); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		return &Document{Fragments: frags}, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &doc, nil
}

func decodeMsgpack(data []byte) (*Document, error) {
	var doc Document
	if err := msgpack.Unmarshal(data, &doc); err == nil {
		return &doc, nil
	}

	var frags []model.PageFragment
	if err := msgpack.Unmarshal(data, &frags); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &Document{Fragments: frags}, nil
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(doc)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
