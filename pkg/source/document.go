package source

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Document is the on-disk and object-store form of a record export.
type Document struct {
	AsOf    time.Time               `json:"as_of" yaml:"as_of"`
	Records []records.ContentRecord `json:"records" yaml:"records"`
}

// Format is a serialisation of Document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatOf derives the format and compression from a file or object name:
// ".json" or ".yaml"/".yml", optionally followed by ".sz" for snappy.
func FormatOf(name string) (f Format, compressed bool, err error) {
	name = strings.ToLower(name)
	if strings.HasSuffix(name, ".sz") {
		compressed = true
		name = strings.TrimSuffix(name, ".sz")
	}
	switch path.Ext(name) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	}
	return 0, false, fmt.Errorf("unsupported snapshot format %q", name)
}

// DecodeDocument parses data named name. A bare list of records is accepted
// in place of a document.
func DecodeDocument(name string, data []byte) (*Document, error) {
	format, compressed, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	if compressed {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", name, err)
		}
	}

	var doc Document
	trimmed := bytes.TrimSpace(data)
	switch format {
	case FormatJSON:
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &doc.Records)
		} else {
			err = json.Unmarshal(trimmed, &doc)
		}
	case FormatYAML:
		if len(trimmed) > 0 && trimmed[0] == '-' {
			err = yaml.Unmarshal(trimmed, &doc.Records)
		} else {
			err = yaml.Unmarshal(trimmed, &doc)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &doc, nil
}

// EncodeDocument serialises doc in the format name implies.
func EncodeDocument(name string, doc *Document) ([]byte, error) {
	format, compressed, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	if compressed {
		data = snappy.Encode(nil, data)
	}
	return data, nil
}
