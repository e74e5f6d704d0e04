// Package xmlsave implements the local file save/read format described by
// spec.md §4.6 (component C7): write an in-memory spreadsheet to a file,
// and read back its version string without loading cells.
//
// It descends from the teacher's CellSerializer, whose Marshal/Unmarshal
// pair length-prefixed a key so Unmarshal could read just the key before
// deciding whether to touch the value bytes. No XML (or any serialization)
// library appears anywhere in the retrieval pack, so this uses stdlib
// encoding/xml — the same "read only as much as you need" discipline
// carries over as GetSavedVersion's token-streaming partial read, which
// never decodes a single <cell> element.
package xmlsave

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/berejant/collabsheet/contracts"
)

// CellRecord is one <cell> entry: name is the normalized CellName, and
// contents is the authored source form (spec.md §4.6's "S": the string,
// number.toString(), or "=" + formula.toString()).
type CellRecord struct {
	Name     string
	Contents string
}

type xmlSpreadsheet struct {
	XMLName xml.Name  `xml:"spreadsheet"`
	Version string    `xml:"version,attr"`
	Cells   []xmlCell `xml:"cell"`
}

type xmlCell struct {
	Name     string `xml:"name"`
	Contents string `xml:"contents"`
}

// Save writes records to path as the XML format of spec.md §4.6.
func Save(path string, version string, records []CellRecord) error {
	doc := xmlSpreadsheet{Version: version}
	for _, r := range records {
		doc.Cells = append(doc.Cells, xmlCell{Name: r.Name, Contents: r.Contents})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %s", contracts.ErrReadWriteError, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %s", contracts.ErrReadWriteError, path, err)
	}
	return nil
}

// Load reads path and returns its version and every <cell> record.
func Load(path string) (version string, records []CellRecord, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: open %s: %s", contracts.ErrReadWriteError, path, err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses r as the spec.md §4.6 XML format.
func Decode(r io.Reader) (version string, records []CellRecord, err error) {
	var doc xmlSpreadsheet
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("%w: decode: %s", contracts.ErrReadWriteError, err)
	}

	records = make([]CellRecord, len(doc.Cells))
	for i, c := range doc.Cells {
		records[i] = CellRecord{Name: c.Name, Contents: c.Contents}
	}
	return doc.Version, records, nil
}

// GetSavedVersion returns path's version attribute without decoding any
// <cell> element: it stops at the first <spreadsheet> start element, per
// spec.md §4.6. A <spreadsheet> without a version attribute yields "".
func GetSavedVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %s", contracts.ErrReadWriteError, path, err)
	}
	defer f.Close()

	decoder := xml.NewDecoder(f)
	for {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("%w: %s: no spreadsheet element", contracts.ErrReadWriteError, path)
			}
			return "", fmt.Errorf("%w: %s: %s", contracts.ErrReadWriteError, path, err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "spreadsheet" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "version" {
				return attr.Value, nil
			}
		}
		return "", nil
	}
}
