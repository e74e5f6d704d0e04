package xmlsave

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berejant/collabsheet/contracts"
)

func TestSaveLoad_roundTrip(t *testing.T) {
	records := []CellRecord{
		{Name: "A1", Contents: "5"},
		{Name: "B1", Contents: "=A1*2"},
		{Name: "C1", Contents: "hello"},
	}

	path := filepath.Join(t.TempDir(), "sheet.xml")
	assert.NoError(t, Save(path, "v7", records))

	version, got, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "v7", version)
	assert.Equal(t, records, got)
}

func TestGetSavedVersion_matchesLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.xml")
	assert.NoError(t, Save(path, "v3", []CellRecord{{Name: "A1", Contents: "1"}}))

	version, err := GetSavedVersion(path)
	assert.NoError(t, err)
	assert.Equal(t, "v3", version)
}

func TestGetSavedVersion_noAttrIsEmptyString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.xml")
	assert.NoError(t, os.WriteFile(path, []byte("<spreadsheet></spreadsheet>"), 0o644))

	version, err := GetSavedVersion(path)
	assert.NoError(t, err)
	assert.Equal(t, "", version)
}

func TestLoad_missingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.xml"))
	assert.ErrorIs(t, err, contracts.ErrReadWriteError)
}

func TestGetSavedVersion_missingFile(t *testing.T) {
	_, err := GetSavedVersion(filepath.Join(t.TempDir(), "does-not-exist.xml"))
	assert.ErrorIs(t, err, contracts.ErrReadWriteError)
}

func TestDecode_corruptXML(t *testing.T) {
	_, _, err := Decode(strings.NewReader("<spreadsheet version=\"v1\"><cell><name>A1</name>"))
	assert.ErrorIs(t, err, contracts.ErrReadWriteError)
}

func TestGetSavedVersion_corruptXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.xml")
	// Truncated mid-tag: decoder.Token() fails before ever reaching a
	// complete StartElement, exercising the non-EOF branch of the
	// Token() error handling distinct from "no spreadsheet element".
	assert.NoError(t, os.WriteFile(path, []byte("<spreadsheet"), 0o644))

	_, err := GetSavedVersion(path)
	assert.ErrorIs(t, err, contracts.ErrReadWriteError)
}

func TestGetSavedVersion_noSpreadsheetElement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xml")
	assert.NoError(t, os.WriteFile(path, []byte("<?xml version=\"1.0\"?>\n"), 0o644))

	_, err := GetSavedVersion(path)
	assert.ErrorIs(t, err, contracts.ErrReadWriteError)
}
