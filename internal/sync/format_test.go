package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFromThreadType(t *testing.T) {
	assert.Equal(t, KindDocument, KindFromThreadType("document"))
	assert.Equal(t, KindSpreadsheet, KindFromThreadType("spreadsheet"))
	assert.Equal(t, KindPresentation, KindFromThreadType("slides"))
	assert.Equal(t, KindUnknown, KindFromThreadType("chat"))
	assert.Equal(t, KindUnknown, KindFromThreadType(""))
}

func TestFormatForKind_ClosedMapping(t *testing.T) {
	// every exportable kind has exactly one format; no silent fallback
	wantFormats := map[DocKind]string{
		KindDocument:     "docx",
		KindSpreadsheet:  "xlsx",
		KindPresentation: "pdf",
	}

	for kind, ext := range wantFormats {
		format, ok := FormatForKind(kind)
		require.True(t, ok, "kind %s must have an export format", kind)
		assert.Equal(t, ext, format.Ext())
	}

	_, ok := FormatForKind(KindUnknown)
	assert.False(t, ok, "unknown kinds have no export path")

	assert.Len(t, kindFormats, 3, "the mapping is closed; extend this test when adding kinds")
}
