package sync

// DocKind is the document class the server reports for a thread.
type DocKind int

const (
	KindDocument DocKind = iota
	KindSpreadsheet
	KindPresentation
	KindUnknown
)

func (k DocKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindSpreadsheet:
		return "spreadsheet"
	case KindPresentation:
		return "presentation"
	default:
		return "unknown"
	}
}

// KindFromThreadType maps the wire-level thread type string to a kind.
// Anything unrecognized is KindUnknown; the engine records those as failed
// rather than silently dropping them.
func KindFromThreadType(threadType string) DocKind {
	switch threadType {
	case "document":
		return KindDocument
	case "spreadsheet":
		return KindSpreadsheet
	case "slides":
		return KindPresentation
	default:
		return KindUnknown
	}
}

// Format is an export target format.
type Format int

const (
	FormatDOCX Format = iota
	FormatXLSX
	FormatPDF
)

// Ext returns the format's file extension, which doubles as the export
// endpoint's format segment.
func (f Format) Ext() string {
	switch f {
	case FormatDOCX:
		return "docx"
	case FormatXLSX:
		return "xlsx"
	case FormatPDF:
		return "pdf"
	default:
		return ""
	}
}

// kindFormats is the closed kind-to-format mapping. No silent fallback:
// a kind outside this table has no export path.
var kindFormats = map[DocKind]Format{
	KindDocument:     FormatDOCX,
	KindSpreadsheet:  FormatXLSX,
	KindPresentation: FormatPDF,
}

// FormatForKind returns the export format for a document kind, or false
// when the kind has no export path.
func FormatForKind(kind DocKind) (Format, bool) {
	f, ok := kindFormats[kind]
	return f, ok
}
