// Package importer parses XML text into encoded tables.
//
// The importer streams tokens from encoding/xml and feeds them to a
// table.Builder, so a document is encoded in one pass without building an
// intermediate tree. Prefixes are kept as written; namespace declarations
// are stored on the element that makes them.
package importer
