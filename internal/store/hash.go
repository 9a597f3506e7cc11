package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/roach88/xqdb/internal/table"
)

// Domain prefix for content hashes. Version suffix enables future
// algorithm migration.
const DomainTable = "xqdb/table/v1"

// ContentHash computes the content fingerprint of t.
// Format: SHA256(domain + 0x00 + records)
//
// Names, texts and namespace declarations are hashed by value, not by
// dictionary id, so two tables with the same nodes hash equal however
// their dictionaries were filled. The table name is not part of the hash.
func ContentHash(t *table.Table) string {
	h := sha256.New()
	h.Write([]byte(DomainTable))
	h.Write([]byte{0x00})

	var buf []byte
	for p := 0; p < t.Len(); p++ {
		r := t.Record(p)
		buf = buf[:0]
		buf = append(buf, byte(r.Kind))
		buf = binary.AppendUvarint(buf, uint64(r.Size))
		buf = binary.AppendUvarint(buf, uint64(r.AttSize))
		buf = appendString(buf, t.NodeName(p))
		if r.Text == table.NoText {
			buf = append(buf, 0)
		} else {
			buf = append(buf, 1)
			buf = appendString(buf, t.Text(p))
		}
		ns := t.Namespaces(p)
		buf = binary.AppendUvarint(buf, uint64(len(ns)))
		for _, b := range ns {
			buf = appendString(buf, b.Prefix)
			buf = appendString(buf, b.URI)
		}
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// appendString writes s length-prefixed so adjacent fields cannot run
// together.
func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}
