// Package prefixes maps between fully-qualified IRIs used by the Wikimedia
// semantic stores and compact (prefix tag, local id) pairs. The prefix table
// is static and ships embedded with the binary; callers receive an immutable
// Table value and pass it explicitly into every component that compacts or
// expands identifiers.
package prefixes

import (
	_ "embed"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Tag identifies a namespace in the prefix table.
type Tag string

// Known namespace tags.
const (
	// TagSDCStatement is the Commons structured-data statement namespace.
	TagSDCStatement Tag = "SDCS"

	// TagSDCEntity is the Commons structured-data entity namespace.
	TagSDCEntity Tag = "SDC"

	// TagSDCReference is the Commons structured-data reference-node namespace.
	TagSDCReference Tag = "SDCR"

	// TagWikidataEntity is the Wikidata entity namespace.
	TagWikidataEntity Tag = "WD"

	// TagWikidataDirect is the Wikidata truthy-claim predicate namespace.
	TagWikidataDirect Tag = "WDT"

	// TagPropReference is the Wikidata reference-property namespace.
	TagPropReference Tag = "PR"

	// TagPropQualifier is the Wikidata qualifier-property namespace.
	TagPropQualifier Tag = "PQ"

	// TagPropStatement is the Wikidata statement-property namespace.
	TagPropStatement Tag = "PS"
)

//go:embed prefixes.yaml
var embeddedTable []byte

// entry is one row of the prefix table.
type entry struct {
	Tag Tag    `yaml:"tag"`
	IRI string `yaml:"iri"`
}

// Table is an immutable prefix table supporting bidirectional mapping
// between IRIs and (tag, local id) pairs.
//
// Compaction uses longest-prefix-match. The data model has prefixes that are
// substrings of one another (the SDC entity namespace is a proper prefix of
// the SDC statement namespace), so matching must be deterministic regardless
// of declaration order.
type Table struct {
	entries []entry // sorted by IRI length descending, for longest match
	byTag   map[Tag]string
}

// defaultTable is built once from the embedded document.
var defaultTable = mustLoad(embeddedTable)

// Default returns the process-wide prefix table built from the embedded
// document.
func Default() *Table {
	return defaultTable
}

// New builds a Table from an explicit tag-to-IRI mapping. Intended for
// tests; production code uses Default.
func New(mapping map[Tag]string) *Table {
	entries := make([]entry, 0, len(mapping))
	byTag := make(map[Tag]string, len(mapping))
	for tag, iri := range mapping {
		entries = append(entries, entry{Tag: tag, IRI: iri})
		byTag[tag] = iri
	}
	sortEntries(entries)
	return &Table{entries: entries, byTag: byTag}
}

// mustLoad parses the embedded YAML prefix table. The document is compiled
// into the binary, so a parse failure is a build defect and panics.
func mustLoad(data []byte) *Table {
	var doc struct {
		Prefixes []entry `yaml:"prefixes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		panic("prefixes: invalid embedded table: " + err.Error())
	}

	byTag := make(map[Tag]string, len(doc.Prefixes))
	for _, e := range doc.Prefixes {
		byTag[e.Tag] = e.IRI
	}
	sortEntries(doc.Prefixes)
	return &Table{entries: doc.Prefixes, byTag: byTag}
}

// sortEntries orders entries longest IRI first so that Compact always
// strips the most specific namespace. Ties broken by tag for determinism.
func sortEntries(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].IRI) != len(entries[j].IRI) {
			return len(entries[i].IRI) > len(entries[j].IRI)
		}
		return entries[i].Tag < entries[j].Tag
	})
}

// Compact strips the longest matching namespace prefix from iri and returns
// the namespace tag and the remaining local id. ok is false when no
// namespace in the table matches.
func (t *Table) Compact(iri string) (tag Tag, localID string, ok bool) {
	for _, e := range t.entries {
		if strings.HasPrefix(iri, e.IRI) {
			return e.Tag, iri[len(e.IRI):], true
		}
	}
	return "", iri, false
}

// Expand is the inverse of Compact: it rebuilds the fully-qualified IRI for
// a (tag, local id) pair. ok is false for unknown tags.
func (t *Table) Expand(tag Tag, localID string) (iri string, ok bool) {
	base, ok := t.byTag[tag]
	if !ok {
		return "", false
	}
	return base + localID, true
}

// IRI returns the namespace IRI registered for tag, or the empty string.
func (t *Table) IRI(tag Tag) string {
	return t.byTag[tag]
}

// Tags returns every registered tag, most specific namespace first.
func (t *Table) Tags() []Tag {
	tags := make([]Tag, len(t.entries))
	for i, e := range t.entries {
		tags[i] = e.Tag
	}
	return tags
}
