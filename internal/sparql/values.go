package sparql

import "strings"

// Values renders an enumerated VALUES list body, prefixing every id with
// the given CURIE prefix: Values("wd", []string{"Q1", "Q2"}) yields
// "wd:Q1 wd:Q2". The caller embeds the result inside a VALUES clause.
func Values(prefix string, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(prefix)
		b.WriteByte(':')
		b.WriteString(id)
	}
	return b.String()
}
