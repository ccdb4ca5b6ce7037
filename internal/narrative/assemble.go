package narrative

import "strings"

// FinalConnective introduces the last clause of lists with three or more
// events.
const FinalConnective = "and finally"

// Assemble joins the clauses of one day into a single sentence:
//
//	0 clauses: ""
//	1 clause:  "a."
//	2 clauses: "a, <t> b."
//	3+:        "a, <t> b, <t> c, and finally d."
//
// picker is called once per connective except the final "and finally".
func Assemble(phrases []string, picker Picker) string {
	n := len(phrases)
	if n == 0 {
		return ""
	}
	if picker == nil {
		picker = NewRandomPicker(nil)
	}

	var b strings.Builder
	b.WriteString(phrases[0])

	if n == 2 {
		b.WriteString(", ")
		b.WriteString(picker.Pick())
		b.WriteString(" ")
		b.WriteString(phrases[1])
	} else if n > 2 {
		for _, p := range phrases[1 : n-1] {
			b.WriteString(", ")
			b.WriteString(picker.Pick())
			b.WriteString(" ")
			b.WriteString(p)
		}
		b.WriteString(", " + FinalConnective + " ")
		b.WriteString(phrases[n-1])
	}

	b.WriteString(".")
	return b.String()
}
