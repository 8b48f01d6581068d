package domain

// Term is the minimal view of a computation-graph node that inference
// needs: something with an associated domain. Columns, factors, filters,
// and raw references all satisfy it.
type Term interface {
	Domain() Domain
}

// Infer determines the unique concrete domain governing a set of terms.
//
// Generic terms impose no constraint and are discarded. The remaining
// concrete domains are deduplicated by value equality:
//
//   - none left: the result is Generic
//   - exactly one: that domain is the result
//   - two or more: the set is genuinely conflicting and Infer fails with
//     an *AmbiguousDomainError carrying the deduplicated domains sorted by
//     canonical string form
//
// Infer is a pure function of its inputs and requires no synchronization.
func Infer(terms []Term) (Domain, error) {
	var distinct []Domain
	for _, t := range terms {
		d := t.Domain()
		if d == nil || d.IsGeneric() {
			continue
		}
		seen := false
		for _, existing := range distinct {
			if existing.Equal(d) {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, d)
		}
	}

	switch len(distinct) {
	case 0:
		return Generic, nil
	case 1:
		return distinct[0], nil
	default:
		Sort(distinct)
		return nil, &AmbiguousDomainError{Domains: distinct}
	}
}
