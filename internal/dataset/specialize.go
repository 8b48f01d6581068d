package dataset

import (
	"fmt"

	"github.com/quantfold/pipeline/internal/domain"
)

// Specialize resolves the variant of this dataset bound to the given
// domain.
//
// Specializing to the dataset's own domain is a no-op returning the
// dataset itself; this covers both the generic-to-generic case and a
// rooted dataset re-specialized to its root. A generic dataset specialized
// to a concrete domain resolves through the family's memoization table, so
// repeated calls with equal domains return the same object. Rooted
// datasets, derived-generic views, and existing specializations accept no
// foreign target: those calls fail with a domain-mismatch error naming the
// offending domain.
func (ds *DataSet) Specialize(d domain.Domain) (*DataSet, error) {
	if d == nil {
		d = domain.Generic
	}
	if d.Equal(ds.domain) {
		return ds, nil
	}

	switch ds.kind {
	case kindGeneric:
		return ds.family.specialize(d), nil

	case kindRooted:
		return nil, domain.NewDomainMismatchError(
			fmt.Sprintf("dataset %s is rooted at %s and cannot be specialized", ds.family.name, ds.domain),
			d,
		)

	case kindDerivedGeneric:
		if d.Equal(ds.family.rootDomain) {
			return ds.family.rooted, nil
		}
		return nil, domain.NewDomainMismatchError(
			fmt.Sprintf("dataset %s is a generic view of a family rooted at %s; it can only be specialized back to its root", ds.family.name, ds.family.rootDomain),
			d,
		)

	default: // kindSpecialized
		return nil, domain.NewDomainMismatchError(
			fmt.Sprintf("dataset %s is already specialized; unspecialize it before rebinding", ds),
			d,
		)
	}
}

// Unspecialize recovers the generic form of this dataset.
//
// Generic and derived-generic datasets return themselves. A specialization
// returns the family's declared generic dataset. A rooted dataset returns
// a derived-generic view, memoized per family, whose only legal
// specialization target is the root domain: this lets generic dispatch
// code treat rooted and non-rooted families uniformly.
func (ds *DataSet) Unspecialize() *DataSet {
	switch ds.kind {
	case kindGeneric, kindDerivedGeneric:
		return ds
	case kindSpecialized:
		return ds.family.generic
	default: // kindRooted
		return ds.family.derivedGenericView()
	}
}

// specialize looks up or creates the memoized specialization for a
// concrete domain. Construction happens inside the family lock, so an
// entry is either fully built and published or not visible at all, and
// racing callers observe a single winner.
func (f *Family) specialize(d domain.Domain) *DataSet {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := d.Key()
	if existing, ok := f.specializations[key]; ok {
		return existing
	}
	inst := f.build(d, kindSpecialized)
	f.specializations[key] = inst
	return inst
}

// derivedGenericView returns the memoized generic view of a rooted family.
func (f *Family) derivedGenericView() *DataSet {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.derived == nil {
		f.derived = f.build(domain.Generic, kindDerivedGeneric)
	}
	return f.derived
}

// Specialize resolves the same-named column on the specialization of the
// owning dataset. Name, dtype, and missing value are preserved exactly;
// only the owning dataset (and therefore the domain) changes.
func (c *Column) Specialize(d domain.Domain) (*Column, error) {
	ds, err := c.dataset.Specialize(d)
	if err != nil {
		return nil, err
	}
	return ds.Column(c.name)
}

// Unspecialize resolves the same-named column on the generic form of the
// owning dataset. The result identifies the underlying loadable quantity
// shared by every specialization of this column.
func (c *Column) Unspecialize() *Column {
	col, err := c.dataset.Unspecialize().Column(c.name)
	if err != nil {
		// Every instance of a family carries the same column set, so the
		// lookup cannot miss.
		panic(err)
	}
	return col
}
