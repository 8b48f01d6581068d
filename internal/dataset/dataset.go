package dataset

import (
	"fmt"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/quantfold/pipeline/internal/domain"
)

// ColumnDef declares a column of a schema family.
type ColumnDef struct {
	// Name is the column identifier within the family.
	Name string

	// Dtype is the column's value type.
	Dtype Dtype

	// Missing is the sentinel stored where no value is available. A nil
	// Missing selects the dtype default (NaN for float64, zero values
	// otherwise).
	Missing any
}

// instanceKind distinguishes the four dataset shapes the registry deals
// with.
type instanceKind int

const (
	// kindGeneric is a declared generic dataset, legal to specialize to
	// any concrete domain.
	kindGeneric instanceKind = iota

	// kindRooted is a dataset declared with a fixed concrete domain.
	kindRooted

	// kindDerivedGeneric is the generic view of a rooted family; its only
	// legal specialization target is the family's root domain.
	kindDerivedGeneric

	// kindSpecialized is a memoized domain-bound variant of a generic
	// family.
	kindSpecialized
)

// Family is a schema family: the declaration-time identity shared by a
// generic dataset and all of its domain specializations.
//
// Thread-safety: the column definitions are immutable; the memoization
// table is guarded by mu. Entries are published at most once per domain
// key and never evicted, so a (family, domain) pair has a stable identity
// for the process lifetime.
type Family struct {
	name string
	defs []ColumnDef

	mu              sync.Mutex
	specializations map[string]*DataSet // domain.Key() -> instance

	generic    *DataSet      // declared generic instance, nil for rooted families
	rooted     *DataSet      // declared rooted instance, nil for generic families
	rootDomain domain.Domain // non-nil iff the family is rooted
	derived    *DataSet      // memoized derived-generic view of a rooted family
}

// Name returns the family name.
func (f *Family) Name() string { return f.name }

// DataSet is one schema instance of a family: the declared generic or
// rooted dataset, a memoized specialization, or a derived-generic view.
// DataSets are immutable after construction.
type DataSet struct {
	family  *Family
	domain  domain.Domain
	kind    instanceKind
	columns []*Column
	byName  map[string]*Column
}

// Column is a single named, typed column bound to exactly one DataSet.
// A column's domain is always its owning dataset's domain.
type Column struct {
	name    string
	dtype   Dtype
	missing any
	dataset *DataSet
}

// New declares a generic schema family and returns its generic dataset.
//
// Declarations are static program structure, so malformed definitions
// (empty or duplicate names, unknown dtypes, mismatched missing values)
// panic rather than returning an error.
func New(name string, defs ...ColumnDef) *DataSet {
	f := newFamily(name, defs)
	f.generic = f.build(domain.Generic, kindGeneric)
	return f.generic
}

// NewRooted declares a schema family fixed to a concrete domain at
// declaration time and returns its rooted dataset. Panics if root is nil
// or generic.
func NewRooted(name string, root domain.Domain, defs ...ColumnDef) *DataSet {
	if root == nil || root.IsGeneric() {
		panic(fmt.Sprintf("dataset %q: rooted family requires a concrete domain", name))
	}
	f := newFamily(name, defs)
	f.rootDomain = root
	f.rooted = f.build(root, kindRooted)
	return f.rooted
}

func newFamily(name string, defs []ColumnDef) *Family {
	if name == "" {
		panic("dataset: family name is required")
	}
	name = norm.NFC.String(name)

	seen := make(map[string]bool, len(defs))
	normalized := make([]ColumnDef, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			panic(fmt.Sprintf("dataset %q: column name is required", name))
		}
		def.Name = norm.NFC.String(def.Name)
		if seen[def.Name] {
			panic(fmt.Sprintf("dataset %q: duplicate column %q", name, def.Name))
		}
		seen[def.Name] = true
		if !def.Dtype.valid() {
			panic(fmt.Sprintf("dataset %q: column %q has unknown dtype %q", name, def.Name, def.Dtype))
		}
		if def.Missing == nil {
			def.Missing = def.Dtype.defaultMissing()
		} else if err := def.Dtype.checkMissing(def.Missing); err != nil {
			panic(fmt.Sprintf("dataset %q: column %q: %v", name, def.Name, err))
		}
		normalized[i] = def
	}

	return &Family{
		name:            name,
		defs:            normalized,
		specializations: make(map[string]*DataSet),
	}
}

// build constructs a dataset instance with fresh columns bound to it.
func (f *Family) build(d domain.Domain, kind instanceKind) *DataSet {
	ds := &DataSet{
		family: f,
		domain: d,
		kind:   kind,
		byName: make(map[string]*Column, len(f.defs)),
	}
	ds.columns = make([]*Column, len(f.defs))
	for i, def := range f.defs {
		col := &Column{
			name:    def.Name,
			dtype:   def.Dtype,
			missing: def.Missing,
			dataset: ds,
		}
		ds.columns[i] = col
		ds.byName[def.Name] = col
	}
	return ds
}

// Family returns the schema family this dataset belongs to.
func (ds *DataSet) Family() *Family { return ds.family }

// Name returns the family name; specializations share their family's name.
func (ds *DataSet) Name() string { return ds.family.name }

// Domain returns the dataset's domain. Generic and derived-generic
// datasets report the Generic sentinel.
func (ds *DataSet) Domain() domain.Domain { return ds.domain }

// Columns returns the dataset's columns in declaration order. The returned
// slice is a copy; the columns themselves are shared.
func (ds *DataSet) Columns() []*Column {
	out := make([]*Column, len(ds.columns))
	copy(out, ds.columns)
	return out
}

// Column returns the named column.
func (ds *DataSet) Column(name string) (*Column, error) {
	col, ok := ds.byName[norm.NFC.String(name)]
	if !ok {
		return nil, fmt.Errorf("dataset %s has no column %q", ds, name)
	}
	return col, nil
}

// MustColumn returns the named column, panicking if it does not exist.
// Intended for declaration-time lookups where the column is known.
func (ds *DataSet) MustColumn(name string) *Column {
	col, err := ds.Column(name)
	if err != nil {
		panic(err)
	}
	return col
}

// String renders the dataset as its family name plus the domain, e.g.
// "pricing<EquityCalendarDomain('US', 'NYSE')>" or "pricing<GENERIC>".
func (ds *DataSet) String() string {
	return fmt.Sprintf("%s<%s>", ds.family.name, ds.domain)
}

// Extend declares a new family whose columns are this dataset's columns
// followed by the given additional definitions. The child family inherits
// the parent's rootedness: extending a rooted dataset produces a family
// rooted at the same domain. Extend is a declaration-time operation and is
// only legal on a declared instance, not on a specialization or derived
// view.
func (ds *DataSet) Extend(name string, defs ...ColumnDef) *DataSet {
	switch ds.kind {
	case kindGeneric:
		return New(name, append(ds.defCopies(), defs...)...)
	case kindRooted:
		return NewRooted(name, ds.domain, append(ds.defCopies(), defs...)...)
	default:
		panic(fmt.Sprintf("dataset %s: Extend is only legal on a declared generic or rooted dataset", ds))
	}
}

func (ds *DataSet) defCopies() []ColumnDef {
	out := make([]ColumnDef, len(ds.family.defs))
	copy(out, ds.family.defs)
	return out
}

// Name returns the column identifier within its family.
func (c *Column) Name() string { return c.name }

// Dtype returns the column's value type.
func (c *Column) Dtype() Dtype { return c.dtype }

// Missing returns the column's missing-value sentinel.
func (c *Column) Missing() any { return c.missing }

// DataSet returns the schema instance owning this column.
func (c *Column) DataSet() *DataSet { return c.dataset }

// Domain returns the owning dataset's domain. Column satisfies
// domain.Term, so collections of columns can be fed to domain.Infer
// directly.
func (c *Column) Domain() domain.Domain { return c.dataset.domain }

// QualifiedName returns "family.column", the domain-independent name of
// the underlying loadable quantity.
func (c *Column) QualifiedName() string {
	return c.dataset.family.name + "." + c.name
}

// String renders the column with its owning dataset's domain attached.
func (c *Column) String() string {
	return fmt.Sprintf("%s.%s", c.dataset, c.name)
}
