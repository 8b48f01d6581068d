package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/quantfold/pipeline/internal/dataset"
	"github.com/quantfold/pipeline/internal/domain"
	"github.com/quantfold/pipeline/internal/engine"
	"github.com/quantfold/pipeline/internal/graph"
)

// Declarations holds the datasets and pipelines loaded from a CUE
// declaration directory.
type Declarations struct {
	DataSets  map[string]*dataset.DataSet
	Pipelines map[string]*engine.Pipeline
}

// DeclError is an error in a declaration file, tagged with the CUE path of
// the offending value.
type DeclError struct {
	Path    string
	Message string
}

func (e *DeclError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func declErrorf(path, format string, args ...any) *DeclError {
	return &DeclError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// LoadDeclarations loads dataset and pipeline declarations from the CUE
// files in dir. Declarations look like:
//
//	dataset: pricing: columns: {
//		close:  "float64"
//		volume: "int64"
//	}
//
//	pipeline: momentum: {
//		domain: {country: "US", calendar: "NYSE"}
//		columns: sum3: {op: "rolling_sum", input: "pricing.close", window: 3}
//	}
//
// The pipeline domain block is optional; without it the pipeline's domain
// is inferred from its terms at run time.
func LoadDeclarations(dir string) (*Declarations, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("declarations directory not found: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("accessing declarations directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	decls := &Declarations{
		DataSets:  make(map[string]*dataset.DataSet),
		Pipelines: make(map[string]*engine.Pipeline),
	}
	if err := loadDataSets(value, decls); err != nil {
		return nil, err
	}
	if err := loadPipelines(value, decls); err != nil {
		return nil, err
	}
	if len(decls.Pipelines) == 0 {
		return nil, fmt.Errorf("no pipelines declared in %s", dir)
	}
	return decls, nil
}

func loadDataSets(value cue.Value, decls *Declarations) error {
	datasets := value.LookupPath(cue.ParsePath("dataset"))
	if !datasets.Exists() {
		return fmt.Errorf("no dataset declarations found")
	}
	iter, err := datasets.Fields()
	if err != nil {
		return fmt.Errorf("iterating datasets: %w", err)
	}
	for iter.Next() {
		name := iter.Label()
		path := "dataset." + name

		columns := iter.Value().LookupPath(cue.ParsePath("columns"))
		if !columns.Exists() {
			return declErrorf(path, "missing columns")
		}
		colIter, err := columns.Fields()
		if err != nil {
			return declErrorf(path, "iterating columns: %v", err)
		}

		var defs []dataset.ColumnDef
		for colIter.Next() {
			dtypeStr, err := colIter.Value().String()
			if err != nil {
				return declErrorf(path+".columns."+colIter.Label(), "dtype must be a string: %v", err)
			}
			defs = append(defs, dataset.ColumnDef{
				Name:  colIter.Label(),
				Dtype: dataset.Dtype(dtypeStr),
			})
		}
		if len(defs) == 0 {
			return declErrorf(path, "no columns declared")
		}

		ds, err := buildDataSet(name, defs)
		if err != nil {
			return declErrorf(path, "%v", err)
		}
		decls.DataSets[name] = ds
	}
	return nil
}

// buildDataSet converts the declaration panic into an error so a bad CUE
// file cannot crash the CLI.
func buildDataSet(name string, defs []dataset.ColumnDef) (ds *dataset.DataSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return dataset.New(name, defs...), nil
}

func loadPipelines(value cue.Value, decls *Declarations) error {
	pipelines := value.LookupPath(cue.ParsePath("pipeline"))
	if !pipelines.Exists() {
		return fmt.Errorf("no pipeline declarations found")
	}
	iter, err := pipelines.Fields()
	if err != nil {
		return fmt.Errorf("iterating pipelines: %w", err)
	}
	for iter.Next() {
		name := iter.Label()
		p, err := loadPipeline("pipeline."+name, iter.Value(), decls)
		if err != nil {
			return err
		}
		decls.Pipelines[name] = p
	}
	return nil
}

func loadPipeline(path string, value cue.Value, decls *Declarations) (*engine.Pipeline, error) {
	var opts []engine.PipelineOption
	if domainVal := value.LookupPath(cue.ParsePath("domain")); domainVal.Exists() {
		d, err := loadDomain(path+".domain", domainVal)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithDomain(d))
	}

	columns := value.LookupPath(cue.ParsePath("columns"))
	if !columns.Exists() {
		return nil, declErrorf(path, "missing columns")
	}
	colIter, err := columns.Fields()
	if err != nil {
		return nil, declErrorf(path, "iterating columns: %v", err)
	}

	terms := make(map[string]graph.Term)
	for colIter.Next() {
		term, err := loadTerm(path+".columns."+colIter.Label(), colIter.Value(), decls)
		if err != nil {
			return nil, err
		}
		terms[colIter.Label()] = term
	}

	p, err := engine.NewPipeline(terms, opts...)
	if err != nil {
		return nil, declErrorf(path, "%v", err)
	}
	return p, nil
}

func loadDomain(path string, value cue.Value) (domain.Domain, error) {
	country, err := value.LookupPath(cue.ParsePath("country")).String()
	if err != nil {
		return nil, declErrorf(path, "missing country: %v", err)
	}
	calendarName, err := value.LookupPath(cue.ParsePath("calendar")).String()
	if err != nil {
		return nil, declErrorf(path, "missing calendar: %v", err)
	}

	offset := domain.DefaultDataQueryOffset
	if offsetVal := value.LookupPath(cue.ParsePath("offset")); offsetVal.Exists() {
		offsetStr, err := offsetVal.String()
		if err != nil {
			return nil, declErrorf(path, "offset must be a duration string: %v", err)
		}
		offset, err = time.ParseDuration(offsetStr)
		if err != nil {
			return nil, declErrorf(path, "invalid offset %q: %v", offsetStr, err)
		}
	}
	if offset > 0 {
		return nil, declErrorf(path, "offset %s is positive", offset)
	}

	return domain.NewEquityCalendarDomain(domain.CountryCode(country), calendarName, offset), nil
}

// termOps lists the operations a pipeline column declaration may use.
var termOps = []string{"latest", "rolling_sum", "rolling_mean", "latest_gt"}

func loadTerm(path string, value cue.Value, decls *Declarations) (graph.Term, error) {
	op, err := value.LookupPath(cue.ParsePath("op")).String()
	if err != nil {
		return nil, declErrorf(path, "missing op: %v", err)
	}
	inputRef, err := value.LookupPath(cue.ParsePath("input")).String()
	if err != nil {
		return nil, declErrorf(path, "missing input: %v", err)
	}
	col, err := resolveColumn(inputRef, decls)
	if err != nil {
		return nil, declErrorf(path, "%v", err)
	}

	switch op {
	case "latest":
		return graph.Latest(col), nil
	case "rolling_sum", "rolling_mean":
		window, err := value.LookupPath(cue.ParsePath("window")).Int64()
		if err != nil {
			return nil, declErrorf(path, "missing window: %v", err)
		}
		if window < 1 {
			return nil, declErrorf(path, "window must be at least 1, got %d", window)
		}
		if op == "rolling_sum" {
			return graph.RollingSum(col, int(window)), nil
		}
		return graph.RollingMean(col, int(window)), nil
	case "latest_gt":
		threshold, err := value.LookupPath(cue.ParsePath("threshold")).Float64()
		if err != nil {
			return nil, declErrorf(path, "missing threshold: %v", err)
		}
		return graph.LatestGreaterThan(col, threshold), nil
	default:
		return nil, declErrorf(path, "unknown op %q: must be one of %v", op, termOps)
	}
}

// resolveColumn resolves a "family.column" reference against the declared
// datasets.
func resolveColumn(ref string, decls *Declarations) (*dataset.Column, error) {
	familyName, columnName, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("input %q must be of the form family.column", ref)
	}
	ds, ok := decls.DataSets[familyName]
	if !ok {
		return nil, fmt.Errorf("input %q references undeclared dataset %q (have %v)",
			ref, familyName, sortedKeys(decls.DataSets))
	}
	col, err := ds.Column(columnName)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", ref, err)
	}
	return col, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
