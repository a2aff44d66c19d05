// Package report renders the outcome of a run for people and writes the
// constraint export for external solvers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"slava0135/shapecheck/config"
	"slava0135/shapecheck/constraints"
	"slava0135/shapecheck/symexec"
	"slava0135/shapecheck/value"
)

// Timing is one named phase of a run.
type Timing struct {
	Name     string
	Duration time.Duration
}

type Reporter struct {
	Out   io.Writer
	Fs    afero.Fs
	Level config.LogLevel
	// ExportDir receives <entry>_z3.json. Empty disables the export.
	ExportDir string

	timings []Timing
	last    time.Time
}

func New(out io.Writer, fs afero.Fs, opts config.Options) *Reporter {
	return &Reporter{Out: out, Fs: fs, Level: opts.LogLevel, ExportDir: opts.ExportPath, last: time.Now()}
}

// Mark ends the current phase under name.
func (r *Reporter) Mark(name string) {
	now := time.Now()
	r.timings = append(r.timings, Timing{Name: name, Duration: now.Sub(r.last)})
	r.last = now
}

func (r *Reporter) Timings() []Timing {
	return r.timings
}

// Write prints res at the configured level and exports the constraints of
// succeeded paths. Errors of individual steps are collected.
func (r *Reporter) Write(res *symexec.Result) error {
	var result *multierror.Error
	w := &errWriter{w: r.Out}

	switch r.Level {
	case config.LogNone:
		return nil
	case config.LogResultOnly:
		for i, c := range res.Set.Failed() {
			w.printf(":: failed path #%d: %s\n\n", i+1, failure(c))
		}
	case config.LogReduced, config.LogFull:
		full := r.Level == config.LogFull
		for i, c := range res.Set.List() {
			w.printf(":: success path #%d\n%s\n", i+1, r.body(c, full))
		}
		for i, c := range res.Set.Failed() {
			w.printf(":: failed path #%d: %s\n%s\n", i+1, failure(c), r.body(c, full))
		}
		if r.ExportDir != "" {
			path, err := Export(r.Fs, r.ExportDir, res)
			if err != nil {
				result = multierror.Append(result, err)
			} else if path != "" {
				w.printf("write path constraints to %s\n", path)
			}
		}
	default:
		return fmt.Errorf("unknown log level %q", r.Level)
	}

	r.Mark("printing results")
	w.printf("potential success path #: %d\n", len(res.Set.List()))
	w.printf("immediate failed path #: %d\n", len(res.Set.Failed()))
	if n := res.Set.Pruned(); n > 0 {
		w.printf("infeasible path #: %d\n", n)
	}
	w.printf("\nRUNNING TIMES:\n")
	for _, t := range r.timings {
		w.printf("  %s: %.4fs\n", t.Name, t.Duration.Seconds())
	}
	if w.err != nil {
		result = multierror.Append(result, errors.Wrap(w.err, "can't write report"))
	}
	return result.ErrorOrNil()
}

func failure(c symexec.Context) string {
	reason, src := c.Failure()
	return fmt.Sprintf("%s / at %s %s", reason, c.RelPath(), src)
}

func (r *Reporter) body(c symexec.Context, full bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOGS:\n%s\n\n", c.LogsString())
	fmt.Fprintf(&b, "CONSTRAINTS:\n%s\n\n", c.Constraints())
	if c.Outcome() == symexec.Failed {
		fmt.Fprintf(&b, "CALL STACK:\n%s\n\n", c.CallStackString())
	}
	if full {
		fmt.Fprintf(&b, "ENV:\n%s\n\n", Env(c))
		fmt.Fprintf(&b, "HEAP (size: %d):\n%s\n", c.Heap().Len(), Heap(c))
		return b.String()
	}
	fmt.Fprintf(&b, "REDUCED HEAP (size: %d):\n%s\n", c.Heap().Len(), ReducedHeap(c))
	return b.String()
}

// Reduced renders the value at a, showing tensors by their shape.
func Reduced(c symexec.Context, a value.Address) string {
	v, err := c.Heap().Get(a)
	if err != nil {
		return a.String()
	}
	if obj, ok := v.(value.Object); ok {
		if sa, ok := obj.Attr("shape"); ok {
			if size, ok := c.Get(sa).(value.Size); ok {
				return fmt.Sprintf("Tensor %s", size.Shape)
			}
		}
	}
	return v.String()
}

// ReducedHeap lists the module attributes of a succeeded path, or the
// user-visible bindings of the current scope of any other path.
func ReducedHeap(c symexec.Context) string {
	var lines []string
	if c.Outcome() != symexec.Failed {
		if mod, ok := c.Get(value.ModuleAddress).(value.Object); ok {
			for _, name := range mod.Attrs() {
				a, _ := mod.Attr(name)
				lines = append(lines, fmt.Sprintf("  %s => %s", name, Reduced(c, a)))
			}
			return strings.Join(lines, "\n")
		}
	}
	for _, name := range c.Env().Names() {
		a, _ := c.Env().Resolve(name)
		if a.Internal() {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s => %s", name, Reduced(c, a)))
	}
	return strings.Join(lines, "\n")
}

func Env(c symexec.Context) string {
	var lines []string
	for _, name := range c.Env().Names() {
		a, _ := c.Env().Resolve(name)
		lines = append(lines, fmt.Sprintf("  %s => %s", name, a))
	}
	return strings.Join(lines, "\n")
}

// Heap dumps every address reachable from the module object.
func Heap(c symexec.Context) string {
	var lines []string
	for _, a := range c.Heap().Reachable(value.ModuleAddress) {
		if a.Internal() {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s => %s", a, c.Get(a)))
	}
	return strings.Join(lines, "\n")
}

// ExportName is the file the constraints of entry are exported to.
func ExportName(entry string) string {
	return entry + "_z3.json"
}

// Export writes one constraint document per succeeded path into dir as a
// JSON array. Nothing is written when no path succeeded, and the returned
// path is empty.
func Export(fs afero.Fs, dir string, res *symexec.Result) (string, error) {
	if len(res.Set.List()) == 0 {
		return "", nil
	}
	docs := make([]constraints.Document, 0, len(res.Set.List()))
	for _, c := range res.Set.List() {
		docs = append(docs, c.Constraints().Document())
	}
	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "can't encode constraints")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "can't create %s", dir)
	}
	path := filepath.Join(dir, ExportName(res.Entry))
	if err := afero.WriteFile(fs, path, b, 0o644); err != nil {
		return "", errors.Wrapf(err, "can't write %s", path)
	}
	return path, nil
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
