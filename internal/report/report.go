// Package report renders the outcome of a cruise run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
)

// Reporter writes a run result in one output format.
type Reporter interface {
	Report(w io.Writer, res *cruise.Result) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(w io.Writer, res *cruise.Result) error

func (f ReporterFunc) Report(w io.Writer, res *cruise.Result) error { return f(w, res) }

var reporters = map[string]Reporter{
	"text":    TextReporter{},
	"json":    JSONReporter{Indent: true},
	"dot":     ReporterFunc(dotReport),
	"mermaid": ReporterFunc(mermaidReport),
}

// ForName looks up a reporter by output type.
func ForName(name string) (Reporter, error) {
	r, ok := reporters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown output type %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return r, nil
}

// Names lists the registered output types.
func Names() []string {
	names := make([]string, 0, len(reporters))
	for n := range reporters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// JSONReporter writes violations, warnings and the summary as one document.
type JSONReporter struct {
	Indent bool
}

type jsonDocument struct {
	*cruise.Result
	Stats  depgraph.GraphStats `json:"stats"`
	Passed bool                `json:"passed"`
}

func (r JSONReporter) Report(w io.Writer, res *cruise.Result) error {
	doc := jsonDocument{Result: res, Passed: res.Summary.Passed()}
	if res.Graph != nil {
		doc.Stats = res.Graph.Stats
	}
	enc := json.NewEncoder(w)
	if r.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func dotReport(w io.Writer, res *cruise.Result) error {
	_, err := io.WriteString(w, depgraph.ExportDOT(res.ExportGraph()))
	return err
}

func mermaidReport(w io.Writer, res *cruise.Result) error {
	_, err := io.WriteString(w, depgraph.ExportMermaid(res.ExportGraph()))
	return err
}
