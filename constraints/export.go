package constraints

import (
	"encoding/json"
	"sort"

	"slava0135/shapecheck/symexp"
)

// Document is the solver-neutral form of a Set handed to external checkers.
type Document struct {
	Symbols     []Symbol `json:"symbols" yaml:"symbols"`
	Constraints []Record `json:"constraints" yaml:"constraints"`
}

type Symbol struct {
	Name string `json:"name" yaml:"name"`
	Sort string `json:"sort" yaml:"sort"`
}

type Record struct {
	Kind    string `json:"kind" yaml:"kind"`
	Exp     []any  `json:"exp" yaml:"exp"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
}

func (s Set) Document() Document {
	doc := Document{Symbols: []Symbol{}, Constraints: []Record{}}
	syms := make(map[string]symexp.Exp)
	for _, c := range s.Items() {
		symexp.ScanSymbols(c.Exp, syms)
		r := Record{Kind: c.Kind.String(), Exp: symexp.Record(c.Exp), Message: c.Message}
		if c.Src != nil {
			r.Source = c.Src.String()
		}
		doc.Constraints = append(doc.Constraints, r)
	}
	names := make([]string, 0, len(syms))
	for name := range syms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e := syms[name]
		kind := e.Sort().String()
		if n, ok := e.(symexp.Num); ok {
			kind = n.Type().String()
		}
		doc.Symbols = append(doc.Symbols, Symbol{Name: name, Sort: kind})
	}
	return doc
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Document())
}

func (s Set) MarshalYAML() (interface{}, error) {
	return s.Document(), nil
}
