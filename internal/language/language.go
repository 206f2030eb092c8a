package language

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates the given SDL sources as one schema.
// Type extensions are merged into their base definitions and the GraphQL
// prelude (built-in scalars, directives and introspection types) is included.
func LoadSchema(sources ...*Source) (*Schema, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no schema sources given")
	}
	s, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadQuery parses the query and validates it against s.
// A nil ErrorList means the document is valid.
func LoadQuery(s *Schema, query string) (*QueryDocument, ErrorList) {
	doc, errs := gqlparser.LoadQuery(s, query)
	if len(errs) > 0 {
		return nil, errs
	}
	return doc, nil
}
