package executor

import (
	language "github.com/hanpama/gqltools/internal/language"
	schema "github.com/hanpama/gqltools/internal/schema"
)

// fieldGroup holds the field nodes merged under one response key.
type fieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

// groupFields merges the selections that apply to objectType by response key.
// Groups keep the order in which their key first appears in the query.
func groupFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) []fieldGroup {
	c := &fieldCollector{
		state:      state,
		objectType: objectType,
		index:      map[string]int{},
		visited:    map[string]bool{},
	}
	c.collect(selectionSet)
	return c.groups
}

type fieldCollector struct {
	state      *executionState
	objectType *schema.Type
	groups     []fieldGroup
	index      map[string]int
	visited    map[string]bool
}

func (c *fieldCollector) collect(selectionSet language.SelectionSet) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if c.included(sel.Directives) {
				c.add(sel)
			}
		case *language.InlineFragment:
			if c.included(sel.Directives) && c.applies(sel.TypeCondition) {
				c.collect(sel.SelectionSet)
			}
		case *language.FragmentSpread:
			if !c.included(sel.Directives) || c.visited[sel.Name] {
				continue
			}
			c.visited[sel.Name] = true
			def := c.state.document.Fragments.ForName(sel.Name)
			if def == nil || !c.applies(def.TypeCondition) || !c.included(def.Directives) {
				continue
			}
			c.collect(def.SelectionSet)
		}
	}
}

func (c *fieldCollector) add(f *language.Field) {
	key := f.Alias
	if key == "" {
		key = f.Name
	}
	if i, ok := c.index[key]; ok {
		c.groups[i].Fields = append(c.groups[i].Fields, f)
		return
	}
	c.index[key] = len(c.groups)
	c.groups = append(c.groups, fieldGroup{ResponseName: key, Fields: []*language.Field{f}})
}

// applies reports whether a fragment with the given type condition applies to
// the object type, by name or because it is a possible type of the condition.
func (c *fieldCollector) applies(condition string) bool {
	if condition == "" || condition == c.objectType.Name {
		return true
	}
	return c.state.schema.IsPossibleType(condition, c.objectType.Name)
}

// included evaluates @skip and @include.
func (c *fieldCollector) included(directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && c.condition(d) {
		return false
	}
	if d := directives.ForName("include"); d != nil && !c.condition(d) {
		return false
	}
	return true
}

func (c *fieldCollector) condition(d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v, err := literal(arg.Value, c.state.variableValues)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
