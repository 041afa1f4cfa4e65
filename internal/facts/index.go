package facts

import (
	"sort"
	"strings"
)

// Index is the aggregate of all facts extracted by one scan, plus the
// role assignment computed afterwards. It is built once per scan and
// read-only for the rule engine; concurrent scans must each own their
// own Index.
type Index struct {
	Classes      []ClassFact      `json:"classes"`
	Methods      []MethodFact     `json:"methods"`
	Fields       []FieldFact      `json:"fields"`
	Dependencies []DependencyFact `json:"dependencies"`

	// ClassToRole maps a class FQN to its assigned role id. A class
	// matching no role is absent from the map.
	ClassToRole map[string]string `json:"class_to_role,omitempty"`
	// Roles maps a role id to the FQNs of the classes assigned to it.
	Roles map[string][]string `json:"roles,omitempty"`

	byFqn      map[string]*ClassFact
	methodsOf  map[string][]MethodFact
	fieldsOf   map[string][]FieldFact
	outEdges   map[string][]DependencyFact
	inEdges    map[string][]DependencyFact
	selfEdges  []DependencyFact
	normalized bool
}

// NewIndex returns an empty index ready to be populated by an extractor.
func NewIndex() *Index {
	return &Index{
		ClassToRole: map[string]string{},
		Roles:       map[string][]string{},
	}
}

// Merge appends all facts of other into the index. Lookup maps are
// rebuilt by the next Normalize call.
func (ix *Index) Merge(other *Index) {
	if other == nil {
		return
	}
	ix.Classes = append(ix.Classes, other.Classes...)
	ix.Methods = append(ix.Methods, other.Methods...)
	ix.Fields = append(ix.Fields, other.Fields...)
	ix.Dependencies = append(ix.Dependencies, other.Dependencies...)
	ix.normalized = false
}

// Normalize sorts every fact list by its stable key, drops blank-target
// dependency edges and deduplicates edges by their composite key.
// Self-loops are moved out of the edge lists, so graph rules never see
// them, but kept reachable through SelfDependencies because a member
// referenced only within its own class is still referenced. Findings
// and fingerprints must be reproducible across runs, so every consumer
// relies on this order.
func (ix *Index) Normalize() {
	sort.Slice(ix.Classes, func(i, j int) bool { return ix.Classes[i].FqName < ix.Classes[j].FqName })

	sort.Slice(ix.Methods, func(i, j int) bool { return ix.Methods[i].Key() < ix.Methods[j].Key() })
	sort.Slice(ix.Fields, func(i, j int) bool { return ix.Fields[i].Key() < ix.Fields[j].Key() })

	selfSeen := make(map[string]struct{}, len(ix.selfEdges))
	for _, d := range ix.selfEdges {
		selfSeen[d.Key()] = struct{}{}
	}
	seen := make(map[string]struct{}, len(ix.Dependencies))
	kept := ix.Dependencies[:0]
	for _, d := range ix.Dependencies {
		if d.To == "" || strings.TrimSpace(d.To) == "" {
			continue
		}
		if d.From == d.To {
			if _, ok := selfSeen[d.Key()]; !ok {
				selfSeen[d.Key()] = struct{}{}
				ix.selfEdges = append(ix.selfEdges, d)
			}
			continue
		}
		key := d.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, d)
	}
	ix.Dependencies = kept
	sort.Slice(ix.Dependencies, func(i, j int) bool { return ix.Dependencies[i].Key() < ix.Dependencies[j].Key() })
	sort.Slice(ix.selfEdges, func(i, j int) bool { return ix.selfEdges[i].Key() < ix.selfEdges[j].Key() })

	ix.rebuildLookups()
	ix.normalized = true
}

func (ix *Index) rebuildLookups() {
	ix.byFqn = make(map[string]*ClassFact, len(ix.Classes))
	for i := range ix.Classes {
		ix.byFqn[ix.Classes[i].FqName] = &ix.Classes[i]
	}
	ix.methodsOf = make(map[string][]MethodFact)
	for _, m := range ix.Methods {
		ix.methodsOf[m.Owner] = append(ix.methodsOf[m.Owner], m)
	}
	ix.fieldsOf = make(map[string][]FieldFact)
	for _, f := range ix.Fields {
		ix.fieldsOf[f.Owner] = append(ix.fieldsOf[f.Owner], f)
	}
	ix.outEdges = make(map[string][]DependencyFact)
	ix.inEdges = make(map[string][]DependencyFact)
	for _, d := range ix.Dependencies {
		ix.outEdges[d.From] = append(ix.outEdges[d.From], d)
		ix.inEdges[d.To] = append(ix.inEdges[d.To], d)
	}
}

// Class returns the class fact for fqn, or nil if unknown.
func (ix *Index) Class(fqn string) *ClassFact {
	if ix.byFqn == nil {
		ix.rebuildLookups()
	}
	return ix.byFqn[fqn]
}

// MethodsOf returns the methods declared by the given class, in stable order.
func (ix *Index) MethodsOf(fqn string) []MethodFact {
	if ix.methodsOf == nil {
		ix.rebuildLookups()
	}
	return ix.methodsOf[fqn]
}

// FieldsOf returns the fields declared by the given class, in stable order.
func (ix *Index) FieldsOf(fqn string) []FieldFact {
	if ix.fieldsOf == nil {
		ix.rebuildLookups()
	}
	return ix.fieldsOf[fqn]
}

// OutEdges returns the dependency edges leaving the given class.
func (ix *Index) OutEdges(fqn string) []DependencyFact {
	if ix.outEdges == nil {
		ix.rebuildLookups()
	}
	return ix.outEdges[fqn]
}

// InEdges returns the dependency edges pointing at the given type.
func (ix *Index) InEdges(fqn string) []DependencyFact {
	if ix.inEdges == nil {
		ix.rebuildLookups()
	}
	return ix.inEdges[fqn]
}

// SelfDependencies returns the deduplicated self-loop edges that
// Normalize removed from the dependency list, in stable order.
func (ix *Index) SelfDependencies() []DependencyFact {
	return ix.selfEdges
}

// HasClass reports whether fqn was extracted in this scan, i.e. whether
// it is project-internal rather than an external library type.
func (ix *Index) HasClass(fqn string) bool {
	return ix.Class(fqn) != nil
}

// RoleOf returns the role assigned to the class, if any.
func (ix *Index) RoleOf(fqn string) (string, bool) {
	role, ok := ix.ClassToRole[fqn]
	return role, ok
}

// AssignRole records a role assignment. Called by the role resolver only.
func (ix *Index) AssignRole(fqn, role string) {
	if ix.ClassToRole == nil {
		ix.ClassToRole = map[string]string{}
	}
	if ix.Roles == nil {
		ix.Roles = map[string][]string{}
	}
	ix.ClassToRole[fqn] = role
	ix.Roles[role] = append(ix.Roles[role], fqn)
}
