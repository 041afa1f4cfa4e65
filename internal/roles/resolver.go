package roles

import (
	"fmt"
	"sort"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
)

type compiledRole struct {
	id       string
	priority int
	matcher  *CompiledMatcher
}

// Resolve assigns each class in the index to at most one role: the
// highest-priority matching role wins. When two matching roles share
// the same priority the lexicographically smallest role id is chosen,
// which keeps assignment deterministic regardless of map iteration
// order. Classes matching no role stay unassigned.
func Resolve(index *facts.Index, roleConfigs map[string]config.Role) error {
	compiled := make([]compiledRole, 0, len(roleConfigs))
	for id, role := range roleConfigs {
		m, err := CompileMatcher(role.Match)
		if err != nil {
			return fmt.Errorf("role %q: %w", id, err)
		}
		compiled = append(compiled, compiledRole{id: id, priority: role.Priority, matcher: m})
	}
	// Highest priority first, role id as the deterministic tie-break.
	sort.Slice(compiled, func(i, j int) bool {
		if compiled[i].priority != compiled[j].priority {
			return compiled[i].priority > compiled[j].priority
		}
		return compiled[i].id < compiled[j].id
	})

	for i := range index.Classes {
		class := &index.Classes[i]
		for _, role := range compiled {
			if role.matcher.Matches(class) {
				index.AssignRole(class.FqName, role.id)
				break
			}
		}
	}

	// Classes were visited in sorted order, so the per-role lists are
	// already sorted; keep that invariant explicit.
	for id := range index.Roles {
		sort.Strings(index.Roles[id])
	}
	return nil
}
