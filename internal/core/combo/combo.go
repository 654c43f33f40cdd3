// Package combo enumerates the agent-population combinations an experiment
// is trialled over, and resolves placeholder values for one combination.
package combo

import (
	"github.com/crucible-labs/crucible/internal/core/model"
)

// DefaultMaxVariants bounds exhaustive enumeration. The cartesian product
// is exponential in the number of roles, which is the point of an
// exhaustive trial, but a runaway configuration should fail fast instead
// of allocating without bound.
const DefaultMaxVariants = 512

// Generate produces the population variants to trial. With exhaustive
// false, the supplied counts are the single variant. With exhaustive true,
// each role's count ranges over 1..max inclusive and the full cartesian
// product is enumerated: role order outer, count ascending inner, so the
// output ordering is deterministic for a given input list.
//
// maxVariants caps the exhaustive product; zero means DefaultMaxVariants.
func Generate(pairs []model.RoleCount, exhaustive bool, maxVariants int) ([][]model.RoleCount, error) {
	for _, pair := range pairs {
		if pair.Count < 1 {
			return nil, model.NewValidationError("role %q has non-positive count %d", pair.Role, pair.Count)
		}
	}
	if !exhaustive {
		return [][]model.RoleCount{clone(pairs)}, nil
	}

	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	total := 1
	for _, pair := range pairs {
		total *= pair.Count
		if total > maxVariants {
			return nil, model.NewValidationError(
				"exhaustive enumeration exceeds %d variants; raise the cap or lower the counts", maxVariants)
		}
	}

	result := make([][]model.RoleCount, 0, total)
	current := make([]model.RoleCount, 0, len(pairs))
	enumerate(pairs, current, 0, &result)
	return result, nil
}

// enumerate walks the product with an explicit accumulator; recursion depth
// is the number of roles, never the number of variants.
func enumerate(pairs []model.RoleCount, current []model.RoleCount, index int, result *[][]model.RoleCount) {
	if index == len(pairs) {
		*result = append(*result, clone(current))
		return
	}
	for count := 1; count <= pairs[index].Count; count++ {
		current = append(current, model.RoleCount{Role: pairs[index].Role, Count: count})
		enumerate(pairs, current, index+1, result)
		current = current[:len(current)-1]
	}
}

func clone(pairs []model.RoleCount) []model.RoleCount {
	return append([]model.RoleCount(nil), pairs...)
}

// ComposeValues resolves every placeholder in scope for one combination:
// role-owned placeholders against that role's agent count, experiment-scope
// placeholders against the total agent count or the number of roles.
func ComposeValues(exp *model.Experiment, variant []model.RoleCount) (map[string]string, error) {
	values := make(map[string]string)
	total := 0
	for _, pair := range variant {
		role := exp.Role(pair.Role)
		if role == nil {
			return nil, model.NewValidationError("combination names unknown role %q", pair.Role)
		}
		total += pair.Count
		for _, p := range role.Placeholders {
			values[p.Tag] = p.Resolve(pair.Count)
		}
	}
	for _, p := range exp.Placeholders {
		switch p.Scope {
		case model.ScopeRoles:
			values[p.Tag] = p.Resolve(len(variant))
		case model.ScopeAgents:
			values[p.Tag] = p.Resolve(total)
		default:
			return nil, model.NewValidationError("experiment placeholder %s has role scope %q", p.Tag, p.Scope)
		}
	}
	return values, nil
}
