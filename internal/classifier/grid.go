package classifier

import "sort"

// Grid expands base params with every combination of the grid values.
// Keys vary in sorted order, the last key fastest. An empty grid yields
// base alone.
func Grid(base Params, grid map[string][]interface{}) []Params {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []Params{copyParams(base)}
	for _, k := range keys {
		next := make([]Params, 0, len(out)*len(grid[k]))
		for _, p := range out {
			for _, v := range grid[k] {
				q := copyParams(p)
				q[k] = v
				next = append(next, q)
			}
		}
		out = next
	}
	return out
}

func copyParams(p Params) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}
