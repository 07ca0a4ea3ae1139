package links

// LinkDiff classifies the links of a post revision against the
// previously recorded set. The three sets partition previous ∪ current.
// It is an ephemeral computation result and is never persisted.
type LinkDiff struct {
	Added     map[string]struct{}
	Removed   map[string]struct{}
	Unchanged map[string]struct{}
}

// Diff compares a previously recorded link set against a freshly
// extracted one. Pure and order-independent; an empty previous set
// classifies every current link as added.
func Diff(previous, current map[string]struct{}) LinkDiff {
	d := LinkDiff{
		Added:     make(map[string]struct{}),
		Removed:   make(map[string]struct{}),
		Unchanged: make(map[string]struct{}),
	}

	for target := range current {
		if _, ok := previous[target]; ok {
			d.Unchanged[target] = struct{}{}
		} else {
			d.Added[target] = struct{}{}
		}
	}
	for target := range previous {
		if _, ok := current[target]; !ok {
			d.Removed[target] = struct{}{}
		}
	}

	return d
}
