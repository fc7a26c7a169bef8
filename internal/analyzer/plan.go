package analyzer

import "github.com/wireit-go/wireit/internal/core/domain"

// Flatten walks root's resolved dependency graph and returns its scripts in
// dependency-then-dependent order, alongside each script's direct
// dependency labels, both keyed by label under rootDir. It is used to
// announce the resolved plan to a Renderer before execution begins.
func Flatten(root *domain.ScriptConfig, rootDir string) (order []string, deps map[string][]string) {
	deps = map[string][]string{}
	visited := map[string]bool{}

	var walk func(node *domain.ScriptConfig)
	walk = func(node *domain.ScriptConfig) {
		key := node.Reference.Key()
		if visited[key] {
			return
		}
		visited[key] = true

		for _, edge := range node.Dependencies {
			walk(edge.Child)
		}

		label := node.Label(rootDir)
		childLabels := make([]string, 0, len(node.Dependencies))
		for _, edge := range node.Dependencies {
			childLabels = append(childLabels, edge.Child.Label(rootDir))
		}
		deps[label] = childLabels
		order = append(order, label)
	}
	walk(root)
	return order, deps
}
