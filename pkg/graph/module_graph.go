package graph

import (
	"sort"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// EdgeKind distinguishes how one module pulls in another.
type EdgeKind int

const (
	// ImportEdge covers import statements, including side-effect imports.
	ImportEdge EdgeKind = iota
	// ReExportEdge covers `export ... from` statements.
	ReExportEdge
)

func (k EdgeKind) String() string {
	switch k {
	case ImportEdge:
		return "import"
	case ReExportEdge:
		return "re-export"
	default:
		return "unknown"
	}
}

// ModuleNode is one file in the dependency graph. Paths are absolute.
type ModuleNode struct {
	Path      string
	Imports   []*ModuleNode
	Importers []*ModuleNode
	// Packages lists the bare specifiers the file imports, deduplicated.
	Packages []string
}

// ModuleEdge records one module depending on another.
type ModuleEdge struct {
	From *ModuleNode
	To   *ModuleNode
	Kind EdgeKind
}

// ModuleGraph maps the import relationships between the files of a
// project. Node keys are absolute file paths.
type ModuleGraph struct {
	Nodes map[string]*ModuleNode
	Edges map[string][]*ModuleEdge
}

// NewModuleGraph returns an empty graph.
func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{
		Nodes: make(map[string]*ModuleNode),
		Edges: make(map[string][]*ModuleEdge),
	}
}

// Build assembles the module graph from every loaded file's import and
// export statements. Relative specifiers go through the project's module
// resolution; bare specifiers are recorded as package dependencies.
// Specifiers that resolve to nothing are skipped.
func Build(p *project.Project) *ModuleGraph {
	g := NewModuleGraph()
	for _, path := range p.ListFiles() {
		sf, ok := p.File(path)
		if !ok {
			continue
		}
		node := g.getOrCreateNode(path)
		for _, ref := range analysis.ScanModuleRefs(sf) {
			if !project.IsRelativeSpecifier(ref.Specifier) {
				node.addPackage(ref.Specifier)
				continue
			}
			resolved, ok := p.ResolveImport(path, ref.Specifier)
			if !ok {
				continue
			}
			kind := ImportEdge
			if ref.IsExport {
				kind = ReExportEdge
			}
			g.AddEdge(path, resolved, kind)
		}
	}
	return g
}

// AddEdge records that from depends on to. Duplicate edges of the same
// kind are ignored.
func (g *ModuleGraph) AddEdge(from, to string, kind EdgeKind) {
	fromNode := g.getOrCreateNode(from)
	toNode := g.getOrCreateNode(to)

	for _, edge := range g.Edges[from] {
		if edge.To.Path == to && edge.Kind == kind {
			return
		}
	}

	g.Edges[from] = append(g.Edges[from], &ModuleEdge{
		From: fromNode,
		To:   toNode,
		Kind: kind,
	})
	fromNode.Imports = appendNode(fromNode.Imports, toNode)
	toNode.Importers = appendNode(toNode.Importers, fromNode)
}

// Dependencies returns the files a module directly imports.
func (g *ModuleGraph) Dependencies(path string) []*ModuleNode {
	if node, ok := g.Nodes[path]; ok {
		return node.Imports
	}
	return nil
}

// Dependents returns the files that directly import a module.
func (g *ModuleGraph) Dependents(path string) []*ModuleNode {
	if node, ok := g.Nodes[path]; ok {
		return node.Importers
	}
	return nil
}

// TransitiveDependencies returns every file reachable from path through
// import edges, in depth-first order without duplicates.
func (g *ModuleGraph) TransitiveDependencies(path string) []*ModuleNode {
	visited := map[string]bool{path: true}
	var result []*ModuleNode

	var visit func(string)
	visit = func(from string) {
		node, ok := g.Nodes[from]
		if !ok {
			return
		}
		for _, dep := range node.Imports {
			if visited[dep.Path] {
				continue
			}
			visited[dep.Path] = true
			result = append(result, dep)
			visit(dep.Path)
		}
	}

	visit(path)
	return result
}

// TransitiveDependents returns every file that reaches path through
// import edges, in depth-first order without duplicates.
func (g *ModuleGraph) TransitiveDependents(path string) []*ModuleNode {
	visited := map[string]bool{path: true}
	var result []*ModuleNode

	var visit func(string)
	visit = func(to string) {
		node, ok := g.Nodes[to]
		if !ok {
			return
		}
		for _, importer := range node.Importers {
			if visited[importer.Path] {
				continue
			}
			visited[importer.Path] = true
			result = append(result, importer)
			visit(importer.Path)
		}
	}

	visit(path)
	return result
}

// PackageDependencies returns every bare specifier imported anywhere in
// the project, sorted.
func (g *ModuleGraph) PackageDependencies() []string {
	seen := make(map[string]bool)
	var packages []string
	for _, node := range g.Nodes {
		for _, pkg := range node.Packages {
			if !seen[pkg] {
				seen[pkg] = true
				packages = append(packages, pkg)
			}
		}
	}
	sort.Strings(packages)
	return packages
}

// DetectCycles reports every import cycle in the graph. Each cycle lists
// the files in import order, starting from the first file revisited.
func (g *ModuleGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var dfs func(string, []string) []string
	dfs = func(path string, trail []string) []string {
		visited[path] = true
		recStack[path] = true
		trail = append(trail, path)

		for _, edge := range g.Edges[path] {
			next := edge.To.Path
			if !visited[next] {
				if cycle := dfs(next, trail); cycle != nil {
					return cycle
				}
			} else if recStack[next] {
				for i, p := range trail {
					if p == next {
						return trail[i:]
					}
				}
			}
		}

		recStack[path] = false
		return nil
	}

	for _, path := range g.sortedPaths() {
		if !visited[path] {
			if cycle := dfs(path, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}
	return cycles
}

// TopologicalSort orders modules so every file comes after the files it
// imports. Fails when the graph has an import cycle.
func (g *ModuleGraph) TopologicalSort() ([]*ModuleNode, error) {
	var result []*ModuleNode
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var visit func(string) error
	visit = func(path string) error {
		if recStack[path] {
			return types.NewError(types.CyclicDependency, "import cycle involving %s", path)
		}
		if visited[path] {
			return nil
		}
		visited[path] = true
		recStack[path] = true

		if node, ok := g.Nodes[path]; ok {
			for _, dep := range node.Imports {
				if err := visit(dep.Path); err != nil {
					return err
				}
			}
			result = append(result, node)
		}

		recStack[path] = false
		return nil
	}

	for _, path := range g.sortedPaths() {
		if !visited[path] {
			if err := visit(path); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (g *ModuleGraph) getOrCreateNode(path string) *ModuleNode {
	if node, ok := g.Nodes[path]; ok {
		return node
	}
	node := &ModuleNode{Path: path}
	g.Nodes[path] = node
	return node
}

func (g *ModuleGraph) sortedPaths() []string {
	paths := make([]string, 0, len(g.Nodes))
	for path := range g.Nodes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (n *ModuleNode) addPackage(spec string) {
	for _, existing := range n.Packages {
		if existing == spec {
			return
		}
	}
	n.Packages = append(n.Packages, spec)
}

func appendNode(nodes []*ModuleNode, node *ModuleNode) []*ModuleNode {
	for _, existing := range nodes {
		if existing == node {
			return nodes
		}
	}
	return append(nodes, node)
}
