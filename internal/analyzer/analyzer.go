// Package analyzer resolves a script reference to a fully validated graph
// of script configurations, detecting cycles and cross-package references.
package analyzer

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Analyzer resolves an entry ScriptReference into a validated ScriptConfig
// graph, or a batch of diagnostics.
type Analyzer struct {
	loader ports.ManifestLoader

	rootDir   string
	documents map[string]*ports.ManifestDocument // packageDir -> parsed manifest
	arena     map[string]*domain.ScriptConfig    // reference key -> node
	diags     domain.DiagnosticList
}

// New constructs an Analyzer. rootDir is the package directory the entry
// reference is relative to; it is used only to render bare-name labels.
func New(loader ports.ManifestLoader, rootDir string) *Analyzer {
	return &Analyzer{
		loader:    loader,
		rootDir:   rootDir,
		documents: map[string]*ports.ManifestDocument{},
		arena:     map[string]*domain.ScriptConfig{},
	}
}

// Resolve resolves packageDir:name into a validated ScriptConfig graph.
func (a *Analyzer) Resolve(packageDir, name string) (*domain.ScriptConfig, domain.DiagnosticList) {
	var stack []domain.ScriptReference
	root := a.resolveRef(packageDir, name, stack)
	if a.diags.HasErrors() {
		return nil, a.diags
	}
	return root, a.diags
}

// resolveRef resolves one (packageDir, name) pair, recursing into
// dependencies and the manifests of referenced packages, detecting cycles
// via the path stack. Already-resolved nodes are returned from the arena
// without re-validation, so diagnostics are never duplicated for a shared
// dependency reachable by more than one path.
func (a *Analyzer) resolveRef(packageDir, name string, stack []domain.ScriptReference) *domain.ScriptConfig {
	ref := domain.NewScriptReference(packageDir, name)
	key := ref.Key()

	for _, onStack := range stack {
		if onStack.Key() == key {
			a.reportCycle(stack, ref)
			return nil
		}
	}

	if node, ok := a.arena[key]; ok {
		return node
	}

	doc, err := a.document(packageDir)
	if err != nil {
		return nil
	}

	raw, ok := doc.Scripts[name]
	if !ok {
		a.diags = append(a.diags, domain.Diagnostic{
			Severity: domain.SeverityError,
			Message:  "script \"" + name + "\" not found in " + doc.Path,
			Primary:  doc.WireitLocation,
		})
		return nil
	}

	if scriptsVal, hasScriptsEntry := doc.ScriptsField[name]; !hasScriptsEntry || scriptsVal != "wireit" {
		a.diags = append(a.diags, domain.Diagnostic{
			Severity:     domain.SeverityError,
			Message:      domain.ErrScriptNotWireit.Error() + ": " + name,
			Primary:      doc.ScriptsLocations[name],
			Supplemental: []domain.Location{raw.DeclLoc},
		})
		return nil
	}

	node := &domain.ScriptConfig{Reference: ref, DeclLocation: raw.DeclLoc}
	a.arena[key] = node // insert before recursing so a self/cycle reference finds it on the stack, not a re-resolve

	a.populateScalarFields(node, raw)
	a.populateStringArrays(node, doc, raw)

	childStack := append(append([]domain.ScriptReference{}, stack...), ref)
	a.resolveDependencies(node, doc, raw, childStack)

	if node.Command == "" && len(node.Dependencies) == 0 {
		a.diags = append(a.diags, domain.Diagnostic{
			Severity: domain.SeverityError,
			Message:  domain.ErrCommandOrDependency.Error(),
			Primary:  raw.DeclLoc,
		})
	}

	return node
}

func (a *Analyzer) document(packageDir string) (*ports.ManifestDocument, error) {
	packageDir = filepath.Clean(packageDir)
	if doc, ok := a.documents[packageDir]; ok {
		return doc, nil
	}
	doc, diags := a.loader.Load(packageDir)
	if len(diags) > 0 {
		a.diags = append(a.diags, diags...)
	}
	if doc == nil {
		return nil, zerr.New("manifest load failed")
	}
	a.documents[packageDir] = doc
	return doc, nil
}

func (a *Analyzer) populateScalarFields(node *domain.ScriptConfig, raw ports.RawScript) {
	if raw.Command != nil {
		node.Command = raw.Command.Value
	}

	node.Clean = domain.CleanNever
	if raw.Clean != nil {
		switch v := raw.Clean.Value.(type) {
		case bool:
			if v {
				node.Clean = domain.CleanAlways
			}
		case string:
			if v == "if-file-deleted" {
				node.Clean = domain.CleanIfFileDeleted
			} else {
				a.diags = append(a.diags, domain.Diagnostic{
					Severity: domain.SeverityError,
					Message:  domain.ErrInvalidCleanValue.Error(),
					Primary:  raw.Clean.Loc,
				})
			}
		default:
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  domain.ErrInvalidCleanValue.Error(),
				Primary:  raw.Clean.Loc,
			})
		}
	}

	if raw.Service != nil && raw.Service.Value {
		node.Kind = domain.Service
	} else if node.Command != "" {
		node.Kind = domain.OneShot
	} else {
		node.Kind = domain.NoCommand
	}
}

func (a *Analyzer) populateStringArrays(node *domain.ScriptConfig, doc *ports.ManifestDocument, raw ports.RawScript) {
	node.Files = a.stringList(doc, raw.Name, "files", raw.Files)
	node.Output = a.stringList(doc, raw.Name, "output", raw.Output)
	node.PackageLocks = a.packageLocks(doc, raw.Name, raw.Locks)
}

// stringList validates an array field's elements are all non-empty, trimmed
// strings, reporting one diagnostic per bad element identifying the field
// and index.
func (a *Analyzer) stringList(doc *ports.ManifestDocument, scriptName, fieldName string, field *ports.RawArrayField) []string {
	if field == nil {
		return nil
	}
	out := make([]string, 0, len(field.Elements))
	for i, elem := range field.Elements {
		s, ok := elem.Value.(string)
		if !ok {
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  "wireit." + scriptName + "." + fieldName + "[" + strconv.Itoa(i) + "] must be a string",
				Primary:  elem.Loc,
			})
			continue
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  "wireit." + scriptName + "." + fieldName + "[" + strconv.Itoa(i) + "] " + domain.ErrEmptyStringEntry.Error(),
				Primary:  elem.Loc,
			})
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func (a *Analyzer) packageLocks(doc *ports.ManifestDocument, scriptName string, field *ports.RawArrayField) []string {
	locks := a.stringList(doc, scriptName, "packageLocks", field)
	out := make([]string, 0, len(locks))
	for _, l := range locks {
		if strings.ContainsRune(l, '/') || strings.ContainsRune(l, filepath.Separator) {
			idx := fieldLocationIndex(field, l)
			loc := domain.Location{}
			if idx >= 0 {
				loc = field.Elements[idx].Loc
			}
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  domain.ErrPackageLockIsPath.Error() + ": " + l,
				Primary:  loc,
			})
			continue
		}
		out = append(out, l)
	}
	return out
}

func fieldLocationIndex(field *ports.RawArrayField, value string) int {
	for i, elem := range field.Elements {
		if s, ok := elem.Value.(string); ok && strings.TrimSpace(s) == value {
			return i
		}
	}
	return -1
}

// resolveDependencies resolves every dependency string on raw, either
// locally or across a package boundary, wiring DependencyEdge and
// ReverseDependencies both ways.
func (a *Analyzer) resolveDependencies(node *domain.ScriptConfig, doc *ports.ManifestDocument, raw ports.RawScript, stack []domain.ScriptReference) {
	if raw.Deps == nil {
		return
	}

	seen := map[string]bool{}
	for _, elem := range raw.Deps.Elements {
		s, ok := elem.Value.(string)
		if !ok {
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  domain.ErrNotAString.Error() + ": wireit." + raw.Name + ".dependencies",
				Primary:  elem.Loc,
			})
			continue
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  domain.ErrEmptyStringEntry.Error() + ": wireit." + raw.Name + ".dependencies",
				Primary:  elem.Loc,
			})
			continue
		}
		if seen[trimmed] {
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  domain.ErrDuplicateDependency.Error() + ": " + trimmed,
				Primary:  elem.Loc,
			})
			continue
		}
		seen[trimmed] = true

		depPackageDir, depName, selfRef := resolveDependencyString(doc.PackageDir, trimmed)
		if selfRef {
			a.diags = append(a.diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  domain.ErrSelfDependency.Error() + ": " + trimmed,
				Primary:  elem.Loc,
			})
			continue
		}

		child := a.resolveRef(depPackageDir, depName, stack)
		if child == nil {
			continue
		}
		node.Dependencies = append(node.Dependencies, domain.DependencyEdge{
			Child:    child,
			RawValue: trimmed,
			Location: elem.Loc,
		})
		child.ReverseDependencies = append(child.ReverseDependencies, node)
	}
}

// resolveDependencyString splits a dependency string into its target
// package directory and script name. A string with no colon resolves
// locally, in currentPackageDir. A string of the form
// "<relative-path>:<script-name>" resolves relativePath against
// currentPackageDir; selfRef reports whether that resolves back to
// currentPackageDir.
func resolveDependencyString(currentPackageDir, dep string) (packageDir, name string, selfRef bool) {
	idx := strings.IndexByte(dep, ':')
	if idx < 0 {
		return currentPackageDir, dep, false
	}
	relPath, scriptName := dep[:idx], dep[idx+1:]
	resolved := filepath.Clean(filepath.Join(currentPackageDir, relPath))
	if resolved == filepath.Clean(currentPackageDir) {
		return resolved, scriptName, true
	}
	return resolved, scriptName, false
}

