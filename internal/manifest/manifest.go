// Package manifest reads a package manifest file and parses its wireit
// stanza, preserving byte offsets so the analyzer can render caret-style
// diagnostics.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"go.trai.ch/zerr"
)

// FileName is the manifest filename looked up in each package directory.
const FileName = "package.json"

// Loader implements ports.ManifestLoader over the JSON manifest format.
type Loader struct{}

// NewLoader constructs a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses <packageDir>/package.json.
func (l *Loader) Load(packageDir string) (*ports.ManifestDocument, domain.DiagnosticList) {
	path := filepath.Join(packageDir, FileName)
	// #nosec G304 -- path is constructed from a caller-resolved package directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.DiagnosticList{{
			Severity: domain.SeverityError,
			Message:  zerr.Wrap(err, domain.ErrManifestMissing.Error()).Error(),
			Primary:  domain.Location{File: path},
		}}
	}

	root, err := parseDocument(data)
	if err != nil {
		return nil, domain.DiagnosticList{{
			Severity: domain.SeverityError,
			Message:  zerr.Wrap(err, domain.ErrManifestInvalidJSON.Error()).Error(),
			Primary:  domain.Location{File: path},
		}}
	}

	doc := &ports.ManifestDocument{
		PackageDir:       packageDir,
		Path:             path,
		Scripts:          map[string]ports.RawScript{},
		ScriptsField:     map[string]string{},
		ScriptsLocations: map[string]domain.Location{},
	}

	if root.kind != kindObject {
		return nil, domain.DiagnosticList{{
			Severity: domain.SeverityError,
			Message:  "manifest must be a JSON object",
			Primary:  loc(path, root),
		}}
	}

	if scriptsVal, ok := root.object["scripts"]; ok && scriptsVal.kind == kindObject {
		for _, name := range scriptsVal.order {
			entry := scriptsVal.object[name]
			if entry.kind == kindString {
				doc.ScriptsField[name] = entry.str
				doc.ScriptsLocations[name] = loc(path, entry)
			}
		}
	}

	wireitVal, hasWireit := root.object["wireit"]
	if !hasWireit {
		return doc, nil
	}

	doc.WireitLocation = loc(path, wireitVal)

	if wireitVal.kind != kindObject {
		return nil, domain.DiagnosticList{{
			Severity: domain.SeverityError,
			Message:  domain.ErrWireitNotAMapping.Error(),
			Primary:  loc(path, wireitVal),
		}}
	}

	var diags domain.DiagnosticList
	for _, name := range wireitVal.order {
		entryVal := wireitVal.object[name]
		raw, entryDiags := parseScriptEntry(path, name, entryVal)
		diags = append(diags, entryDiags...)
		doc.Scripts[name] = raw
	}

	return doc, diags
}

func parseScriptEntry(path, name string, v value) (ports.RawScript, domain.DiagnosticList) {
	raw := ports.RawScript{Name: name, DeclLoc: loc(path, v)}
	if v.kind != kindObject {
		return raw, domain.DiagnosticList{{
			Severity: domain.SeverityError,
			Message:  "script configuration for \"" + name + "\" must be an object",
			Primary:  loc(path, v),
		}}
	}

	var diags domain.DiagnosticList

	if cmd, ok := v.object["command"]; ok {
		if cmd.kind != kindString {
			diags = append(diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  "wireit." + name + ".command must be a string",
				Primary:  loc(path, cmd),
			})
		} else {
			raw.Command = &ports.RawField[string]{Value: cmd.str, Loc: loc(path, cmd)}
		}
	}

	if svc, ok := v.object["service"]; ok {
		if svc.kind != kindBool {
			diags = append(diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  "wireit." + name + ".service must be a boolean",
				Primary:  loc(path, svc),
			})
		} else {
			raw.Service = &ports.RawField[bool]{Value: svc.boolean, Loc: loc(path, svc)}
		}
	}

	if clean, ok := v.object["clean"]; ok {
		raw.Clean = &ports.RawField[any]{Value: cleanRawValue(clean), Loc: loc(path, clean)}
	}

	arrDiags := func(field string, dst **ports.RawArrayField, key string) {
		val, ok := v.object[key]
		if !ok {
			return
		}
		arr, d := parseArrayField(path, name, field, val)
		diags = append(diags, d...)
		*dst = arr
	}
	arrDiags("files", &raw.Files, "files")
	arrDiags("output", &raw.Output, "output")
	arrDiags("packageLocks", &raw.Locks, "packageLocks")
	arrDiags("dependencies", &raw.Deps, "dependencies")

	return raw, diags
}

func cleanRawValue(v value) any {
	switch v.kind {
	case kindBool:
		return v.boolean
	case kindString:
		return v.str
	default:
		return nil
	}
}

func parseArrayField(path, scriptName, fieldName string, v value) (*ports.RawArrayField, domain.DiagnosticList) {
	if v.kind != kindArray {
		return nil, domain.DiagnosticList{{
			Severity: domain.SeverityError,
			Message:  "wireit." + scriptName + "." + fieldName + " must be an array",
			Primary:  loc(path, v),
		}}
	}
	field := &ports.RawArrayField{Loc: loc(path, v)}
	for _, elem := range v.array {
		var raw any
		switch elem.kind {
		case kindString:
			raw = elem.str
		case kindBool:
			raw = elem.boolean
		case kindNumber:
			raw = elem.number
		}
		field.Elements = append(field.Elements, ports.RawField[any]{Value: raw, Loc: loc(path, elem)})
	}
	return field, nil
}

func loc(path string, v value) domain.Location {
	return domain.Location{File: path, Offset: v.offset, Length: v.length}
}
