// Package compat compares a patched class definition against the class the
// host already has loaded and reports the edits live patching cannot honor.
package compat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/host"
)

var log = commonlog.GetLogger("liveedit.compat")

// Kind classifies an UnsupportedChange.
type Kind string

const (
	AddedMethod   Kind = "ADDED_METHOD"
	RemovedMethod Kind = "REMOVED_METHOD"
	AddedClass    Kind = "ADDED_CLASS"
)

// UnsupportedChange is one structural edit found by Diff. MethodName and
// Descriptor are empty for AddedClass; LineNumber is 0 when unknown.
type UnsupportedChange struct {
	Kind       Kind   `json:"kind" cbor:"1,keyasint"`
	ClassName  string `json:"className" cbor:"2,keyasint"`
	MethodName string `json:"methodName,omitempty" cbor:"3,keyasint,omitempty"`
	Descriptor string `json:"descriptor,omitempty" cbor:"4,keyasint,omitempty"`
	FileName   string `json:"fileName,omitempty" cbor:"5,keyasint,omitempty"`
	LineNumber int    `json:"lineNumber,omitempty" cbor:"6,keyasint,omitempty"`
}

func (c UnsupportedChange) String() string {
	s := string(c.Kind) + " " + c.ClassName
	if c.MethodName != "" {
		s += "->" + c.MethodName + c.Descriptor
	}
	switch {
	case c.FileName != "" && c.LineNumber > 0:
		s += fmt.Sprintf(" (%s:%d)", c.FileName, c.LineNumber)
	case c.FileName != "":
		s += " (" + c.FileName + ")"
	}
	return s
}

func (c UnsupportedChange) key() string { return c.MethodName + c.Descriptor }

// synthetic reports whether a method looks compiler-generated. Lambda
// bodies, accessors and bridge helpers all carry a '$' in their name.
func synthetic(name string) bool {
	return strings.Contains(name, "$")
}

// Diff compares def against the loaded original. Methods and constructors
// present in original but missing from def are RemovedMethod; methods new
// in def are AddedMethod unless they look synthetic. Static initializers
// are never compared.
func Diff(def *classfile.Definition, original host.Type) []UnsupportedChange {
	have := make(map[string]bool)
	for _, m := range original.DeclaredMethods() {
		if m.Name == "<clinit>" || m.Synthetic || synthetic(m.Name) {
			continue
		}
		have[m.Name+m.Descriptor] = true
	}
	patched := make(map[string]bool, len(def.Methods))
	for _, m := range def.Methods {
		patched[m.Key()] = true
	}

	var removed, added []UnsupportedChange
	for _, m := range original.DeclaredMethods() {
		key := m.Name + m.Descriptor
		if !have[key] || patched[key] {
			continue
		}
		removed = append(removed, UnsupportedChange{
			Kind:       RemovedMethod,
			ClassName:  def.Name,
			MethodName: m.Name,
			Descriptor: m.Descriptor,
			FileName:   def.SourceFile,
		})
	}
	for _, m := range def.Methods {
		if m.Name == "<clinit>" || have[m.Key()] || synthetic(m.Name) || m.AccessFlags&classfile.AccSynthetic != 0 {
			continue
		}
		added = append(added, UnsupportedChange{
			Kind:       AddedMethod,
			ClassName:  def.Name,
			MethodName: m.Name,
			Descriptor: m.Descriptor,
			FileName:   def.SourceFile,
			LineNumber: m.FirstLine(),
		})
	}
	sortByKey(removed)
	sortByKey(added)
	return append(removed, added...)
}

func sortByKey(changes []UnsupportedChange) {
	sort.Slice(changes, func(i, j int) bool { return changes[i].key() < changes[j].key() })
}

// Validator resolves originals through Types.
type Validator struct {
	Types host.TypeResolver
}

// Validate diffs def against the loaded class of the same name. A class the
// resolver does not know is reported as a single AddedClass.
func (v Validator) Validate(def *classfile.Definition) []UnsupportedChange {
	original, err := v.Types.ResolveType(def.Name)
	if err != nil {
		log.Infof("%s is not loaded: %s", def.Name, err)
		return []UnsupportedChange{{Kind: AddedClass, ClassName: def.Name, FileName: def.SourceFile}}
	}
	changes := Diff(def, original)
	for _, c := range changes {
		log.Infof("unsupported change: %s", c)
	}
	return changes
}

// Check is Validate wrapped in a Report.
func (v Validator) Check(def *classfile.Definition) Report {
	return Report{ClassName: def.Name, Changes: v.Validate(def)}
}
