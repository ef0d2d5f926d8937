package codegen

import "strings"

// exportIdent turns a declared protocol name (arbitrary casing, possibly
// snake_case or space-separated) into an exported Go identifier. Unlike
// hash.Name, this never touches the wire: it is purely for the emitted
// source's readability, which is why it lives in codegen and not idl.
func exportIdent(s string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upperNext = true
		case upperNext:
			b.WriteRune(toUpper(r))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// goFieldName exports a struct field or argument name.
func goFieldName(s string) string { return exportIdent(s) }

// variantConst builds the Go constant name for one enum variant, prefixed
// with the enum's own exported name to avoid collisions across enums
// (Go has no per-type constant namespace).
func variantConst(enumName, variant string) string {
	return exportIdent(enumName) + exportIdent(variant)
}

// memberIdent exports a signal/method name for use in a Go function or
// type name (e.g. "setTransform" -> "SetTransform").
func memberIdent(name string) string { return exportIdent(name) }
