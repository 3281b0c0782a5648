// File: internal/browser/element/attributes.go
package element

import (
	"slices"
	"strings"
)

// HTMLNamespace is the XHTML namespace URI carried by HTML elements.
const HTMLNamespace = "http://www.w3.org/1999/xhtml"

// xulNamespaceMarker identifies elements from the host's internal UI markup.
const xulNamespaceMarker = "there.is.only.xul"

// booleanAttributes lists the boolean content attributes per HTML element.
var booleanAttributes = map[string][]string{
	"audio":    {"autoplay", "controls", "loop", "muted"},
	"button":   {"autofocus", "disabled", "formnovalidate"},
	"details":  {"open"},
	"dialog":   {"open"},
	"fieldset": {"disabled"},
	"form":     {"novalidate"},
	"iframe":   {"allowfullscreen"},
	"img":      {"ismap"},
	"input":    {"autofocus", "checked", "disabled", "formnovalidate", "multiple", "readonly", "required"},
	"keygen":   {"autofocus", "disabled"},
	"menuitem": {"checked", "default", "disabled"},
	"object":   {"typemustmatch"},
	"ol":       {"reversed"},
	"optgroup": {"disabled"},
	"option":   {"disabled", "selected"},
	"script":   {"async", "defer"},
	"select":   {"autofocus", "disabled", "multiple", "required"},
	"textarea": {"autofocus", "disabled", "readonly", "required"},
	"track":    {"default"},
	"video":    {"autoplay", "controls", "loop", "muted"},
}

// IsBooleanAttribute reports whether attr is a boolean attribute of el.
// hidden and itemscope apply to every HTML element except custom elements.
func IsBooleanAttribute(el Element, attr string) bool {
	if el.NamespaceURI() != HTMLNamespace {
		return false
	}
	local := el.LocalName()
	if (attr == "hidden" || attr == "itemscope") && !strings.Contains(local, "-") {
		return true
	}
	return slices.Contains(booleanAttributes[local], attr)
}

// IsXULElement reports whether el belongs to the host's internal UI namespace.
func IsXULElement(el Element) bool {
	return strings.Contains(el.NamespaceURI(), xulNamespaceMarker)
}
