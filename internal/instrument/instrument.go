// Package instrument holds the scripts injected into the target page: the stealth patch,
// the secret capture hook, and the expressions used to read the capture buffer back out.
package instrument

import (
	_ "embed"
	"strings"
)

// BufferName is the page-global array the capture hook appends to.
const BufferName = "__captures"

// InstallFlag is the page-global guard that makes the capture hook idempotent.
const InstallFlag = "__secretHookInstalled"

var (
	//go:embed js/stealth.js
	stealthJS string

	//go:embed js/hook.js
	hookJS string

	//go:embed js/extract.js
	extractJS string

	//go:embed js/ready.js
	readyJS string
)

// Stealth returns the anti-detection patch. It must run before any page script.
func Stealth() string {
	return stealthJS
}

// Hook returns the capture hook that traps the first write of "secret" on every object.
func Hook() string {
	return hookJS
}

// Extract returns a self-invoking expression that evaluates to the JSON text of the
// capture buffer, or "[]" if the buffer cannot be serialized.
func Extract() string {
	return extractJS
}

// BufferReady returns a function expression that reports whether the capture buffer
// holds at least one record.
func BufferReady() string {
	return strings.TrimSpace(readyJS)
}

// OnNewDocument lists the scripts to register before navigation, in install order.
func OnNewDocument() []Script {
	return []Script{
		{Name: "stealth", Source: stealthJS},
		{Name: "hook", Source: hookJS},
	}
}

// Script is a named piece of page instrumentation.
type Script struct {
	Name   string
	Source string
}
