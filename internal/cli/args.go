// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits raw arguments into flags and positionals. It accepts
// --flag value, --flag=value, -f value and bare boolean flags. Flags listed
// as boolean never consume the next argument, and "--" ends flag parsing.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	aliases    map[string]string
}

// ParserSpec declares which flags are boolean and which short names map to
// long ones.
type ParserSpec struct {
	Bools   []string
	Aliases map[string]string
}

// NewArgParser parses raw according to spec.
func NewArgParser(raw []string, spec ParserSpec) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
		aliases:   spec.Aliases,
	}
	isBool := make(map[string]bool, len(spec.Bools))
	for _, b := range spec.Bools {
		isBool[b] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := p.canonical(strings.TrimLeft(arg, "-"))
		if k, v, ok := strings.Cut(name, "="); ok {
			k = p.canonical(k)
			if isBool[k] {
				b, err := strconv.ParseBool(v)
				p.boolFlags[k] = err == nil && b
			} else {
				p.flags[k] = v
			}
			continue
		}

		if isBool[name] {
			p.boolFlags[name] = true
			continue
		}
		if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		// A value flag with nothing after it is treated as a switch.
		p.boolFlags[name] = true
	}
	return p
}

func (p *ArgParser) canonical(name string) string {
	if long, ok := p.aliases[name]; ok {
		return long
	}
	return name
}

// Flag returns a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[p.canonical(name)]
}

// FlagOrDefault returns the flag value or def.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return def
}

// FlagInt parses an integer flag. A missing flag returns def.
func (p *ArgParser) FlagInt(name string, def int) (int, error) {
	v := p.Flag(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, &UsageError{Message: fmt.Sprintf("--%s expects a number, got %q", name, v)}
	}
	return n, nil
}

// BoolFlag reports whether a boolean flag was set.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[p.canonical(name)]
}

// HasFlag reports whether name was given in any form.
func (p *ArgParser) HasFlag(name string) bool {
	name = p.canonical(name)
	_, s := p.flags[name]
	_, b := p.boolFlags[name]
	return s || b
}

// Positional returns the positional argument at i, or "".
func (p *ArgParser) Positional(i int) string {
	if i < 0 || i >= len(p.positional) {
		return ""
	}
	return p.positional[i]
}

// Positionals returns every positional argument.
func (p *ArgParser) Positionals() []string {
	return append([]string(nil), p.positional...)
}

// Rest returns the positional arguments after the first n.
func (p *ArgParser) Rest(n int) []string {
	if n >= len(p.positional) {
		return nil
	}
	return append([]string(nil), p.positional[n:]...)
}
