// Package gstpipeline builds canonical GStreamer pipeline descriptions (the
// gst-launch / Gst.parse_launch grammar) for a streaming session.
//
// Design:
//
//   - Pure "description construction": no execution, no I/O, no validation.
//     Every input, even an empty or degenerate session, yields a description.
//   - Output is deterministic. Same session and options give byte-identical
//     text, so descriptions can be diffed and embedded verbatim elsewhere.
//   - Two projections of the same intent: the description string and a
//     gst-launch-1.0 argv / shell-quoted command line.
//
// Grammar (informal):
//
//	chain  := clause (" ! " clause)*
//	desc   := chain (" " chain)*
//	clause := element (" " key "=" value)* | caps | ref "."
//
// Usage:
//
//	desc := gstpipeline.Generate(s, gstpipeline.Options{})
//	argv := gstpipeline.FromSession(s, opts).BuildLaunchArgv()
package gstpipeline

import (
	"strconv"
	"strings"
)

// LaunchBinary is argv[0] of the launch projection.
const LaunchBinary = "gst-launch-1.0"

// Builder accumulates chains of clauses.
//
// The Builder implements a fluent API; it is NOT concurrency-safe.
// Treat a Builder as a single-use, short-lived value.
type Builder struct {
	chains [][]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Chain starts a new chain made of the given clauses.
func (b *Builder) Chain(clauses ...string) *Builder {
	b.chains = append(b.chains, append([]string(nil), clauses...))
	return b
}

// Link appends clauses to the current chain, starting one if needed.
func (b *Builder) Link(clauses ...string) *Builder {
	if len(b.chains) == 0 {
		return b.Chain(clauses...)
	}
	last := len(b.chains) - 1
	b.chains[last] = append(b.chains[last], clauses...)
	return b
}

// Chains returns a copy of the accumulated chains.
func (b *Builder) Chains() [][]string {
	out := make([][]string, len(b.chains))
	for i, c := range b.chains {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// Build joins clauses with " ! " and chains with " ", then collapses every
// whitespace run to a single space and trims the result. Whitespace inside
// quoted values is collapsed too; values are never escaped.
func (b *Builder) Build() string {
	parts := make([]string, 0, len(b.chains))
	for _, c := range b.chains {
		parts = append(parts, strings.Join(c, " ! "))
	}
	return collapse(strings.Join(parts, " "))
}

// BuildLaunchArgv returns {"gst-launch-1.0", "-e", desc}. gst-launch joins
// its positional arguments itself, so the description travels as one token.
func (b *Builder) BuildLaunchArgv() []string {
	return []string{LaunchBinary, "-e", b.Build()}
}

// BuildLaunchString returns the launch argv as a single shell-quoted string,
// safe for POSIX shells and systemd ExecStart lines.
func (b *Builder) BuildLaunchString() string {
	argv := b.BuildLaunchArgv()
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}

//////////////////////
// Clause builders. //
//////////////////////

// Prop is one element property.
type Prop struct {
	Key    string
	Value  string
	Quoted bool // wrap Value in double quotes (no escaping)
}

// P returns an unquoted property. Ints and bools are formatted in the
// gst-launch way (decimal, true/false).
func P(key string, val any) Prop {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = ""
	}
	return Prop{Key: key, Value: s}
}

// Q returns a double-quoted property.
func Q(key, val string) Prop {
	return Prop{Key: key, Value: val, Quoted: true}
}

// Element renders "factory k=v k=\"v\"".
func Element(factory string, props ...Prop) string {
	var sb strings.Builder
	sb.WriteString(factory)
	for _, p := range props {
		sb.WriteByte(' ')
		writeProp(&sb, p)
	}
	return sb.String()
}

// Caps renders "media/type,k=v,k=v".
func Caps(mediaType string, fields ...Prop) string {
	var sb strings.Builder
	sb.WriteString(mediaType)
	for _, f := range fields {
		sb.WriteByte(',')
		writeProp(&sb, f)
	}
	return sb.String()
}

// Ref renders the dotted reference "name." used for fan-out and fan-in.
func Ref(name string) string {
	return name + "."
}

//////////////////////
// Internal helpers //
//////////////////////

func writeProp(sb *strings.Builder, p Prop) {
	sb.WriteString(p.Key)
	sb.WriteByte('=')
	if p.Quoted {
		sb.WriteByte('"')
		sb.WriteString(p.Value)
		sb.WriteByte('"')
		return
	}
	sb.WriteString(p.Value)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ShellQuote returns a POSIX/systemd-safe single-quoted token.
// Empty strings become '' to preserve round-trippability.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
