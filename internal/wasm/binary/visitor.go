package binary

import "github.com/joshuaseaton/wafer/internal/wasm"

// CustomSectionVisitor is the decoder's one extension point: called once
// per custom section, in source order. A visitor may be stateful; the
// decoder never calls it concurrently.
type CustomSectionVisitor interface {
	// ShouldVisit decides whether Visit should be called for the custom
	// section with the given name. Declining avoids materializing its
	// payload.
	ShouldVisit(name string) bool
	// Visit receives a custom section this visitor opted into.
	Visit(section wasm.CustomSection)
}

// NoopCustomSectionVisitor declines every custom section.
type NoopCustomSectionVisitor struct{}

func (NoopCustomSectionVisitor) ShouldVisit(string) bool          { return false }
func (NoopCustomSectionVisitor) Visit(section wasm.CustomSection) {}
