package binary

import "fmt"

// contextID names a parsing context for error reporting. Every decode
// operation pushes one of these, tagged with the byte offset it started
// at, onto the decoder's contextStack.
type contextID int

const (
	ctxModule contextID = iota
	ctxMagic
	ctxVersion
	ctxSection
	ctxCustomSection
	ctxTypeSection
	ctxFunctionType
	ctxImportSection
	ctxImport
	ctxImportDescriptor
	ctxFunctionSection
	ctxTableSection
	ctxTableType
	ctxMemorySection
	ctxMemType
	ctxLimits
	ctxGlobalSection
	ctxGlobal
	ctxGlobalType
	ctxExportSection
	ctxExport
	ctxExportDescriptor
	ctxStartSection
	ctxElementSection
	ctxElementSegment
	ctxCodeSection
	ctxFunction
	ctxLocals
	ctxExpression
	ctxDataSection
	ctxDataSegment
	ctxDataCountSection
	ctxName
	ctxValType
	ctxRefType
	ctxBlockType
	ctxMemArg
	ctxBrTable
	ctxCallIndirect
	ctxSelectT
	ctxVector
)

var contextLabels = [...]string{
	ctxModule:           "module",
	ctxMagic:            "magic",
	ctxVersion:          "version",
	ctxSection:          "section",
	ctxCustomSection:    "custom section",
	ctxTypeSection:      "type section",
	ctxFunctionType:     "function type",
	ctxImportSection:    "import section",
	ctxImport:           "import",
	ctxImportDescriptor: "import descriptor",
	ctxFunctionSection:  "function section",
	ctxTableSection:     "table section",
	ctxTableType:        "table type",
	ctxMemorySection:    "memory section",
	ctxMemType:          "memory type",
	ctxLimits:           "limits",
	ctxGlobalSection:    "global section",
	ctxGlobal:           "global",
	ctxGlobalType:       "global type",
	ctxExportSection:    "export section",
	ctxExport:           "export",
	ctxExportDescriptor: "export descriptor",
	ctxStartSection:     "start section",
	ctxElementSection:   "element section",
	ctxElementSegment:   "element segment",
	ctxCodeSection:      "code section",
	ctxFunction:         "function",
	ctxLocals:           "locals",
	ctxExpression:       "expression",
	ctxDataSection:      "data section",
	ctxDataSegment:      "data segment",
	ctxDataCountSection: "data count section",
	ctxName:             "name",
	ctxValType:          "value type",
	ctxRefType:          "reference type",
	ctxBlockType:        "block type",
	ctxMemArg:           "memarg",
	ctxBrTable:          "br_table",
	ctxCallIndirect:     "call_indirect",
	ctxSelectT:          "select",
	ctxVector:           "vector",
}

func (id contextID) String() string {
	if int(id) < len(contextLabels) && contextLabels[id] != "" {
		return contextLabels[id]
	}
	return fmt.Sprintf("context(%d)", int(id))
}

// maxContextDepth bounds the context stack. Exceeding it is itself a
// parse error (ExcessiveParsingDepthError), never a dynamic allocation.
const maxContextDepth = 6

type contextFrame struct {
	id     contextID
	offset int64
}

// contextStack is a fixed-capacity stack of (contextID, offset) frames,
// used to attach a "this was being parsed, nested this deep, at this
// offset" trace to decode errors.
type contextStack struct {
	frames [maxContextDepth]contextFrame
	depth  int
}

func (s *contextStack) push(id contextID, offset int64) bool {
	if s.depth >= maxContextDepth {
		return false
	}
	s.frames[s.depth] = contextFrame{id: id, offset: offset}
	s.depth++
	return true
}

func (s *contextStack) pop() {
	s.depth--
}

// snapshot copies the currently active frames, outermost first.
func (s *contextStack) snapshot() []contextFrame {
	out := make([]contextFrame, s.depth)
	copy(out, s.frames[:s.depth])
	return out
}
