package binary

import (
	"sort"

	"github.com/joshuaseaton/wafer/internal/wasm"
)

// ValidationReport accompanies a successful Validate call. Skipped
// records validation steps the module construct in question requires
// but this validator does not perform — today, exactly one: per-
// instruction and constant-expression type-checking (see
// NotImplementedError). A caller that needs a hard soundness guarantee
// should treat a non-empty Skipped as a reason to reject the module,
// not as a warning to log and ignore.
type ValidationReport struct {
	Skipped []string
}

func (r *ValidationReport) skip(what string) { r.Skipped = append(r.Skipped, what) }

// moduleIndexSpace holds the effective (imported + locally defined)
// count for each index kind, used to bounds-check every reference into
// it.
type moduleIndexSpace struct {
	funcs, tables, mems, globals, types, elems, datas int
}

func newModuleIndexSpace(m *wasm.Module) moduleIndexSpace {
	s := moduleIndexSpace{
		types: len(m.Types),
		elems: len(m.Elements),
		datas: len(m.Data),
	}
	for _, imp := range m.Imports {
		switch imp.Descriptor.Kind {
		case wasm.ExternKindFunc:
			s.funcs++
		case wasm.ExternKindTable:
			s.tables++
		case wasm.ExternKindMemory:
			s.mems++
		case wasm.ExternKindGlobal:
			s.globals++
		}
	}
	s.funcs += len(m.Functions)
	s.tables += len(m.Tables)
	s.mems += len(m.Memories)
	s.globals += len(m.Globals)
	return s
}

// Validate performs the cross-section structural checks described by
// the decoder's companion validator: index bounds, limits well-
// formedness, export-name uniqueness, start-function shape, and
// function/code and data-count/data section parity. It does not
// type-check instruction sequences or constant expressions; see
// ValidationReport.
func Validate(m *wasm.Module) (*ValidationReport, error) {
	report := &ValidationReport{}
	space := newModuleIndexSpace(m)

	if err := validateTypes(m); err != nil {
		return nil, err
	}
	if err := validateImports(m, space); err != nil {
		return nil, err
	}
	if err := validateFunctions(m, space); err != nil {
		return nil, err
	}
	if err := validateTables(m); err != nil {
		return nil, err
	}
	if err := validateMemories(m); err != nil {
		return nil, err
	}
	if err := validateGlobals(m, report); err != nil {
		return nil, err
	}
	if err := validateExports(m, space); err != nil {
		return nil, err
	}
	if err := validateStart(m, space); err != nil {
		return nil, err
	}
	if err := validateElements(m, space, report); err != nil {
		return nil, err
	}
	if err := validateFunctionCodeParity(m, report); err != nil {
		return nil, err
	}
	if err := validateData(m, space, report); err != nil {
		return nil, err
	}
	if m.DataCount != nil {
		if int(*m.DataCount) != len(m.Data) {
			return nil, &DataCountMismatchError{Expected: int(*m.DataCount), Actual: len(m.Data)}
		}
	}
	return report, nil
}

func validateTypes(m *wasm.Module) error {
	for _, ft := range m.Types {
		for _, vt := range ft.Params {
			if !vt.Valid() {
				return &InvalidValTypeError{Got: byte(vt)}
			}
		}
		for _, vt := range ft.Results {
			if !vt.Valid() {
				return &InvalidValTypeError{Got: byte(vt)}
			}
		}
	}
	return nil
}

func validateImports(m *wasm.Module, space moduleIndexSpace) error {
	for _, imp := range m.Imports {
		switch imp.Descriptor.Kind {
		case wasm.ExternKindFunc:
			if uint32(imp.Descriptor.Func) >= uint32(space.types) {
				return &IndexOutOfBoundsError{Kind: "type", Index: uint32(imp.Descriptor.Func), Capacity: uint32(space.types)}
			}
		case wasm.ExternKindTable:
			if err := validateTableLimits(imp.Descriptor.Table.Limits); err != nil {
				return err
			}
		case wasm.ExternKindMemory:
			if err := validateMemLimits(imp.Descriptor.Memory.Limits); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateFunctions(m *wasm.Module, space moduleIndexSpace) error {
	for _, ty := range m.Functions {
		if uint32(ty) >= uint32(space.types) {
			return &IndexOutOfBoundsError{Kind: "type", Index: uint32(ty), Capacity: uint32(space.types)}
		}
	}
	return nil
}

// validateFunctionCodeParity checks the function and code sections agree
// on length. It runs after element validation, not alongside
// validateFunctions, matching the declaration order the module grammar
// establishes between the function section and the code section.
func validateFunctionCodeParity(m *wasm.Module, report *ValidationReport) error {
	if len(m.Functions) != len(m.Code) {
		return &FunctionAndCodeSectionMismatchError{FuncSecSize: len(m.Functions), CodeSecSize: len(m.Code)}
	}
	if len(m.Code) > 0 {
		report.skip("function body instruction type-checking")
	}
	return nil
}

func validateMemLimits(lim wasm.Limits) error {
	max := uint32(wasm.MemoryMaxPages)
	if lim.Max != nil {
		max = *lim.Max
	}
	if lim.Min > wasm.MemoryMaxPages || lim.Min > max || max > wasm.MemoryMaxPages {
		return &InvalidMemTypeError{Limits: lim}
	}
	return nil
}

func validateTableLimits(lim wasm.Limits) error {
	if lim.Max != nil && lim.Min > *lim.Max {
		return &InvalidTableLimitsError{Limits: lim}
	}
	return nil
}

func validateTables(m *wasm.Module) error {
	for _, t := range m.Tables {
		if err := validateTableLimits(t.Limits); err != nil {
			return err
		}
	}
	return nil
}

func validateMemories(m *wasm.Module) error {
	for _, mt := range m.Memories {
		if err := validateMemLimits(mt.Limits); err != nil {
			return err
		}
	}
	return nil
}

func validateGlobals(m *wasm.Module, report *ValidationReport) error {
	if len(m.Globals) > 0 {
		report.skip("global initializer constant-expression type-checking")
	}
	return nil
}

func validateExports(m *wasm.Module, space moduleIndexSpace) error {
	order := make([]int, len(m.Exports))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.Exports[order[a]].Name < m.Exports[order[b]].Name
	})
	for i := 1; i < len(order); i++ {
		if m.Exports[order[i]].Name == m.Exports[order[i-1]].Name {
			return &DuplicateExportNameError{ExportSecIdx: order[i], Name: m.Exports[order[i]].Name}
		}
	}
	for _, exp := range m.Exports {
		var capacity uint32
		switch exp.Descriptor.Kind {
		case wasm.ExternKindFunc:
			capacity = uint32(space.funcs)
		case wasm.ExternKindTable:
			capacity = uint32(space.tables)
		case wasm.ExternKindMemory:
			capacity = uint32(space.mems)
		case wasm.ExternKindGlobal:
			capacity = uint32(space.globals)
		default:
			return &InvalidTokenError{Got: byte(exp.Descriptor.Kind)}
		}
		if exp.Descriptor.Index >= capacity {
			return &IndexOutOfBoundsError{Kind: exp.Descriptor.Kind.String(), Index: exp.Descriptor.Index, Capacity: capacity}
		}
	}
	return nil
}

func validateStart(m *wasm.Module, space moduleIndexSpace) error {
	if m.Start == nil {
		return nil
	}
	idx := uint32(*m.Start)
	if idx >= uint32(space.funcs) {
		return &IndexOutOfBoundsError{Kind: "function", Index: idx, Capacity: uint32(space.funcs)}
	}
	ft, ok := functionTypeForIndex(m, *m.Start)
	if ok && (len(ft.Params) != 0 || len(ft.Results) != 0) {
		return &InvalidStartFunctionError{FuncIndex: *m.Start}
	}
	return nil
}

// functionTypeForIndex resolves a FuncIndex to its FunctionType, looking
// through imported functions first, then locally defined ones. ok is
// false when idx is out of range for funcs, or when the function's type
// index is out of range for the type section.
func functionTypeForIndex(m *wasm.Module, idx wasm.FuncIndex) (wasm.FunctionType, bool) {
	i := uint32(idx)
	for _, imp := range m.Imports {
		if imp.Descriptor.Kind != wasm.ExternKindFunc {
			continue
		}
		if i == 0 {
			if int(imp.Descriptor.Func) >= len(m.Types) {
				return wasm.FunctionType{}, false
			}
			return m.Types[imp.Descriptor.Func], true
		}
		i--
	}
	if int(i) >= len(m.Functions) {
		return wasm.FunctionType{}, false
	}
	ty := m.Functions[i]
	if int(ty) >= len(m.Types) {
		return wasm.FunctionType{}, false
	}
	return m.Types[ty], true
}

func validateElements(m *wasm.Module, space moduleIndexSpace, report *ValidationReport) error {
	for _, seg := range m.Elements {
		if seg.Mode == wasm.ElementModeActive {
			if uint32(seg.TableIndex) >= uint32(space.tables) {
				return &IndexOutOfBoundsError{Kind: "table", Index: uint32(seg.TableIndex), Capacity: uint32(space.tables)}
			}
			report.skip("element segment offset constant-expression type-checking")
		}
		for _, fi := range seg.Indices {
			if uint32(fi) >= uint32(space.funcs) {
				return &IndexOutOfBoundsError{Kind: "function", Index: uint32(fi), Capacity: uint32(space.funcs)}
			}
		}
		if len(seg.Exprs) > 0 {
			report.skip("element segment init expression type-checking")
		}
	}
	return nil
}

func validateData(m *wasm.Module, space moduleIndexSpace, report *ValidationReport) error {
	for _, seg := range m.Data {
		if seg.Mode == wasm.DataModeActive {
			if uint32(seg.MemIndex) >= uint32(space.mems) {
				return &IndexOutOfBoundsError{Kind: "memory", Index: uint32(seg.MemIndex), Capacity: uint32(space.mems)}
			}
			report.skip("data segment offset constant-expression type-checking")
		}
	}
	return nil
}
