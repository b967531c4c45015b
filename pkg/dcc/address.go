// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

// SusiNode identifies one of the three SUSI modules behind a vehicle decoder
type SusiNode uint8

const (
	SusiNodeInvalid SusiNode = iota
	SusiNode1
	SusiNode2
	SusiNode3
)

func (n SusiNode) String() string {
	switch n {
	case SusiNode1:
		return "Node1"
	case SusiNode2:
		return "Node2"
	case SusiNode3:
		return "Node3"
	default:
		return "Invalid"
	}
}

// ExtendedPage combines the values of CV31 and CV32 into a page index
func ExtendedPage(cv31, cv32 VariableValue) ExtendedPageIndex {
	return ExtendedPageIndex(uint16(cv31)<<8 | uint16(cv32))
}

// ExtendedVariable returns the index of variable on the given CV31/CV32 page.
// Offsets below 256 are relative to CV257, the first paged variable.
func ExtendedVariable(variable VariableIndex, page ExtendedPageIndex) ExtendedVariableIndex {
	v := uint32(variable)
	if v < 256 {
		v += 257
	}
	return ExtendedVariableIndex(uint32(page)<<12 | v&0x3ff | extendedBit)
}

// ExtendedVariableOf is ExtendedVariable with the page given as CV31 and CV32
func ExtendedVariableOf(variable VariableIndex, cv31, cv32 VariableValue) ExtendedVariableIndex {
	return ExtendedVariable(variable, ExtendedPage(cv31, cv32))
}

// SusiVariable returns the index of variable in the given SUSI bank
func SusiVariable(variable VariableIndex, page SusiPageIndex) ExtendedVariableIndex {
	return ExtendedVariableIndex(uint32(page)<<12 | uint32(variable)&0x3ff | susiBit)
}

// CV31 returns the high byte of an extended page
func CV31(page ExtendedPageIndex) VariableValue {
	return VariableValue(page >> 8 & 255)
}

// CV32 returns the low byte of an extended page
func CV32(page ExtendedPageIndex) VariableValue {
	return VariableValue(page & 255)
}

// VariableIndex returns the plain CV to access once the page is selected.
func (v ExtendedVariableIndex) VariableIndex() VariableIndex {
	return VariableIndex((uint32(v)-1)&0x3ff + 1)
}

// HasExtendedPage reports whether v is a CV31/CV32 paged variable.
func (v ExtendedVariableIndex) HasExtendedPage() bool {
	return v&extendedBit != 0 && SpaceExtended.ContainsIndex(v.VariableIndex())
}

// ExtendedPage returns the CV31/CV32 page of v, or 0 when the base CV of v
// is outside the paged block. The paging bit itself is not checked.
func (v ExtendedVariableIndex) ExtendedPage() ExtendedPageIndex {
	if !SpaceExtended.ContainsIndex(v.VariableIndex()) {
		return 0
	}
	return ExtendedPageIndex(v >> 12 & 0xffff)
}

// CV31 returns the CV31 value selecting the page of v.
func (v ExtendedVariableIndex) CV31() VariableValue { return CV31(v.ExtendedPage()) }

// CV32 returns the CV32 value selecting the page of v.
func (v ExtendedVariableIndex) CV32() VariableValue { return CV32(v.ExtendedPage()) }

// HasSusiPage reports whether v is a SUSI paged variable.
func (v ExtendedVariableIndex) HasSusiPage() bool {
	return v&susiBit != 0 && SpaceSusi.ContainsIndex(v.VariableIndex())
}

// SusiPage returns the SUSI bank of v, or 0 when the base CV of v is
// outside the SUSI block. The paging bit itself is not checked.
func (v ExtendedVariableIndex) SusiPage() SusiPageIndex {
	if !SpaceSusi.ContainsIndex(v.VariableIndex()) {
		return 0
	}
	return SusiPageIndex(v >> 12 & 0xff)
}

// SusiNode returns the SUSI module whose variable block contains v.
func (v ExtendedVariableIndex) SusiNode() SusiNode {
	base := v.VariableIndex()
	if !SpaceSusi.ContainsIndex(base) {
		return SusiNodeInvalid
	}
	return SusiNode1 + SusiNode((base-VariableIndex(CVSusi1Begin))/40)
}

// Type returns how the value of v is interpreted.
func (v ExtendedVariableIndex) Type() VariableType { return VariableTypeOf(v) }

// String renders v like "CV 257₂₅₅".
func (v ExtendedVariableIndex) String() string { return VariableString(v) }
