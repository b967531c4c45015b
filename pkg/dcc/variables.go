// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

const (
	extendedBit = 0x400
	susiBit     = 0x800

	railComPage     = 0<<8 | 255
	railComPlusPage = 1<<8 | 0
	railComKeysPage = 1<<8 | 1
)

// ExtendedPageRailCom holds the RailCom decoder identification block
const ExtendedPageRailCom ExtendedPageIndex = railComPage

// Named vehicle decoder variables.
const (
	CVInvalid                ExtendedVariableIndex = 0
	CVBasicAddress           ExtendedVariableIndex = 1
	CVMinimumSpeed           ExtendedVariableIndex = 2
	CVAccelerationRate       ExtendedVariableIndex = 3
	CVDecelerationRate       ExtendedVariableIndex = 4
	CVMaximumSpeed           ExtendedVariableIndex = 5
	CVMiddleSpeed            ExtendedVariableIndex = 6
	CVDecoderVersion         ExtendedVariableIndex = 7
	CVManufacturer           ExtendedVariableIndex = 8
	CVTotalPwmPeriod         ExtendedVariableIndex = 9
	CVEmfFeedbackCutout      ExtendedVariableIndex = 10
	CVPacketTimeout          ExtendedVariableIndex = 11
	CVPowerSources           ExtendedVariableIndex = 12
	CVAnalogFunctionsLow     ExtendedVariableIndex = 13
	CVAnalogFunctionsHigh    ExtendedVariableIndex = 14
	CVDecoderLockSelect      ExtendedVariableIndex = 15
	CVDecoderLockConfig      ExtendedVariableIndex = 16
	CVExtendedAddressHigh    ExtendedVariableIndex = 17
	CVExtendedAddressLow     ExtendedVariableIndex = 18
	CVConsistAddress         ExtendedVariableIndex = 19
	CVConsistFunctionsLow    ExtendedVariableIndex = 21
	CVConsistFunctionsHigh   ExtendedVariableIndex = 22
	CVAccelerationAdjustment ExtendedVariableIndex = 23
	CVDecelerationAdjustment ExtendedVariableIndex = 24
	CVSpeedTable             ExtendedVariableIndex = 25
	CVAutoStop               ExtendedVariableIndex = 27
	CVBiDiConfiguration      ExtendedVariableIndex = 28
	CVConfiguration          ExtendedVariableIndex = 29
	CVErrorInformation       ExtendedVariableIndex = 30
	CVExtendedPageIndexHigh  ExtendedVariableIndex = 31
	CVExtendedPageIndexLow   ExtendedVariableIndex = 32
	CVOutputsF0Fwd           ExtendedVariableIndex = 33
	CVOutputsF0Rev           ExtendedVariableIndex = 34
	CVOutputsF1              ExtendedVariableIndex = 35
	CVOutputsF2              ExtendedVariableIndex = 36
	CVOutputsF3              ExtendedVariableIndex = 37
	CVOutputsF4              ExtendedVariableIndex = 38
	CVOutputsF5              ExtendedVariableIndex = 39
	CVOutputsF6              ExtendedVariableIndex = 40
	CVOutputsF7              ExtendedVariableIndex = 41
	CVOutputsF8              ExtendedVariableIndex = 42
	CVOutputsF9              ExtendedVariableIndex = 43
	CVOutputsF10             ExtendedVariableIndex = 44
	CVOutputsF11             ExtendedVariableIndex = 45
	CVOutputsF12             ExtendedVariableIndex = 46
	CVVendorUnique1Begin     ExtendedVariableIndex = 47
	CVVendorUnique1End       ExtendedVariableIndex = 64
	CVKickStartAmount        ExtendedVariableIndex = 65
	CVForwardTrim            ExtendedVariableIndex = 66
	CVSpeedTableBegin        ExtendedVariableIndex = 67
	CVSpeedTableEnd          ExtendedVariableIndex = 94
	CVReverseTrim            ExtendedVariableIndex = 95
	CVNrmaReservedBegin      ExtendedVariableIndex = 96
	CVUserIdHigh             ExtendedVariableIndex = 105
	CVUserIdLow              ExtendedVariableIndex = 106
	CVNrmaReservedEnd        ExtendedVariableIndex = 111
	CVVendorUnique2Begin     ExtendedVariableIndex = 112
	CVVendorUnique2End       ExtendedVariableIndex = 256
	CVExtendedBegin          ExtendedVariableIndex = 257
	CVExtendedEnd            ExtendedVariableIndex = 512
	CVNrmaDynamicBegin       ExtendedVariableIndex = 880
	CVNrmaDynamicEnd         ExtendedVariableIndex = 895
	CVSusiBegin              ExtendedVariableIndex = 896
	CVSusiModuleId           ExtendedVariableIndex = 897
	CVSusi1Begin             ExtendedVariableIndex = 900
	CVSusi1End               ExtendedVariableIndex = 939
	CVSusi2Begin             ExtendedVariableIndex = 940
	CVSusi2End               ExtendedVariableIndex = 979
	CVSusi3Begin             ExtendedVariableIndex = 980
	CVSusi3End               ExtendedVariableIndex = 1019
	CVSusiStatus             ExtendedVariableIndex = 1020
	CVSusiBankIndex          ExtendedVariableIndex = 1021
	CVSusiEnd                ExtendedVariableIndex = 1024
)

// Paged vehicle decoder variables. Values match ExtendedVariable and SusiVariable.
const (
	CVRailComManufacturer   ExtendedVariableIndex = railComPage<<12 | (257+0)&0x3ff | extendedBit
	CVRailComProductId      ExtendedVariableIndex = railComPage<<12 | (257+4)&0x3ff | extendedBit
	CVRailComSerialNumber   ExtendedVariableIndex = railComPage<<12 | (257+8)&0x3ff | extendedBit
	CVRailComProductionDate ExtendedVariableIndex = railComPage<<12 | (257+12)&0x3ff | extendedBit

	CVRailComPlusIcon      ExtendedVariableIndex = railComPlusPage<<12 | (257+0)&0x3ff | extendedBit
	CVRailComPlusNameBegin ExtendedVariableIndex = railComPlusPage<<12 | (257+4)&0x3ff | extendedBit
	CVRailComPlusNameEnd   ExtendedVariableIndex = railComPlusPage<<12 | (257+31)&0x3ff | extendedBit
	CVRailComPlusName                            = CVRailComPlusNameBegin
	CVRailComPlusKeysBegin ExtendedVariableIndex = railComKeysPage<<12 | (257+0)&0x3ff | extendedBit
	CVRailComPlusKeysEnd   ExtendedVariableIndex = railComKeysPage<<12 | (257+32)&0x3ff | extendedBit
	CVRailComPlusKeys                            = CVRailComPlusKeysBegin

	CVEsuFunctionConditionBegin ExtendedVariableIndex = (16<<8|3)<<12 | (257+0)&0x3ff | extendedBit
	CVEsuFunctionConditionEnd   ExtendedVariableIndex = (16<<8|7)<<12 | (257+127)&0x3ff | extendedBit
	CVEsuFunctionCondition                            = CVEsuFunctionConditionBegin
	CVEsuFunctionOperationBegin ExtendedVariableIndex = (16<<8|8)<<12 | (257+0)&0x3ff | extendedBit
	CVEsuFunctionOperationEnd   ExtendedVariableIndex = (16<<8|12)<<12 | (257+127)&0x3ff | extendedBit
	CVEsuFunctionOperation                            = CVEsuFunctionOperationBegin

	CVSusi1Manufacturer    ExtendedVariableIndex = 0<<12 | 900 | susiBit
	CVSusi1ProductId       ExtendedVariableIndex = 1<<12 | 900 | susiBit
	CVSusi1ManufacturerAlt ExtendedVariableIndex = 254<<12 | 900 | susiBit
	CVSusi1MajorVersion    ExtendedVariableIndex = 0<<12 | 901 | susiBit
	CVSusi1MinorVersion    ExtendedVariableIndex = 1<<12 | 901 | susiBit
	CVSusi1SusiVersion     ExtendedVariableIndex = 254<<12 | 901 | susiBit
	CVSusi2Manufacturer    ExtendedVariableIndex = 0<<12 | 940 | susiBit
	CVSusi2ProductId       ExtendedVariableIndex = 1<<12 | 940 | susiBit
	CVSusi2ManufacturerAlt ExtendedVariableIndex = 254<<12 | 940 | susiBit
	CVSusi2MajorVersion    ExtendedVariableIndex = 0<<12 | 941 | susiBit
	CVSusi2MinorVersion    ExtendedVariableIndex = 1<<12 | 941 | susiBit
	CVSusi2SusiVersion     ExtendedVariableIndex = 254<<12 | 941 | susiBit
	CVSusi3Manufacturer    ExtendedVariableIndex = 0<<12 | 980 | susiBit
	CVSusi3ProductId       ExtendedVariableIndex = 1<<12 | 980 | susiBit
	CVSusi3ManufacturerAlt ExtendedVariableIndex = 254<<12 | 980 | susiBit
	CVSusi3MajorVersion    ExtendedVariableIndex = 0<<12 | 981 | susiBit
	CVSusi3MinorVersion    ExtendedVariableIndex = 1<<12 | 981 | susiBit
	CVSusi3SusiVersion     ExtendedVariableIndex = 254<<12 | 981 | susiBit
)

// VariableType tells how a variable's value is to be interpreted
type VariableType uint8

const (
	VariableTypeInvalid VariableType = iota
	VariableTypeU8
	VariableTypeU16H // high byte of a 16 bit value
	VariableTypeU16L // low byte of a 16 bit value
	VariableTypeU32H // first byte of a big endian 32 bit value
	VariableTypeD32H // first byte of a big endian 32 bit date
	VariableTypeUTF8
)

// vehicleVariable is one row of the variable catalog
type vehicleVariable struct {
	value ExtendedVariableIndex
	name  string
	typ   VariableType
}

// vehicleVariables lists the named variables in declaration order.
// Aliases are left out so a lookup by value yields the first declared name.
var vehicleVariables = []vehicleVariable{
	{CVInvalid, "Invalid", VariableTypeInvalid},
	{CVBasicAddress, "BasicAddress", VariableTypeU8},
	{CVMinimumSpeed, "MinimumSpeed", VariableTypeU8},
	{CVAccelerationRate, "AccelerationRate", VariableTypeU8},
	{CVDecelerationRate, "DecelerationRate", VariableTypeU8},
	{CVMaximumSpeed, "MaximumSpeed", VariableTypeU8},
	{CVMiddleSpeed, "MiddleSpeed", VariableTypeU8},
	{CVDecoderVersion, "DecoderVersion", VariableTypeU8},
	{CVManufacturer, "Manufacturer", VariableTypeU8},
	{CVTotalPwmPeriod, "TotalPwmPeriod", VariableTypeU8},
	{CVEmfFeedbackCutout, "EmfFeedbackCutout", VariableTypeU8},
	{CVPacketTimeout, "PacketTimeout", VariableTypeU8},
	{CVPowerSources, "PowerSources", VariableTypeU8},
	{CVAnalogFunctionsLow, "AnalogFunctionsLow", VariableTypeU16L},
	{CVAnalogFunctionsHigh, "AnalogFunctionsHigh", VariableTypeU16H},
	{CVDecoderLockSelect, "DecoderLockSelect", VariableTypeU8},
	{CVDecoderLockConfig, "DecoderLockConfig", VariableTypeU8},
	{CVExtendedAddressHigh, "ExtendedAddressHigh", VariableTypeU16H},
	{CVExtendedAddressLow, "ExtendedAddressLow", VariableTypeU16L},
	{CVConsistAddress, "ConsistAddress", VariableTypeU8},
	{CVConsistFunctionsLow, "ConsistFunctionsLow", VariableTypeU16L},
	{CVConsistFunctionsHigh, "ConsistFunctionsHigh", VariableTypeU16L},
	{CVAccelerationAdjustment, "AccelerationAdjustment", VariableTypeU8},
	{CVDecelerationAdjustment, "DecelerationAdjustment", VariableTypeU8},
	{CVSpeedTable, "SpeedTable", VariableTypeU8},
	{CVAutoStop, "AutoStop", VariableTypeU8},
	{CVBiDiConfiguration, "BiDiConfiguration", VariableTypeU8},
	{CVConfiguration, "Configuration", VariableTypeU8},
	{CVErrorInformation, "ErrorInformation", VariableTypeU8},
	{CVExtendedPageIndexHigh, "ExtendedPageIndexHigh", VariableTypeU16H},
	{CVExtendedPageIndexLow, "ExtendedPageIndexLow", VariableTypeU16L},
	{CVOutputsF0Fwd, "OutputsF0Fwd", VariableTypeU8},
	{CVOutputsF0Rev, "OutputsF0Rev", VariableTypeU8},
	{CVOutputsF1, "OutputsF1", VariableTypeU8},
	{CVOutputsF2, "OutputsF2", VariableTypeU8},
	{CVOutputsF3, "OutputsF3", VariableTypeU8},
	{CVOutputsF4, "OutputsF4", VariableTypeU8},
	{CVOutputsF5, "OutputsF5", VariableTypeU8},
	{CVOutputsF6, "OutputsF6", VariableTypeU8},
	{CVOutputsF7, "OutputsF7", VariableTypeU8},
	{CVOutputsF8, "OutputsF8", VariableTypeU8},
	{CVOutputsF9, "OutputsF9", VariableTypeU8},
	{CVOutputsF10, "OutputsF10", VariableTypeU8},
	{CVOutputsF11, "OutputsF11", VariableTypeU8},
	{CVOutputsF12, "OutputsF12", VariableTypeU8},
	{CVVendorUnique1Begin, "VendorUnique1Begin", VariableTypeU8},
	{CVVendorUnique1End, "VendorUnique1End", VariableTypeU8},
	{CVKickStartAmount, "KickStartAmount", VariableTypeU8},
	{CVForwardTrim, "ForwardTrim", VariableTypeU8},
	{CVSpeedTableBegin, "SpeedTableBegin", VariableTypeU8},
	{CVSpeedTableEnd, "SpeedTableEnd", VariableTypeU8},
	{CVReverseTrim, "ReverseTrim", VariableTypeU8},
	{CVNrmaReservedBegin, "NrmaReservedBegin", VariableTypeU8},
	{CVUserIdHigh, "UserIdHigh", VariableTypeU16H},
	{CVUserIdLow, "UserIdLow", VariableTypeU16L},
	{CVNrmaReservedEnd, "NrmaReservedEnd", VariableTypeU8},
	{CVVendorUnique2Begin, "VendorUnique2Begin", VariableTypeU8},
	{CVVendorUnique2End, "VendorUnique2End", VariableTypeU8},
	{CVExtendedBegin, "ExtendedBegin", VariableTypeU8},
	{CVExtendedEnd, "ExtendedEnd", VariableTypeU8},
	{CVNrmaDynamicBegin, "NrmaDynamicBegin", VariableTypeU8},
	{CVNrmaDynamicEnd, "NrmaDynamicEnd", VariableTypeU8},
	{CVSusiBegin, "SusiBegin", VariableTypeU8},
	{CVSusiModuleId, "SusiModuleId", VariableTypeU8},
	{CVSusi1Begin, "Susi1Begin", VariableTypeU8},
	{CVSusi1End, "Susi1End", VariableTypeU8},
	{CVSusi2Begin, "Susi2Begin", VariableTypeU8},
	{CVSusi2End, "Susi2End", VariableTypeU8},
	{CVSusi3Begin, "Susi3Begin", VariableTypeU8},
	{CVSusi3End, "Susi3End", VariableTypeU8},
	{CVSusiStatus, "SusiStatus", VariableTypeU8},
	{CVSusiBankIndex, "SusiBankIndex", VariableTypeU8},
	{CVSusiEnd, "SusiEnd", VariableTypeU8},

	{CVRailComManufacturer, "RailComManufacturer", VariableTypeU16H},
	{CVRailComProductId, "RailComProductId", VariableTypeU32H},
	{CVRailComSerialNumber, "RailComSerialNumber", VariableTypeU32H},
	{CVRailComProductionDate, "RailComProductionDate", VariableTypeD32H},

	{CVRailComPlusIcon, "RailComPlusIcon", VariableTypeU16H},
	{CVRailComPlusNameBegin, "RailComPlusNameBegin", VariableTypeUTF8},
	{CVRailComPlusNameEnd, "RailComPlusNameEnd", VariableTypeUTF8},
	{CVRailComPlusKeysBegin, "RailComPlusKeysBegin", VariableTypeU16H},
	{CVRailComPlusKeysEnd, "RailComPlusKeysEnd", VariableTypeU16H},

	{CVEsuFunctionConditionBegin, "EsuFunctionConditionBegin", VariableTypeU8},
	{CVEsuFunctionConditionEnd, "EsuFunctionConditionEnd", VariableTypeU8},
	{CVEsuFunctionOperationBegin, "EsuFunctionOperationBegin", VariableTypeU8},
	{CVEsuFunctionOperationEnd, "EsuFunctionOperationEnd", VariableTypeU8},

	{CVSusi1Manufacturer, "Susi1Manufacturer", VariableTypeU8},
	{CVSusi1ProductId, "Susi1ProductId", VariableTypeU8},
	{CVSusi1ManufacturerAlt, "Susi1ManufacturerAlt", VariableTypeU8},
	{CVSusi1MajorVersion, "Susi1MajorVersion", VariableTypeU8},
	{CVSusi1MinorVersion, "Susi1MinorVersion", VariableTypeU8},
	{CVSusi1SusiVersion, "Susi1SusiVersion", VariableTypeU8},
	{CVSusi2Manufacturer, "Susi2Manufacturer", VariableTypeU8},
	{CVSusi2ProductId, "Susi2ProductId", VariableTypeU8},
	{CVSusi2ManufacturerAlt, "Susi2ManufacturerAlt", VariableTypeU8},
	{CVSusi2MajorVersion, "Susi2MajorVersion", VariableTypeU8},
	{CVSusi2MinorVersion, "Susi2MinorVersion", VariableTypeU8},
	{CVSusi2SusiVersion, "Susi2SusiVersion", VariableTypeU8},
	{CVSusi3Manufacturer, "Susi3Manufacturer", VariableTypeU8},
	{CVSusi3ProductId, "Susi3ProductId", VariableTypeU8},
	{CVSusi3ManufacturerAlt, "Susi3ManufacturerAlt", VariableTypeU8},
	{CVSusi3MajorVersion, "Susi3MajorVersion", VariableTypeU8},
	{CVSusi3MinorVersion, "Susi3MinorVersion", VariableTypeU8},
	{CVSusi3SusiVersion, "Susi3SusiVersion", VariableTypeU8},
}

var vehicleVariableIndex = func() map[ExtendedVariableIndex]int {
	m := make(map[ExtendedVariableIndex]int, len(vehicleVariables))
	for i, v := range vehicleVariables {
		if _, ok := m[v.value]; !ok {
			m[v.value] = i
		}
	}
	return m
}()

// VehicleVariableName returns the catalog name of a variable, or "" if it has none.
func VehicleVariableName(variable ExtendedVariableIndex) string {
	if i, ok := vehicleVariableIndex[variable]; ok {
		return vehicleVariables[i].name
	}
	return ""
}

// VariableTypeOf returns how the value of variable is interpreted.
// Variables missing from the catalog are single bytes.
func VariableTypeOf(variable ExtendedVariableIndex) VariableType {
	if i, ok := vehicleVariableIndex[variable]; ok {
		return vehicleVariables[i].typ
	}
	return VariableTypeU8
}

func (t VariableType) String() string {
	switch t {
	case VariableTypeU8:
		return "U8"
	case VariableTypeU16H:
		return "U16H"
	case VariableTypeU16L:
		return "U16L"
	case VariableTypeU32H:
		return "U32H"
	case VariableTypeD32H:
		return "D32H"
	case VariableTypeUTF8:
		return "UTF8"
	default:
		return "Invalid"
	}
}

// VariableSpace identifies a well known block of decoder variables
type VariableSpace int

// Declaration order matters: FullVariableName searches from the last space to the first.
const (
	SpaceVendorUnique1 VariableSpace = iota
	SpaceSpeedTable
	SpaceNrmaReserved
	SpaceVendorUnique2
	SpaceExtended
	SpaceNrmaDynamic
	SpaceSusi
	SpaceSusi1
	SpaceSusi2
	SpaceSusi3
	SpaceRailComPlusName
	SpaceRailComPlusKeys
	SpaceEsuFunctionCondition
	SpaceEsuFunctionOperation
)

// VariableSpaces lists every space in declaration order
var VariableSpaces = []VariableSpace{
	SpaceVendorUnique1,
	SpaceSpeedTable,
	SpaceNrmaReserved,
	SpaceVendorUnique2,
	SpaceExtended,
	SpaceNrmaDynamic,
	SpaceSusi,
	SpaceSusi1,
	SpaceSusi2,
	SpaceSusi3,
	SpaceRailComPlusName,
	SpaceRailComPlusKeys,
	SpaceEsuFunctionCondition,
	SpaceEsuFunctionOperation,
}

// Range returns the variables covered by the space, or [Invalid..Invalid] for unknown spaces.
func (s VariableSpace) Range() Range[ExtendedVariableIndex] {
	switch s {
	case SpaceVendorUnique1:
		return MakeRange(CVVendorUnique1Begin, CVVendorUnique1End)
	case SpaceSpeedTable:
		return MakeRange(CVSpeedTableBegin, CVSpeedTableEnd)
	case SpaceNrmaReserved:
		return MakeRange(CVNrmaReservedBegin, CVNrmaReservedEnd)
	case SpaceVendorUnique2:
		return MakeRange(CVVendorUnique2Begin, CVVendorUnique2End)
	case SpaceExtended:
		return MakeRange(CVExtendedBegin, CVExtendedEnd)
	case SpaceNrmaDynamic:
		return MakeRange(CVNrmaDynamicBegin, CVNrmaDynamicEnd)
	case SpaceSusi:
		return MakeRange(CVSusi1Begin, CVSusi3End)
	case SpaceSusi1:
		return MakeRange(CVSusi1Begin, CVSusi1End)
	case SpaceSusi2:
		return MakeRange(CVSusi2Begin, CVSusi2End)
	case SpaceSusi3:
		return MakeRange(CVSusi3Begin, CVSusi3End)
	case SpaceRailComPlusName:
		return MakeRange(CVRailComPlusNameBegin, CVRailComPlusNameEnd)
	case SpaceRailComPlusKeys:
		return MakeRange(CVRailComPlusKeysBegin, CVRailComPlusKeysEnd)
	case SpaceEsuFunctionCondition:
		return MakeRange(CVEsuFunctionConditionBegin, CVEsuFunctionConditionEnd)
	case SpaceEsuFunctionOperation:
		return MakeRange(CVEsuFunctionOperationBegin, CVEsuFunctionOperationEnd)
	}
	return MakeRange(CVInvalid, CVInvalid)
}

func (s VariableSpace) String() string {
	switch s {
	case SpaceVendorUnique1:
		return "VendorUnique1"
	case SpaceSpeedTable:
		return "SpeedTable"
	case SpaceNrmaReserved:
		return "NrmaReserved"
	case SpaceVendorUnique2:
		return "VendorUnique2"
	case SpaceExtended:
		return "Extended"
	case SpaceNrmaDynamic:
		return "NrmaDynamic"
	case SpaceSusi:
		return "Susi"
	case SpaceSusi1:
		return "Susi1"
	case SpaceSusi2:
		return "Susi2"
	case SpaceSusi3:
		return "Susi3"
	case SpaceRailComPlusName:
		return "RailComPlusName"
	case SpaceRailComPlusKeys:
		return "RailComPlusKeys"
	case SpaceEsuFunctionCondition:
		return "EsuFunctionCondition"
	case SpaceEsuFunctionOperation:
		return "EsuFunctionOperation"
	}
	return ""
}

// ContainsIndex reports whether the plain CV number lies inside the space.
func (s VariableSpace) ContainsIndex(variable VariableIndex) bool {
	return s.Range().Contains(ExtendedVariableIndex(variable))
}
