package model

import "strings"

// Chain states
type ChainState string

const (
	ChainStateDraft     ChainState = "Draft"
	ChainStateReady     ChainState = "Ready"
	ChainStateFabricate ChainState = "Fabricate"
	ChainStateComplete  ChainState = "Complete"
	ChainStateFailed    ChainState = "Failed"
	ChainStateErase     ChainState = "Erase"
)

// Chain types
type ChainType string

const (
	ChainTypeProduction ChainType = "Production"
	ChainTypePreview    ChainType = "Preview"
)

// Chain binding targets
type ChainBindingType string

const (
	ChainBindingTypeLibrary    ChainBindingType = "Library"
	ChainBindingTypeProgram    ChainBindingType = "Program"
	ChainBindingTypeInstrument ChainBindingType = "Instrument"
)

// Segment states
type SegmentState string

const (
	SegmentStatePlanned  SegmentState = "Planned"
	SegmentStateCrafting SegmentState = "Crafting"
	SegmentStateCrafted  SegmentState = "Crafted"
	SegmentStateDubbing  SegmentState = "Dubbing"
	SegmentStateDubbed   SegmentState = "Dubbed"
	SegmentStateFailed   SegmentState = "Failed"
)

// Segment types
type SegmentType string

const (
	SegmentTypePending   SegmentType = "Pending"
	SegmentTypeInitial   SegmentType = "Initial"
	SegmentTypeContinue  SegmentType = "Continue"
	SegmentTypeNextMain  SegmentType = "NextMain"
	SegmentTypeNextMacro SegmentType = "NextMacro"
)

// Program types. Rhythm is the older name for Beat and is normalized to it.
type ProgramType string

const (
	ProgramTypeMacro  ProgramType = "Macro"
	ProgramTypeMain   ProgramType = "Main"
	ProgramTypeBeat   ProgramType = "Beat"
	ProgramTypeDetail ProgramType = "Detail"

	ProgramTypeRhythm = ProgramTypeBeat
)

var ValidProgramTypes = []ProgramType{
	ProgramTypeMacro, ProgramTypeMain, ProgramTypeBeat, ProgramTypeDetail,
}

// ParseProgramType accepts any casing and the legacy Rhythm name.
func ParseProgramType(s string) (ProgramType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "macro":
		return ProgramTypeMacro, true
	case "main":
		return ProgramTypeMain, true
	case "beat", "rhythm":
		return ProgramTypeBeat, true
	case "detail":
		return ProgramTypeDetail, true
	}
	return "", false
}

// Instrument types
type InstrumentType string

const (
	InstrumentTypeDrum       InstrumentType = "Drum"
	InstrumentTypeBass       InstrumentType = "Bass"
	InstrumentTypePad        InstrumentType = "Pad"
	InstrumentTypeSticky     InstrumentType = "Sticky"
	InstrumentTypeStripe     InstrumentType = "Stripe"
	InstrumentTypeStab       InstrumentType = "Stab"
	InstrumentTypePercussion InstrumentType = "Percussion"
)

var ValidInstrumentTypes = []InstrumentType{
	InstrumentTypeDrum, InstrumentTypeBass, InstrumentTypePad, InstrumentTypeSticky,
	InstrumentTypeStripe, InstrumentTypeStab, InstrumentTypePercussion,
}

// ParseInstrumentType matches an instrument type name case-insensitively.
func ParseInstrumentType(s string) (InstrumentType, bool) {
	for _, t := range ValidInstrumentTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// Segment message types
type SegmentMessageType string

const (
	SegmentMessageTypeInfo    SegmentMessageType = "Info"
	SegmentMessageTypeWarning SegmentMessageType = "Warning"
	SegmentMessageTypeError   SegmentMessageType = "Error"
)
