package domain

import "fmt"

// Stage identifies one step of the pipeline.
type Stage string

const (
	// StageIntent extracts the user's intent and the requirements it implies.
	StageIntent Stage = "intent"

	// StageParse extracts the structure of the input (sections, algorithms, formulas).
	StageParse Stage = "parse"

	// StagePlan produces implementation plan fragments.
	StagePlan Stage = "plan"

	// StageReferenceMine discovers related code references.
	StageReferenceMine Stage = "reference_mine"

	// StageIndex builds index entries over mined references.
	StageIndex Stage = "index"

	// StageGenerate produces the output artifacts.
	StageGenerate Stage = "generate"
)

// stageOrder is the strict order stages execute in.
var stageOrder = []Stage{
	StageIntent,
	StageParse,
	StagePlan,
	StageReferenceMine,
	StageIndex,
	StageGenerate,
}

// Stages returns all stages in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage converts a name into a Stage.
func ParseStage(name string) (Stage, error) {
	for _, s := range stageOrder {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: stage %q", ErrInvalidInput, name)
}

// Position returns the zero-based execution position of the stage, or -1.
func (s Stage) Position() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// String returns the stage name.
func (s Stage) String() string {
	return string(s)
}
