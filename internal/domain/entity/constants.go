package entity

// Level is a leveling tier a promotion can target
type Level string

// Individual contributor and management tiers
const (
	LevelP1 Level = "P1"
	LevelP2 Level = "P2"
	LevelP3 Level = "P3"
	LevelP4 Level = "P4"
	LevelP5 Level = "P5"
	LevelP6 Level = "P6"
	LevelP7 Level = "P7"
	LevelP8 Level = "P8"
	LevelM1 Level = "M1"
	LevelM2 Level = "M2"
	LevelM3 Level = "M3"
	LevelM4 Level = "M4"
)

var validLevels = map[Level]bool{
	LevelP1: true, LevelP2: true, LevelP3: true, LevelP4: true,
	LevelP5: true, LevelP6: true, LevelP7: true, LevelP8: true,
	LevelM1: true, LevelM2: true, LevelM3: true, LevelM4: true,
}

// IsValid returns true if the level is a recognized tier
func (l Level) IsValid() bool {
	return validLevels[l]
}

// Raise percentage bounds, inclusive
const (
	MinRaisePercentage = 0.1
	MaxRaisePercentage = 100.0
)

// System config keys
const (
	ConfigKeyApprovalChain = "approval_chain"
)
