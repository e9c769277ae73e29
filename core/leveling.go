package core

// Experience thresholds follow a flat curve after the first jump: reaching
// level 2 costs 50 exp, every level past that costs another 25.

const (
	levelTwoThreshold = 50
	levelStep         = 25
)

// ThresholdForLevel returns the cumulative experience required to reach level.
func ThresholdForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return levelTwoThreshold + (level-2)*levelStep
}

// LevelForExp returns the greatest level whose threshold is within exp.
// Non-positive experience maps to level 1.
func LevelForExp(exp int) int {
	if exp <= 0 {
		return 1
	}
	level := 1
	for ThresholdForLevel(level+1) <= exp {
		level++
	}
	return level
}

// ProgressToNextLevel reports progress through the current level as a
// percentage clamped to [0,100].
func ProgressToNextLevel(exp, currentLevel int) float64 {
	cur := ThresholdForLevel(currentLevel)
	next := ThresholdForLevel(currentLevel + 1)
	if next == cur {
		return 100
	}
	p := float64(exp-cur) / float64(next-cur) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ExpToNextLevel returns the experience still missing for the next level.
func ExpToNextLevel(exp, currentLevel int) int {
	need := ThresholdForLevel(currentLevel+1) - exp
	if need < 0 {
		return 0
	}
	return need
}
