package anomaly

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"basketwatch/pkg/errorutil"
)

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// ParseInstruction 从自由文本中提取阈值
// "detect unusual basket values greater than 450." → 450
func ParseInstruction(text string) (float64, error) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, errorutil.InvalidInput("instruction does not contain a numeric threshold")
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, errorutil.InvalidInput("instruction threshold is not a number: " + match)
	}
	if v < 0 || math.IsInf(v, 0) {
		return 0, errorutil.InvalidInput("threshold must be a number >= 0")
	}

	return v, nil
}

// ResolveThreshold 显式阈值优先，其次从指令文本解析
func ResolveThreshold(threshold *float64, instruction string) (float64, error) {
	if threshold != nil {
		if math.IsNaN(*threshold) || math.IsInf(*threshold, 0) || *threshold < 0 {
			return 0, errorutil.InvalidInput("threshold must be a number >= 0")
		}
		return *threshold, nil
	}
	if strings.TrimSpace(instruction) == "" {
		return 0, errorutil.InvalidInput("either threshold or instruction is required")
	}
	return ParseInstruction(instruction)
}
