package transfer

import (
	"regexp"
	"strconv"
	"strings"
)

// progressPattern matches one line of rsync's --info=progress2 output,
// e.g. "  1,234,567  50%   12.34MB/s    0:01:23".
var progressPattern = regexp.MustCompile(
	`^\s*([\d,]+)\s+(\d+)%\s+([\d.]+)([KMG]?B)/s\s+(\d+:\d+(?::\d+)?)?`,
)

var speedUnitMultipliers = map[string]float64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
}

// Progress is a single point-in-time snapshot of a transfer's status,
// parsed from one line of the copy tool's standard output.
type Progress struct {
	BytesTransferred int64
	Percent          int
	BytesPerSecond   float64
	ETASeconds       int
}

// ParseProgressLine parses one line of copy-tool progress output.
// Unparseable lines return ok == false.
func ParseProgressLine(line string) (Progress, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	bytesStr := strings.ReplaceAll(m[1], ",", "")
	bytesTransferred, err := strconv.ParseInt(bytesStr, 10, 64)
	if err != nil {
		return Progress{}, false
	}

	percent, err := strconv.Atoi(m[2])
	if err != nil {
		return Progress{}, false
	}

	speedValue, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Progress{}, false
	}
	mult, ok := speedUnitMultipliers[m[4]]
	if !ok {
		return Progress{}, false
	}

	eta := 0
	if m[5] != "" {
		eta, ok = parseDuration(m[5])
		if !ok {
			return Progress{}, false
		}
	}

	return Progress{
		BytesTransferred: bytesTransferred,
		Percent:          percent,
		BytesPerSecond:   speedValue * mult,
		ETASeconds:       eta,
	}, true
}

// parseDuration parses "M:S" or "H:M:S" into total seconds.
func parseDuration(s string) (int, bool) {
	parts := strings.Split(s, ":")
	var nums []int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 2:
		return nums[0]*60 + nums[1], true
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2], true
	default:
		return 0, false
	}
}
