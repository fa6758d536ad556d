package dreo

// Percent domain bounds.
const (
	minPercent = 0
	maxPercent = 100
)

// quantizeBucket snaps levels in (low, high] to target.
type quantizeBucket struct {
	low    int
	high   int
	target int
}

// quantizeTable partitions the upper range into five 20-wide bands. Values
// at or below the first boundary (and level 0) pass through unchanged.
//
// The boundaries are percent-shaped numbers but are applied to the already
// scaled device level. On fans with a small max level (the common case,
// e.g. 6) every computed level falls below the first band and passes
// through, while percent-valued inputs land on the stable snap points that
// keep the HomeKit slider from jittering. Deliberately preserved as
// shipped; device firmware behavior against "corrected" buckets is
// unverified.
var quantizeTable = []quantizeBucket{
	{10, 30, 20},
	{30, 50, 40},
	{50, 70, 60},
	{70, 90, 80},
	{90, 100, 100},
}

// ClampPercent bounds a percent value into [0,100].
func ClampPercent(percent int) int {
	if percent < minPercent {
		return minPercent
	}
	if percent > maxPercent {
		return maxPercent
	}
	return percent
}

// LevelFromPercent converts a consumer-facing percent to a device-native
// level using ceiling division: level = ceil(percent * maxLevel / 100).
//
// The mapping is monotonic non-decreasing in percent and lands in
// [0, maxLevel]; it is many-to-one when maxLevel is small. Percent 0 maps
// to level 0, which is never transmitted (see Bridge.SetSpeed).
func LevelFromPercent(percent, maxLevel int) int {
	if maxLevel <= 0 {
		return 0
	}
	percent = ClampPercent(percent)
	return (percent*maxLevel + maxPercent - 1) / maxPercent
}

// PercentFromLevel converts a device-native level to a consumer-facing
// percent using ceiling division, clamped into [0,100].
func PercentFromLevel(level, maxLevel int) int {
	if maxLevel <= 0 {
		return 0
	}
	if level < 0 {
		level = 0
	}
	return ClampPercent((level*maxPercent + maxLevel - 1) / maxLevel)
}

// QuantizeLevel snaps a computed level onto the fixed snap-point table.
// Values outside every bucket (including 0 and values ≤10) are returned
// unchanged. Quantization is idempotent: each target lies inside its own
// bucket.
func QuantizeLevel(level int) int {
	for _, b := range quantizeTable {
		if level > b.low && level <= b.high {
			return b.target
		}
	}
	return level
}
