package model

// Target is the body zone a move attacks or defends.
type Target string

const (
	TargetHead Target = "HEAD"
	TargetBody Target = "BODY"
	TargetLegs Target = "LEGS"
)

// ParseTarget maps a transport string onto the closed Target set. The match
// is exact: case and surrounding whitespace both make a value unknown.
func ParseTarget(s string) (Target, bool) {
	switch t := Target(s); t {
	case TargetHead, TargetBody, TargetLegs:
		return t, true
	default:
		return "", false
	}
}
