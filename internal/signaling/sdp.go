package signaling

import "strings"

// SanitizeAnswer rewrites a remote SDP answer before it is applied.
// Gateway answers carry bandwidth caps and an extmap-allow-mixed flag
// that pion's local side should not inherit, so those lines are dropped
// wholesale.
func SanitizeAnswer(sdp string) string {
	lines := strings.Split(sdp, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, "b=AS:") ||
			strings.HasPrefix(trimmed, "b=TIAS:") ||
			strings.HasPrefix(trimmed, "a=extmap-allow-mixed") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
