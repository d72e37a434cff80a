package signaling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeAnswerStripsBandwidthLines(t *testing.T) {
	in := strings.Join([]string{
		"v=0",
		"o=- 0 0 IN IP4 127.0.0.1",
		"m=video 9 UDP/TLS/RTP/SAVPF 96",
		"b=AS:2000",
		"b=TIAS:2000000",
		"a=extmap-allow-mixed",
		"a=mid:0",
	}, "\n")

	out := SanitizeAnswer(in)

	assert.NotContains(t, out, "b=AS:")
	assert.NotContains(t, out, "b=TIAS:")
	assert.NotContains(t, out, "extmap-allow-mixed")
	assert.Contains(t, out, "m=video 9 UDP/TLS/RTP/SAVPF 96")
	assert.Contains(t, out, "a=mid:0")
}

func TestSanitizeAnswerHandlesCRLF(t *testing.T) {
	in := "v=0\r\nb=AS:500\r\na=mid:0\r\n"

	out := SanitizeAnswer(in)

	assert.NotContains(t, out, "b=AS:")
	assert.Contains(t, out, "a=mid:0")
	// Surviving lines keep their original line endings.
	assert.Contains(t, out, "v=0\r\n")
}

func TestSanitizeAnswerLeavesCleanSDPAlone(t *testing.T) {
	in := "v=0\no=- 0 0 IN IP4 127.0.0.1\na=mid:0"

	assert.Equal(t, in, SanitizeAnswer(in))
}
