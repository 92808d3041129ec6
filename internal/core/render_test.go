package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func header(symbolBase string) string {
	return "\n" +
		"    .section .rodata.embedded\n" +
		"    .global _binary_" + symbolBase + "_start\n" +
		"    .global _binary_" + symbolBase + "_end\n" +
		"    .align 4\n" +
		"_binary_" + symbolBase + "_start:\n"
}

func footer(symbolBase string) string {
	return "\n    .byte 0x00\n" +
		"_binary_" + symbolBase + "_end:\n"
}

func TestRender_StyleCSSExample(t *testing.T) {
	got := RenderBytes("style_css", []byte("*{}"))

	want := header("style_css") +
		"\n    .byte 0x2a, 0x7b, 0x7d" +
		footer("style_css")
	require.Equal(t, want, string(got))

	payload, err := DecodeByteLiterals(got)
	require.NoError(t, err)
	require.Equal(t, []byte{0x2a, 0x7b, 0x7d, 0x00}, payload)
}

func TestRender_SixteenBytesPerLine(t *testing.T) {
	content := make([]byte, 17)
	for i := range content {
		content[i] = byte(i)
	}
	got := string(RenderBytes("blob_bin", content))

	want := header("blob_bin") +
		"\n    .byte 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f" +
		"\n    .byte 0x10" +
		footer("blob_bin")
	require.Equal(t, want, got)
}

func TestRender_ExactMultipleOfLineWidth(t *testing.T) {
	content := bytes.Repeat([]byte{0xab}, 32)
	got := string(RenderBytes("x", content))

	line := "\n    .byte " + strings.TrimSuffix(strings.Repeat("0xab, ", 16), ", ")
	require.Equal(t, header("x")+line+line+footer("x"), got)
}

func TestRender_EmptyFileStillHasSentinel(t *testing.T) {
	got := RenderBytes("empty_txt", nil)
	require.Equal(t, header("empty_txt")+footer("empty_txt"), string(got))

	payload, err := DecodeByteLiterals(got)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, payload)
}

func TestRender_SentinelIsUnconditional(t *testing.T) {
	content := []byte{'a', 0x00}
	u, err := DecodeUnit(RenderBytes("z", content))
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 0x00, 0x00}, u.Payload)
	require.Len(t, u.Payload, len(content)+1)
	require.Equal(t, content, u.Content())
}

func TestRender_RoundTripText(t *testing.T) {
	content := []byte("ab\n")
	u, err := DecodeUnit(RenderBytes("ab_txt", content))
	require.NoError(t, err)
	require.Equal(t, content, u.Content())
	require.Equal(t, byte(0x00), u.Payload[len(u.Payload)-1])
	require.Equal(t, "_binary_ab_txt_start", u.StartSymbol)
	require.Equal(t, "_binary_ab_txt_end", u.EndSymbol)
	require.Equal(t, []string{"_binary_ab_txt_start", "_binary_ab_txt_end"}, u.Globals)
}

func TestRender_RoundTripFullByteRange(t *testing.T) {
	content := make([]byte, 256)
	for i := range content {
		content[i] = byte(i)
	}
	payload, err := DecodeByteLiterals(RenderBytes("range_bin", content))
	require.NoError(t, err)
	require.Len(t, payload, 257)
	require.Equal(t, content, payload[:256])
	require.Equal(t, byte(0x00), payload[256])
}

func TestRender_LowercaseHex(t *testing.T) {
	got := string(RenderBytes("h", []byte{0xAB, 0xCD, 0xEF}))
	require.Contains(t, got, "0xab, 0xcd, 0xef")
	require.NotContains(t, got, "0xAB")
}

func TestRender_Idempotent(t *testing.T) {
	content := []byte("<html><body>hello</body></html>\n")
	a := RenderBytes("index_html", content)
	b := RenderBytes("index_html", content)
	require.True(t, bytes.Equal(a, b))
}

func TestRenderedSize_MatchesOutput(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32, 33, 255, 1000} {
		content := bytes.Repeat([]byte{0x5a}, n)
		got := RenderBytes("size_check", content)
		require.Equal(t, len(got), RenderedSize("size_check", content), "n=%d", n)
	}
}

func TestDecodeUnit_RejectsGarbage(t *testing.T) {
	_, err := DecodeUnit([]byte("start:\n    .byte 0x1g\nend:\n"))
	require.Error(t, err)

	_, err = DecodeUnit([]byte("    .byte 0x01\n"))
	require.Error(t, err)

	_, err = DecodeUnit([]byte("start:\n    mov r0, r1\nend:\n"))
	require.Error(t, err)

	_, err = DecodeUnit([]byte("start:\n    .byte 0x01\n"))
	require.Error(t, err)
}
