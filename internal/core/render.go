package core

import (
	"bufio"
	"bytes"
	"io"
)

const (
	// BytesPerLine is the number of byte literals on each data line.
	BytesPerLine = 16

	// SectionName is the read-only section every unit is placed in.
	SectionName = ".rodata.embedded"

	// Alignment is the .align operand; 4 keeps the start symbol word aligned.
	Alignment = 4

	indent = "    "
)

const hexDigits = "0123456789abcdef"

// Render writes the assembler unit for content under symbolBase.
//
// Layout:
//
//	    .section .rodata.embedded
//	    .global _binary_<b>_start
//	    .global _binary_<b>_end
//	    .align 4
//	_binary_<b>_start:
//
//	    .byte 0x2a, 0x7b, ...   (16 per line)
//	    .byte 0x00
//	_binary_<b>_end:
//
// The unit opens with an empty line. The sentinel directive is always
// emitted, even when content already ends with 0x00.
func Render(w io.Writer, symbolBase string, content []byte) error {
	bw := bufio.NewWriter(w)
	start := StartSymbol(symbolBase)
	end := EndSymbol(symbolBase)

	bw.WriteString("\n")
	bw.WriteString(indent + ".section " + SectionName + "\n")
	bw.WriteString(indent + ".global " + start + "\n")
	bw.WriteString(indent + ".global " + end + "\n")
	bw.WriteString(indent + ".align ")
	bw.WriteByte(byte('0' + Alignment))
	bw.WriteString("\n")
	bw.WriteString(start + ":\n")

	last := len(content) - 1
	for i, b := range content {
		if i%BytesPerLine == 0 {
			bw.WriteString("\n" + indent + ".byte ")
		}
		writeByteLiteral(bw, b)
		if i < last && (i+1)%BytesPerLine != 0 {
			bw.WriteString(", ")
		}
	}

	bw.WriteString("\n" + indent + ".byte ")
	writeByteLiteral(bw, 0x00)
	bw.WriteString("\n")
	bw.WriteString(end + ":\n")
	return bw.Flush()
}

// RenderBytes returns the rendered unit as a byte slice.
func RenderBytes(symbolBase string, content []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(RenderedSize(symbolBase, content))
	// bytes.Buffer writes never fail.
	_ = Render(&buf, symbolBase, content)
	return buf.Bytes()
}

// RenderedSize is the exact length of the text Render produces.
func RenderedSize(symbolBase string, content []byte) int {
	start := len(StartSymbol(symbolBase))
	end := len(EndSymbol(symbolBase))

	header := 1 +
		len(indent+".section "+SectionName+"\n") +
		len(indent+".global \n")*2 + start + end +
		len(indent+".align 0\n") +
		start + 2

	n := len(content)
	lines := (n + BytesPerLine - 1) / BytesPerLine
	data := lines*len("\n"+indent+".byte ") + n*4
	if n > 0 {
		data += (n - lines) * 2
	}

	footer := len("\n"+indent+".byte 0x00\n") + end + 2
	return header + data + footer
}

func writeByteLiteral(w *bufio.Writer, b byte) {
	w.WriteByte('0')
	w.WriteByte('x')
	w.WriteByte(hexDigits[b>>4])
	w.WriteByte(hexDigits[b&0x0f])
}
