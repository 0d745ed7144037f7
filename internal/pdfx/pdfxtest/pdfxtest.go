// Package pdfxtest builds minimal PDF documents for tests: an exact
// cross-reference table, fixed-width font metrics so word geometry is
// predictable (each character advances 6pt at size 12), and image XObjects
// carried with real stream filters so extractors can decode them.
package pdfxtest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
)

// Line places text at a baseline position in bottom-origin points.
type Line struct {
	X, Y, Size float64
	Text       string
}

// Image declares an image XObject in the page's resource dictionary and a
// draw of it in the content stream. The pixel data is a flat gray RGB block,
// flate-compressed by default or embedded as a baseline JPEG when JPEG is
// set.
type Image struct {
	Name          string
	Width, Height int
	JPEG          bool
}

// Page is one page of the built document.
type Page struct {
	Width, Height float64
	Lines         []Line
	Images        []Image

	// OmitMediaBox leaves the box off the page so readers inherit it
	// from the page tree root.
	OmitMediaBox bool
}

// LetterPage is a US Letter page with the given text lines.
func LetterPage(lines ...Line) Page {
	return Page{Width: 612, Height: 792, Lines: lines}
}

// Build assembles the document. It panics on an empty page list; tests have
// no use for a zero-page document.
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		panic("pdfxtest: Build requires at least one page")
	}

	// Object numbers: font, then per page content+images+page, then the
	// page tree root and the catalog.
	const fontNum = 1
	next := fontNum + 1
	contentNums := make([]int, len(pages))
	imageNums := make([][]int, len(pages))
	pageNums := make([]int, len(pages))
	for i, p := range pages {
		contentNums[i] = next
		next++
		for range p.Images {
			imageNums[i] = append(imageNums[i], next)
			next++
		}
		pageNums[i] = next
		next++
	}
	rootNum := next
	catalogNum := next + 1

	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	objs := make(map[int]string)
	objs[fontNum] = fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica "+
		"/FirstChar 32 /LastChar 126 /Widths [%s] /Encoding /WinAnsiEncoding >>", widths)

	for i, p := range pages {
		var content strings.Builder
		for _, ln := range p.Lines {
			fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n",
				ln.Size, ln.X, ln.Y, escapeString(ln.Text))
		}
		for j, img := range p.Images {
			fmt.Fprintf(&content, "q %d 0 0 %d %d 480 cm /%s Do Q\n",
				img.Width, img.Height, 50+10*j, img.Name)
		}
		objs[contentNums[i]] = streamObject("<< /Length %d >>", []byte(content.String()))

		var xobjects strings.Builder
		for j, img := range p.Images {
			data, filter := imageStream(img)
			objs[imageNums[i][j]] = streamObject(fmt.Sprintf(
				"<< /Type /XObject /Subtype /Image /Width %d /Height %d "+
					"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /%s /Length %%d >>",
				img.Width, img.Height, filter), data)
			fmt.Fprintf(&xobjects, "/%s %d 0 R ", img.Name, imageNums[i][j])
		}

		var page strings.Builder
		fmt.Fprintf(&page, "<< /Type /Page /Parent %d 0 R", rootNum)
		if !p.OmitMediaBox {
			fmt.Fprintf(&page, " /MediaBox [0 0 %g %g]", p.Width, p.Height)
		}
		fmt.Fprintf(&page, " /Resources << /Font << /F1 %d 0 R >>", fontNum)
		if xobjects.Len() > 0 {
			fmt.Fprintf(&page, " /XObject << %s>>", xobjects.String())
		}
		fmt.Fprintf(&page, " >> /Contents %d 0 R >>", contentNums[i])
		objs[pageNums[i]] = page.String()
	}

	var kids strings.Builder
	for _, n := range pageNums {
		fmt.Fprintf(&kids, "%d 0 R ", n)
	}
	objs[rootNum] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %g %g] >>",
		strings.TrimSpace(kids.String()), len(pages), pages[0].Width, pages[0].Height)
	objs[catalogNum] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", rootNum)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, catalogNum+1)
	for n := 1; n <= catalogNum; n++ {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, objs[n])
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", catalogNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= catalogNum; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		catalogNum+1, catalogNum, xrefOffset)
	return buf.Bytes()
}

// streamObject renders a stream object, substituting the stream length into
// the dictionary format string.
func streamObject(dictFormat string, data []byte) string {
	return fmt.Sprintf(dictFormat, len(data)) + "\nstream\n" + string(data) + "\nendstream"
}

// imageStream encodes the pixel block of an image declaration, returning the
// stream bytes and the PDF filter name that describes them.
func imageStream(img Image) ([]byte, string) {
	if img.JPEG {
		rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				rgba.SetRGBA(x, y, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
			}
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, rgba, nil); err != nil {
			panic(err)
		}
		return buf.Bytes(), "DCTDecode"
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(bytes.Repeat([]byte{0x80}, img.Width*img.Height*3)); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes(), "FlateDecode"
}

func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
