package pdfx

import (
	"fmt"
	"sort"

	"github.com/ledongthuc/pdf"
)

// ImageInfo describes an image XObject referenced by a page's resource
// dictionary. Placement on the page is not tracked; that would require
// interpreting the content stream.
type ImageInfo struct {
	Name             string
	Width            int
	Height           int
	ColorSpace       string
	BitsPerComponent int
}

// Images lists the image XObjects referenced by the page, ordered by
// resource name.
func (d *Document) Images(page int) (images []ImageInfo, err error) {
	const op = "Images"
	defer recoverTo(&err, op)

	if d.reader == nil {
		return nil, NewDocumentError(op, ErrDocumentClosed, "")
	}
	if page < 1 || page > d.reader.NumPage() {
		return nil, NewDocumentError(op, ErrPageOutOfRange, fmt.Sprintf("page %d of %d", page, d.reader.NumPage()))
	}

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}

	xobjects := p.V.Key("Resources").Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return nil, nil
	}

	keys := xobjects.Keys()
	sort.Strings(keys)
	for _, name := range keys {
		obj := xobjects.Key(name)
		if obj.Kind() != pdf.Stream && obj.Kind() != pdf.Dict {
			continue
		}
		if obj.Key("Subtype").Name() != "Image" {
			continue
		}
		images = append(images, ImageInfo{
			Name:             name,
			Width:            int(obj.Key("Width").Int64()),
			Height:           int(obj.Key("Height").Int64()),
			ColorSpace:       colorSpaceName(obj.Key("ColorSpace")),
			BitsPerComponent: int(obj.Key("BitsPerComponent").Int64()),
		})
	}
	return images, nil
}

// colorSpaceName resolves a ColorSpace entry to a printable name. Array
// forms such as ICCBased report their family name.
func colorSpaceName(v pdf.Value) string {
	switch v.Kind() {
	case pdf.Name:
		return v.Name()
	case pdf.Array:
		if v.Len() > 0 {
			return v.Index(0).Name()
		}
	}
	return ""
}
