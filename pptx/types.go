package pptx

import (
	"encoding/xml"
	"io"
)

// XML namespaces used in PPTX files.
const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes   = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// Relationship types referenced by the reader and writer.
const (
	RelTypeOfficeDocument = nsRelationships + "/officeDocument"
	RelTypeSlide          = nsRelationships + "/slide"
	RelTypeSlideLayout    = nsRelationships + "/slideLayout"
	RelTypeSlideMaster    = nsRelationships + "/slideMaster"
	RelTypeTheme          = nsRelationships + "/theme"
	RelTypeImage          = nsRelationships + "/image"
	RelTypeHyperlink      = nsRelationships + "/hyperlink"
)

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIdList *slideIdListXML `xml:"sldIdLst"`
	SlideSz     *slideSzXML     `xml:"sldSz"`
}

type slideIdListXML struct {
	SlideId []slideIdXML `xml:"sldId"`
}

type slideIdXML struct {
	ID  string `xml:"id,attr"`
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"` // r:id attribute for relationship
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// contentTypesXML represents [Content_Types].xml.
type contentTypesXML struct {
	XMLName  xml.Name             `xml:"Types"`
	Default  []contentDefaultXML  `xml:"Default"`
	Override []contentOverrideXML `xml:"Override"`
}

type contentDefaultXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentOverrideXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// relationshipsXML represents .rels files.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// partXML is the common shape of slides, layouts and masters: all we need
// from a layout or master is its shape tree.
type partXML struct {
	CSld struct {
		SpTree struct {
			Shapes []shapeXML `xml:",any"`
		} `xml:"spTree"`
	} `xml:"cSld"`
}

// shapeXML decodes any direct child of a shape tree. Only the fields of the
// element's own kind are populated.
type shapeXML struct {
	XMLName xml.Name

	NvSpPr           *nvPropsXML `xml:"nvSpPr"`
	NvPicPr          *nvPropsXML `xml:"nvPicPr"`
	NvGrpSpPr        *nvPropsXML `xml:"nvGrpSpPr"`
	NvGraphicFramePr *nvPropsXML `xml:"nvGraphicFramePr"`
	NvCxnSpPr        *nvPropsXML `xml:"nvCxnSpPr"`

	SpPr    *spPrXML `xml:"spPr"`
	GrpSpPr *spPrXML `xml:"grpSpPr"`
	Xfrm    *xfrmXML `xml:"xfrm"` // graphicFrame carries its transform directly

	TxBody   *txBodyXML   `xml:"txBody"`
	BlipFill *blipFillXML `xml:"blipFill"`
}

// nonVisual returns whichever non-visual property group the element has.
func (s *shapeXML) nonVisual() *nvPropsXML {
	for _, nv := range []*nvPropsXML{s.NvSpPr, s.NvPicPr, s.NvGrpSpPr, s.NvGraphicFramePr, s.NvCxnSpPr} {
		if nv != nil {
			return nv
		}
	}
	return nil
}

// transform returns the element's own transform, if any.
func (s *shapeXML) transform() *xfrmXML {
	switch {
	case s.SpPr != nil && s.SpPr.Xfrm != nil:
		return s.SpPr.Xfrm
	case s.GrpSpPr != nil && s.GrpSpPr.Xfrm != nil:
		return s.GrpSpPr.Xfrm
	}
	return s.Xfrm
}

type nvPropsXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
	NvPr  nvPrXML  `xml:"nvPr"`
}

type cNvPrXML struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"` // Placeholder info
}

type phXML struct {
	Type string `xml:"type,attr"` // title, body, subTitle, ctrTitle, etc.
	Idx  *int   `xml:"idx,attr"`
}

type spPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
}

type xfrmXML struct {
	Off offXML `xml:"off"`
	Ext extXML `xml:"ext"`
}

type offXML struct {
	X int64 `xml:"x,attr"` // X position in EMUs
	Y int64 `xml:"y,attr"` // Y position in EMUs
}

type extXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// txBodyXML represents text body content.
type txBodyXML struct {
	BodyPr bodyPrXML `xml:"bodyPr"`
	P      []pXML    `xml:"p"` // Paragraphs
}

type bodyPrXML struct {
	Anchor string `xml:"anchor,attr"` // t, ctr, b (top, center, bottom)
	Wrap   string `xml:"wrap,attr"`
	LIns   *int64 `xml:"lIns,attr"`
	TIns   *int64 `xml:"tIns,attr"`
	RIns   *int64 `xml:"rIns,attr"`
	BIns   *int64 `xml:"bIns,attr"`
}

// pXML represents a paragraph. Runs, fields and line breaks are kept in
// document order, which struct tags alone cannot do.
type pXML struct {
	PPr   *pPrXML
	Items []runXML
}

// UnmarshalXML implements xml.Unmarshaler.
func (p *pXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				p.PPr = &pPrXML{}
				if err := d.DecodeElement(p.PPr, &t); err != nil {
					return err
				}
			case "r", "fld":
				var r runXML
				if err := d.DecodeElement(&r, &t); err != nil {
					return err
				}
				p.Items = append(p.Items, r)
			case "br":
				var r runXML
				if err := d.DecodeElement(&r, &t); err != nil {
					return err
				}
				r.Break = true
				p.Items = append(p.Items, r)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

type pPrXML struct {
	Algn   string      `xml:"algn,attr"` // Alignment: l, ctr, r, just, dist
	LnSpc  *spacingXML `xml:"lnSpc"`
	SpcBef *spacingXML `xml:"spcBef"`
	SpcAft *spacingXML `xml:"spcAft"`
}

type spacingXML struct {
	SpcPts *valXML `xml:"spcPts"` // hundredths of a point
	SpcPct *valXML `xml:"spcPct"` // thousandths of a percent
}

type valXML struct {
	Val int `xml:"val,attr"`
}

// runXML represents a text run, a field, or a line break.
type runXML struct {
	RPr   *rPrXML `xml:"rPr"` // Run properties
	T     string  `xml:"t"`   // Text content
	Break bool    `xml:"-"`
}

type rPrXML struct {
	Sz    *int      `xml:"sz,attr"` // Font size in hundredths of a point
	B     *string   `xml:"b,attr"`
	I     *string   `xml:"i,attr"`
	U     *string   `xml:"u,attr"` // Underline type
	Latin *latinXML `xml:"latin"`
}

type latinXML struct {
	Typeface string `xml:"typeface,attr"`
}

type blipFillXML struct {
	Blip *blipXML `xml:"blip"`
}

type blipXML struct {
	Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"` // r:embed relationship ID
	Link  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships link,attr"`
}
