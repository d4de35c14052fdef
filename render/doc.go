// Package render attaches the line layout of a rendered deck to the text
// shapes of a presentation.
//
// Rendering itself is delegated to external tools behind two small
// interfaces: a Renderer turns a PPTX file into a PDF (LibreOffice) and a
// LineSource reads positioned text lines back out of that PDF (MuPDF's
// mutool, with page sizes from pdfcpu). Enrich then maps every line onto
// the slide that shares its page number.
package render
