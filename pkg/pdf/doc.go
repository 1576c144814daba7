// Package pdf renders markdown reports to PDF using fpdf.
//
// Only the subset of markdown produced by report drafting is laid out:
// #, ## and ### headings, "-" / "*" bullets, numbered lists and
// paragraphs. Text outside Latin-1 is transliterated by fpdf's cp1252
// translator.
package pdf
