// Package fuzzy scores how closely two pieces of text match.
//
// Scores are edit-distance ratios in [0, 1] computed on normalized text:
// Unicode NFKC, case folded, typographic punctuation mapped to ASCII and
// whitespace collapsed. The default matcher is substring-aware so a
// disclaimer can be found inside the longer text of a page.
package fuzzy
