// Package numeric finds figures in report text and converts them to float64.
//
// Figures may carry thousands separators, a currency symbol, a sign and a
// percent mark. Whether '.' or ',' is the decimal mark is decided from the
// figure itself where possible and from a locale hint otherwise.
package numeric
