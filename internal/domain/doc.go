// Package domain models radar performance measurements and the pure
// transformations applied to them between the intake directory and the
// dashboard.
//
// # Data Source
//
// Field instruments periodically export semicolon-delimited text files into an
// intake directory. Each file has one header row followed by one row per radar
// per day:
//
//	Date;Radar Name;pdssr;pdpsr;pda;pdc;iva;ivc;fc;ft;mt;rng;azim;
//	04/03/2022 00:00;S723E;81,5;99,2;97,0;96,4;0,3;0,1;0,0;0,2;0,1;-12,5;0,04;
//
// # Locale Conventions
//
// Decimal separator:
//
//	The exporting locale writes "," as the decimal separator. Because ";" is the
//	field delimiter, values are canonicalized with a two-step substitution
//	(";" -> ",", then "," -> "."), so "81,5" becomes "81.5".
//
// Date format (per input family, see [Schema]):
//
//	daily: DD/MM/YYYY, optionally followed by a time of day that is discarded.
//	otr:   DD-MM-YY.
//	Stored dates are always canonical ISO dates (2006-01-02), UTC, no time.
//
// Trailing columns:
//
//	Exports end every line with a delimiter, which yields an empty trailing
//	column. Families declare how many trailing columns to discard.
//
// Empty or unparseable metric values are stored as NULL rather than rejecting
// the row.
//
// # Metric Groups
//
//	probability: pdssr, pdpsr, pda, pdc   percentage points, shown as 0.0-1.0
//	error:       iva, ivc, fc, ft, mt     shown as delivered
//	bias:        rng, azim                never scaled
//
// # Time Window
//
// Rows older than the retention horizon (5 years by default) or dated after
// the current day are dropped during normalization. Views additionally hide
// the current day, which has not elapsed yet. All "now" comparisons use the
// package clock so tests can freeze time via [SetClock].
//
// # Outliers
//
// Views can flag values outside the Tukey fences Q1-1.5*IQR and Q3+1.5*IQR,
// computed per metric over the selected window only. The same value may be
// flagged in one window and not in another.
package domain
