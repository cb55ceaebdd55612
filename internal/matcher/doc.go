// Package matcher finds a local place record in a search provider's index.
//
// Match runs the tiered lookup (phone, nearby, wider nearby, free text),
// scores every distinct candidate against the record, and classifies the
// ranked list as matched, review, or unmatched. When the best score after
// the first pass is too low and the text tier has not run yet, the text tier
// runs once more and its candidates join the pool before the final scoring.
//
// Score and Classify are pure and can be used on their own, for example to
// re-evaluate stored candidates against new thresholds.
package matcher
