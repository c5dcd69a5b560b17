// Package css holds the stylesheet tree shared by the compiler and the
// post-compile stages, plus those stages: vendor prefixing driven by a
// browser matrix, flexbox bug fixes, and right-to-left flipping.
//
// Stages work on *Stylesheet values. Text enters through Parse and leaves
// through Print, so every stage remains text-in, text-out at the pipeline
// boundary.
package css
