// Package scss compiles the SCSS subset used by the stylesheet sources:
// variables (with !default and !global), nested rules with the parent
// selector '&', line comments, @import of partials, @media bubbling and
// parameterised mixins. Control directives, functions and @extend are
// rejected with a positioned error.
package scss
