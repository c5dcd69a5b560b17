package css

import (
	"regexp"
	"strconv"
	"strings"
)

// Flip mirrors a left-to-right stylesheet into its right-to-left variant
// in place: physical left/right properties and keywords swap, four-value
// box shorthands exchange their horizontal sides, and horizontal offsets in
// shadows, transforms and percentage positions are mirrored.
func Flip(s *Stylesheet) {
	flipNodes(s.Nodes)
}

func flipNodes(nodes []Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *Rule:
			flipDeclarations(v.Declarations)
		case *AtRule:
			flipDeclarations(v.Declarations)
			flipNodes(v.Children)
		}
	}
}

func flipDeclarations(decls []Declaration) {
	for i := range decls {
		decls[i] = FlipDeclaration(decls[i])
	}
}

var boxShorthands = map[string]bool{
	"margin":        true,
	"padding":       true,
	"border-width":  true,
	"border-style":  true,
	"border-color":  true,
	"inset":         true,
	"scroll-margin": true,
}

var keywordProperties = map[string]bool{
	"float":           true,
	"clear":           true,
	"text-align":      true,
	"text-align-last": true,
	"caption-side":    true,
	"direction":       true,
}

var cursorSwap = map[string]string{
	"e-resize":    "w-resize",
	"w-resize":    "e-resize",
	"ne-resize":   "nw-resize",
	"nw-resize":   "ne-resize",
	"se-resize":   "sw-resize",
	"sw-resize":   "se-resize",
	"nesw-resize": "nwse-resize",
	"nwse-resize": "nesw-resize",
}

var words = regexp.MustCompile(`[A-Za-z-]+`)

// FlipDeclaration returns the right-to-left form of d.
func FlipDeclaration(d Declaration) Declaration {
	if strings.HasPrefix(d.Property, "--") {
		return d
	}
	d.Property = flipName(d.Property)
	base := unprefixed(d.Property)

	switch {
	case keywordProperties[base]:
		d.Value = swapKeywords(d.Value)
	case boxShorthands[base]:
		d.Value = flipBox(d.Value)
	case base == "border-radius":
		d.Value = flipRadius(d.Value)
	case base == "background-position" || base == "background-position-x" || base == "object-position":
		d.Value = flipPosition(d.Value)
	case base == "background":
		d.Value = flipBackground(d.Value)
	case base == "transform":
		d.Value = flipTransform(d.Value)
	case base == "cursor":
		d.Value = words.ReplaceAllStringFunc(d.Value, func(w string) string {
			if s, ok := cursorSwap[strings.ToLower(w)]; ok {
				return s
			}
			return w
		})
	case base == "box-shadow" || base == "text-shadow":
		d.Value = flipShadow(d.Value)
	case base == "transition" || base == "transition-property":
		d.Value = words.ReplaceAllStringFunc(d.Value, flipName)
	}
	return d
}

func unprefixed(prop string) string {
	if strings.HasPrefix(prop, "-") {
		if i := strings.Index(prop[1:], "-"); i >= 0 {
			return prop[i+2:]
		}
	}
	return prop
}

// flipName swaps "left" and "right" segments of a hyphenated name.
func flipName(name string) string {
	parts := strings.Split(name, "-")
	changed := false
	for i, p := range parts {
		switch strings.ToLower(p) {
		case "left":
			parts[i] = "right"
			changed = true
		case "right":
			parts[i] = "left"
			changed = true
		}
	}
	if !changed {
		return name
	}
	return strings.Join(parts, "-")
}

func swapKeywords(v string) string {
	return words.ReplaceAllStringFunc(v, func(w string) string {
		switch strings.ToLower(w) {
		case "left":
			return "right"
		case "right":
			return "left"
		case "ltr":
			return "rtl"
		case "rtl":
			return "ltr"
		}
		return w
	})
}

// splitTop splits v on sep outside parentheses and quotes. A space sep
// splits on any whitespace run.
func splitTop(v string, sep byte) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (c == sep || (sep == ' ' && (c == '\t' || c == '\n'))):
			if part := strings.TrimSpace(v[start:i]); part != "" || sep != ' ' {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(v[start:]); part != "" || sep != ' ' {
		out = append(out, part)
	}
	return out
}

func flipBox(v string) string {
	parts := splitTop(v, ' ')
	if len(parts) != 4 {
		return v
	}
	parts[1], parts[3] = parts[3], parts[1]
	return strings.Join(parts, " ")
}

func flipRadius(v string) string {
	halves := splitTop(v, '/')
	for i, h := range halves {
		parts := splitTop(h, ' ')
		switch len(parts) {
		case 2:
			parts = []string{parts[1], parts[0]}
		case 3:
			parts = []string{parts[1], parts[0], parts[1], parts[2]}
		case 4:
			parts = []string{parts[1], parts[0], parts[3], parts[2]}
		}
		halves[i] = strings.Join(parts, " ")
	}
	return strings.Join(halves, " / ")
}

func flipPosition(v string) string {
	layers := splitTop(v, ',')
	for i, layer := range layers {
		parts := splitTop(layer, ' ')
		for j, p := range parts {
			switch strings.ToLower(p) {
			case "left":
				parts[j] = "right"
				continue
			case "right":
				parts[j] = "left"
				continue
			}
			if j == 0 && strings.HasSuffix(p, "%") {
				parts[j] = mirrorPercent(p)
			}
		}
		layers[i] = strings.Join(parts, " ")
	}
	return strings.Join(layers, ", ")
}

// flipBackground swaps position keywords in every layer of a background
// shorthand and mirrors a leading horizontal percentage. Sizes after "/"
// are left alone.
func flipBackground(v string) string {
	layers := splitTop(v, ',')
	for i, layer := range layers {
		parts := splitTop(layer, ' ')
		position := true
		for j, p := range parts {
			if strings.Contains(p, "(") {
				continue
			}
			head, size, sized := strings.Cut(p, "/")
			switch strings.ToLower(head) {
			case "left":
				head = "right"
			case "right":
				head = "left"
			default:
				if position && strings.HasSuffix(head, "%") {
					head = mirrorPercent(head)
					position = false
				} else if isLength(head) {
					position = false
				}
			}
			if sized {
				parts[j] = head + "/" + size
				position = false
				continue
			}
			parts[j] = head
		}
		layers[i] = strings.Join(parts, " ")
	}
	return strings.Join(layers, ", ")
}

func mirrorPercent(p string) string {
	f, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
	if err != nil {
		return p
	}
	return strconv.FormatFloat(100-f, 'f', -1, 64) + "%"
}

var transformFunc = regexp.MustCompile(`(?i)\b(translate3d|translatex|translate|rotatez|rotate|skewx|skewy|skew)\(([^()]*)\)`)

// flipTransform negates horizontal translations, rotations around the
// screen axis and skews.
func flipTransform(v string) string {
	return transformFunc.ReplaceAllStringFunc(v, func(call string) string {
		m := transformFunc.FindStringSubmatch(call)
		args := strings.Split(m[2], ",")
		n := 1
		if strings.EqualFold(m[1], "skew") {
			n = len(args)
		}
		for i := 0; i < n && i < len(args); i++ {
			arg := strings.TrimSpace(args[i])
			if !isLength(arg) {
				continue
			}
			lead := args[i][:strings.Index(args[i], arg)]
			args[i] = lead + negate(arg) + args[i][len(lead)+len(arg):]
		}
		return m[1] + "(" + strings.Join(args, ",") + ")"
	})
}

func flipShadow(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), "none") {
		return v
	}
	shadows := splitTop(v, ',')
	for i, s := range shadows {
		parts := splitTop(s, ' ')
		for j, p := range parts {
			if !isLength(p) {
				continue
			}
			parts[j] = negate(p)
			break
		}
		shadows[i] = strings.Join(parts, " ")
	}
	return strings.Join(shadows, ", ")
}

var lengthPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([a-zA-Z%]*)$`)

func isLength(s string) bool {
	return lengthPattern.MatchString(s)
}

func negate(s string) string {
	m := lengthPattern.FindStringSubmatch(s)
	if f, err := strconv.ParseFloat(m[1], 64); err == nil && f == 0 {
		return s
	}
	switch s[0] {
	case '-':
		return s[1:]
	case '+':
		return "-" + s[1:]
	}
	return "-" + s
}
