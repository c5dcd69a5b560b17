package css

// Node is an entry in a stylesheet or in a block at-rule.
type Node interface {
	isNode()
}

// Origin is the source position a node was compiled from. The zero value
// means unknown.
type Origin struct {
	Source string
	// Line is one-based.
	Line int
}

// Known reports whether o carries a position.
func (o Origin) Known() bool { return o.Source != "" && o.Line > 0 }

// Declaration is a single "property: value" pair.
type Declaration struct {
	Property  string
	Value     string
	Important bool
	Origin    Origin
}

// Rule is a style rule with its selector list.
type Rule struct {
	Selectors    []string
	Declarations []Declaration
	Origin       Origin
}

// AtRule is an at-rule such as @media, @font-face or @import.
//
// Block at-rules carry either Declarations (@font-face, @page) or Children
// (@media, @supports, @keyframes), occasionally both.
type AtRule struct {
	// Name is the at-keyword without '@', e.g. "media" or "-webkit-keyframes".
	Name         string
	Prelude      string
	Block        bool
	Declarations []Declaration
	Children     []Node
	Origin       Origin
}

// Comment is a block comment including its delimiters.
type Comment struct {
	Text string
}

// Stylesheet is the root of a parsed or compiled stylesheet.
type Stylesheet struct {
	Nodes []Node
}

func (*Rule) isNode()    {}
func (*AtRule) isNode()  {}
func (*Comment) isNode() {}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Rule:
		r := &Rule{
			Selectors:    append([]string(nil), v.Selectors...),
			Declarations: append([]Declaration(nil), v.Declarations...),
			Origin:       v.Origin,
		}
		return r
	case *AtRule:
		a := &AtRule{
			Name:         v.Name,
			Prelude:      v.Prelude,
			Block:        v.Block,
			Declarations: append([]Declaration(nil), v.Declarations...),
			Origin:       v.Origin,
		}
		for _, c := range v.Children {
			a.Children = append(a.Children, Clone(c))
		}
		return a
	case *Comment:
		return &Comment{Text: v.Text}
	default:
		return n
	}
}

// isEmpty reports whether a node would print nothing.
func isEmpty(n Node) bool {
	switch v := n.(type) {
	case *Rule:
		return len(v.Declarations) == 0
	case *AtRule:
		if !v.Block {
			return false
		}
		if len(v.Declarations) > 0 {
			return false
		}
		for _, c := range v.Children {
			if !isEmpty(c) {
				if _, ok := c.(*Comment); !ok {
					return false
				}
			}
		}
		return true
	default:
		return false
	}
}
