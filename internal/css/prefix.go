package css

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	webkit = "-webkit-"
	moz    = "-moz-"
	ms     = "-ms-"
)

var (
	// Flexbox as specified in 2009 (display: box).
	flex2009 = support{Chrome: "< 21", Safari: "< 6.1", IOS: "< 7", Android: "< 4.4"}
	// Flexbox 2012 syntax under -webkit-.
	flexWebkit = support{Chrome: "< 29", Safari: "< 9", IOS: "< 9", Opera: ">= 15, < 17"}
	// Flexbox 2012 syntax under -ms- (Internet Explorer 10).
	flexMS = support{IE: "= 10"}
)

type propertyPrefix struct {
	prefix string
	need   support
}

// propertyPrefixes lists, per standard property, the prefixed spellings
// and the browsers that require them, in output order.
var propertyPrefixes = map[string][]propertyPrefix{
	"transform": {
		{webkit, support{Chrome: "< 36", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 23"}},
		{ms, support{IE: "= 9"}},
	},
	"transform-origin": {
		{webkit, support{Chrome: "< 36", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 23"}},
		{ms, support{IE: "= 9"}},
	},
	"transform-style":     {{webkit, support{Chrome: "< 36", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 23"}}},
	"perspective":         {{webkit, support{Chrome: "< 36", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 23"}}},
	"perspective-origin":  {{webkit, support{Chrome: "< 36", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 23"}}},
	"backface-visibility": {{webkit, support{Chrome: "< 36", Safari: "< 16", IOS: "< 15.4", Android: "< 5", Opera: "< 23"}}},
	"transition": {
		{webkit, support{Chrome: "< 26", Safari: "< 6.1", IOS: "< 7", Android: "< 4.4", Opera: "< 12.1"}},
		{"-o-", support{Opera: "< 12.1"}},
	},
	"transition-property":        {{webkit, support{Chrome: "< 26", Safari: "< 6.1", IOS: "< 7", Android: "< 4.4"}}},
	"transition-duration":        {{webkit, support{Chrome: "< 26", Safari: "< 6.1", IOS: "< 7", Android: "< 4.4"}}},
	"transition-timing-function": {{webkit, support{Chrome: "< 26", Safari: "< 6.1", IOS: "< 7", Android: "< 4.4"}}},
	"transition-delay":           {{webkit, support{Chrome: "< 26", Safari: "< 6.1", IOS: "< 7", Android: "< 4.4"}}},
	"animation":                  {{webkit, support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}}},
	"animation-name":             {{webkit, support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}}},
	"animation-duration":         {{webkit, support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}}},
	"animation-delay":            {{webkit, support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}}},
	"animation-iteration-count":  {{webkit, support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}}},
	"animation-fill-mode":        {{webkit, support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}}},
	"animation-timing-function":  {{webkit, support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}}},
	"user-select": {
		{webkit, support{Chrome: "< 54", Safari: "< 99", IOS: "< 99", Android: "< 99", Opera: "< 41"}},
		{moz, support{Firefox: "< 69"}},
		{ms, support{IE: ">= 10", Edge: "< 79"}},
	},
	"box-sizing": {
		{webkit, support{Chrome: "< 10", Safari: "< 5.1", IOS: "< 5", Android: "< 4"}},
		{moz, support{Firefox: "< 29"}},
	},
	"appearance": {
		{webkit, support{Chrome: "< 84", Safari: "< 15.4", IOS: "< 15.4", Android: "< 99", Opera: "< 70"}},
		{moz, support{Firefox: "< 80"}},
	},
	"hyphens": {
		{webkit, support{Safari: "< 99", IOS: "< 99"}},
		{moz, support{Firefox: "< 43"}},
		{ms, support{IE: ">= 10", Edge: "< 79"}},
	},
	"background-clip": {{webkit, support{Chrome: "< 120", Safari: "< 99", IOS: "< 99", Android: "< 99", Edge: "< 120", Opera: "< 106"}}},
	"column-count":    {{webkit, support{Chrome: "< 50", Safari: "< 9", IOS: "< 9", Android: "< 99"}}, {moz, support{Firefox: "< 52"}}},
	"column-gap":      {{webkit, support{Chrome: "< 50", Safari: "< 9", IOS: "< 9", Android: "< 99"}}, {moz, support{Firefox: "< 52"}}},
	"columns":         {{webkit, support{Chrome: "< 50", Safari: "< 9", IOS: "< 9", Android: "< 99"}}, {moz, support{Firefox: "< 52"}}},
	"filter":          {{webkit, support{Chrome: "< 53", Safari: "< 9.1", IOS: "< 9.3", Android: "< 99", Opera: "< 40"}}},
	"flex-direction": {
		{webkit, flexWebkit},
		{ms, flexMS},
	},
	"flex-wrap": {
		{webkit, flexWebkit},
		{ms, flexMS},
	},
	"flex-flow": {
		{webkit, flexWebkit},
		{ms, flexMS},
	},
	"flex": {
		{webkit, flexWebkit},
		{ms, flexMS},
	},
	"flex-grow":       {{webkit, flexWebkit}},
	"flex-shrink":     {{webkit, flexWebkit}},
	"flex-basis":      {{webkit, flexWebkit}},
	"order":           {{webkit, flexWebkit}, {ms, flexMS}},
	"align-self":      {{webkit, flexWebkit}, {ms, flexMS}},
	"align-items":     {{webkit, flexWebkit}, {ms, flexMS}},
	"align-content":   {{webkit, flexWebkit}, {ms, flexMS}},
	"justify-content": {{webkit, flexWebkit}, {ms, flexMS}},
}

// msFlexNames are the IE 10 spellings that differ from the standard name.
var msFlexNames = map[string]string{
	"order":           "-ms-flex-order",
	"align-self":      "-ms-flex-item-align",
	"align-items":     "-ms-flex-align",
	"align-content":   "-ms-flex-line-pack",
	"justify-content": "-ms-flex-pack",
}

// msFlexValues maps standard alignment keywords to their IE 10 spelling.
var msFlexValues = map[string]string{
	"flex-start":    "start",
	"flex-end":      "end",
	"space-between": "justify",
	"space-around":  "distribute",
}

type valuePrefix struct {
	value string
	need  support
}

// valuePrefixes lists prefixed keyword values, keyed by property and then
// by standard value.
var valuePrefixes = map[string]map[string][]valuePrefix{
	"display": {
		"flex": {
			{"-webkit-box", flex2009},
			{"-webkit-flex", flexWebkit},
			{"-ms-flexbox", flexMS},
		},
		"inline-flex": {
			{"-webkit-inline-box", flex2009},
			{"-webkit-inline-flex", flexWebkit},
			{"-ms-inline-flexbox", flexMS},
		},
	},
	"position": {
		"sticky": {{"-webkit-sticky", support{Safari: "< 13", IOS: "< 13"}}},
	},
}

type placeholderPrefix struct {
	selector string
	need     support
}

var placeholderPrefixes = []placeholderPrefix{
	{"::-webkit-input-placeholder", support{Chrome: "< 57", Safari: "< 10.1", IOS: "< 10.3", Android: "< 99", Opera: "< 44"}},
	{"::-moz-placeholder", support{Firefox: "< 51"}},
	{":-ms-input-placeholder", support{IE: ">= 10"}},
	{"::-ms-input-placeholder", support{Edge: "< 79"}},
}

var keyframesWebkit = support{Chrome: "< 43", Safari: "< 9", IOS: "< 9", Android: "< 5", Opera: "< 30"}

// Prefixer adds vendor-prefixed declarations, values, selectors and
// at-rules required by a browser matrix.
//
// Prefixed forms are inserted before the standard form. A prefixed
// declaration already present in the rule is left alone.
type Prefixer struct {
	matrix   *Matrix
	flexbugs bool
}

// NewPrefixer creates a prefixer for m. When flexbugs is set, flex
// shorthand values are also rewritten to avoid known browser bugs.
func NewPrefixer(m *Matrix, flexbugs bool) *Prefixer {
	return &Prefixer{matrix: m, flexbugs: flexbugs}
}

// Process rewrites s in place.
func (p *Prefixer) Process(s *Stylesheet) {
	s.Nodes = p.nodes(s.Nodes, "")
}

// nodes processes a node list. only restricts output to one prefix, as
// inside @-webkit-keyframes.
func (p *Prefixer) nodes(in []Node, only string) []Node {
	out := make([]Node, 0, len(in))
	webkitFrames := make(map[string]bool)
	for _, n := range in {
		if a, ok := n.(*AtRule); ok && a.Name == "-webkit-keyframes" {
			webkitFrames[a.Prelude] = true
		}
	}
	for _, n := range in {
		switch v := n.(type) {
		case *Rule:
			if only == "" {
				out = append(out, p.placeholderRules(v)...)
			}
			v.Declarations = p.declarations(v.Declarations, only)
			out = append(out, v)
		case *AtRule:
			if only == "" && v.Name == "keyframes" && !webkitFrames[v.Prelude] && p.matrix.needsAny(keyframesWebkit) {
				prefixed := Clone(v).(*AtRule)
				prefixed.Name = "-webkit-keyframes"
				prefixed.Children = p.nodes(prefixed.Children, webkit)
				out = append(out, prefixed)
			}
			if strings.HasPrefix(v.Name, "-webkit-") {
				v.Children = p.nodes(v.Children, webkit)
			} else {
				v.Children = p.nodes(v.Children, only)
			}
			v.Declarations = p.declarations(v.Declarations, only)
			out = append(out, v)
		default:
			out = append(out, n)
		}
	}
	return out
}

func (p *Prefixer) placeholderRules(r *Rule) []Node {
	var out []Node
	for _, pp := range placeholderPrefixes {
		if !p.matrix.needsAny(pp.need) {
			continue
		}
		var sels []string
		for _, s := range r.Selectors {
			if strings.Contains(s, "::placeholder") {
				sels = append(sels, strings.ReplaceAll(s, "::placeholder", pp.selector))
			}
		}
		if len(sels) == 0 {
			continue
		}
		out = append(out, &Rule{Selectors: sels, Declarations: append([]Declaration(nil), r.Declarations...), Origin: r.Origin})
	}
	return out
}

func (p *Prefixer) declarations(in []Declaration, only string) []Declaration {
	present := make(map[string]bool, len(in))
	for _, d := range in {
		present[d.Property+":"+d.Value] = true
		present[d.Property] = true
	}

	out := make([]Declaration, 0, len(in))
	for _, d := range in {
		if p.flexbugs && d.Property == "flex" {
			d.Value = FixFlexShorthand(d.Value)
		}
		for _, extra := range p.prefixed(d, only) {
			key := extra.Property + ":" + extra.Value
			if present[key] {
				continue
			}
			if extra.Property != d.Property && present[extra.Property] {
				continue
			}
			present[key] = true
			out = append(out, extra)
		}
		out = append(out, d)
	}
	return out
}

// prefixed returns the declarations to insert before d.
func (p *Prefixer) prefixed(d Declaration, only string) []Declaration {
	prop := d.Property
	if strings.HasPrefix(prop, "-") || strings.HasPrefix(prop, "--") {
		return nil
	}
	var out []Declaration
	add := func(property, value string) {
		if only != "" && !strings.HasPrefix(property, only) && !strings.HasPrefix(value, only) {
			return
		}
		out = append(out, Declaration{Property: property, Value: value, Important: d.Important, Origin: d.Origin})
	}

	if only == "" && p.matrix.needsAny(flex2009) {
		for _, b := range flexbox2009(prop, d.Value) {
			add(b.Property, b.Value)
		}
	}

	if values, ok := valuePrefixes[prop]; ok {
		for _, vp := range values[strings.ToLower(d.Value)] {
			if p.matrix.needsAny(vp.need) {
				add(prop, vp.value)
			}
		}
	}

	for _, pp := range propertyPrefixes[prop] {
		if !p.matrix.needsAny(pp.need) {
			continue
		}
		name := pp.prefix + prop
		value := d.Value
		if pp.prefix == ms {
			if alt, ok := msFlexNames[prop]; ok {
				name = alt
				if v, ok := msFlexValues[value]; ok {
					value = v
				}
			}
		}
		if pp.prefix == webkit && strings.HasPrefix(prop, "transition") {
			value = p.prefixTransitionValue(value)
		}
		add(name, value)
	}
	return out
}

var transitionWords = regexp.MustCompile(`[A-Za-z-]+`)

// prefixTransitionValue rewrites transitioned property names that
// themselves need -webkit-.
func (p *Prefixer) prefixTransitionValue(v string) string {
	return transitionWords.ReplaceAllStringFunc(v, func(w string) string {
		for _, pp := range propertyPrefixes[w] {
			if pp.prefix == webkit && p.matrix.needsAny(pp.need) {
				return webkit + w
			}
		}
		return w
	})
}

// flexbox2009 translates a declaration into the 2009 box model.
func flexbox2009(prop, value string) []Declaration {
	v := strings.ToLower(strings.TrimSpace(value))
	switch prop {
	case "flex-direction":
		orient, dir := "horizontal", "normal"
		switch v {
		case "column":
			orient = "vertical"
		case "row-reverse":
			dir = "reverse"
		case "column-reverse":
			orient, dir = "vertical", "reverse"
		case "row":
		default:
			return nil
		}
		return []Declaration{
			{Property: "-webkit-box-orient", Value: orient},
			{Property: "-webkit-box-direction", Value: dir},
		}
	case "justify-content":
		if m, ok := boxAlign(v); ok && v != "stretch" && v != "baseline" {
			return []Declaration{{Property: "-webkit-box-pack", Value: m}}
		}
	case "align-items":
		if m, ok := boxAlign(v); ok && v != "space-between" {
			return []Declaration{{Property: "-webkit-box-align", Value: m}}
		}
	case "order":
		if n, err := strconv.Atoi(v); err == nil {
			return []Declaration{{Property: "-webkit-box-ordinal-group", Value: strconv.Itoa(n + 1)}}
		}
	case "flex":
		fields := strings.Fields(v)
		if len(fields) > 0 {
			if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
				return []Declaration{{Property: "-webkit-box-flex", Value: fields[0]}}
			}
		}
	}
	return nil
}

func boxAlign(v string) (string, bool) {
	switch v {
	case "flex-start":
		return "start", true
	case "flex-end":
		return "end", true
	case "center", "baseline", "stretch":
		return v, true
	case "space-between":
		return "justify", true
	}
	return "", false
}

// FixFlexShorthand rewrites flex shorthand values that trigger known
// browser bugs: a bare or two-number grow/shrink gets an explicit "0%"
// basis and a unitless zero basis becomes "0%".
func FixFlexShorthand(value string) string {
	fields := strings.Fields(value)
	isNumber := func(s string) bool {
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	}
	switch len(fields) {
	case 1:
		if isNumber(fields[0]) {
			return fields[0] + " 1 0%"
		}
	case 2:
		if isNumber(fields[0]) && isNumber(fields[1]) {
			return fields[0] + " " + fields[1] + " 0%"
		}
	case 3:
		if fields[2] == "0" || fields[2] == "0px" {
			return fields[0] + " " + fields[1] + " 0%"
		}
	}
	return value
}
