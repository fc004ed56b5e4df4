package identity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/flame-data/pkg/errors"
)

// A ChI string is "<prefix>/<formula>/<layer>/<layer>...", where the prefix is
// "InChI=1S" or "AMChI=1" and every further layer starts with a one-letter tag.
// Multi-component strings list components in the formula layer separated by
// "." (with optional leading counts, "2H2O") and in most other layers
// separated by ";" (with optional "n*" repeats). The /m layer is "."
// separated and the /s and /p layers apply to every component.

var (
	formulaComponentRe = regexp.MustCompile(`^(\d+)?(.*)$`)
	layerComponentRe   = regexp.MustCompile(`^(?:(\d+)\*)?(.*)$`)
)

type chiLayer struct {
	tag   byte
	value string
}

type chiParts struct {
	prefix  string
	formula string
	layers  []chiLayer
}

func parseChI(chi string) (chiParts, error) {
	fields := strings.Split(chi, "/")
	if len(fields) < 2 || !strings.Contains(fields[0], "=") || fields[1] == "" {
		return chiParts{}, errors.Newf(errors.ErrCodeMalformedIdentifier, "Malformed ChI string %q", chi)
	}
	p := chiParts{prefix: fields[0], formula: fields[1]}
	for _, f := range fields[2:] {
		if f == "" {
			continue
		}
		p.layers = append(p.layers, chiLayer{tag: f[0], value: f[1:]})
	}
	return p, nil
}

// SplitChI splits a multi-component InChI or AMChI string into one string per
// component. A single-component string is returned as a one-element slice.
func SplitChI(chi string) ([]string, error) {
	p, err := parseChI(chi)
	if err != nil {
		return nil, err
	}

	formulas, err := expandLayer(p.formula, ".", formulaComponentRe, 0)
	if err != nil {
		return nil, err
	}
	n := len(formulas)
	if n <= 1 {
		return []string{chi}, nil
	}

	comps := make([]chiParts, n)
	for i := range comps {
		comps[i] = chiParts{prefix: p.prefix, formula: formulas[i]}
	}
	for _, l := range p.layers {
		var values []string
		switch l.tag {
		case 's', 'p':
			values = repeat(l.value, n)
		case 'm':
			values, err = expandLayer(l.value, ".", layerComponentRe, n)
		default:
			values, err = expandLayer(l.value, ";", layerComponentRe, n)
		}
		if err != nil {
			return nil, err
		}
		for i := 0; i < n && i < len(values); i++ {
			if values[i] != "" {
				comps[i].layers = append(comps[i].layers, chiLayer{tag: l.tag, value: values[i]})
			}
		}
	}

	out := make([]string, n)
	for i, c := range comps {
		out[i] = c.String()
	}
	return out, nil
}

// JoinChI combines component strings into one multi-component string. Layer
// order follows first appearance across the components.
func JoinChI(chis []string) (string, error) {
	if len(chis) == 0 {
		return "", errors.New(errors.ErrCodeMalformedIdentifier, "Cannot join an empty ChI list")
	}
	if len(chis) == 1 {
		return chis[0], nil
	}

	parts := make([]chiParts, len(chis))
	var tags []byte
	seen := map[byte]bool{}
	for i, chi := range chis {
		p, err := parseChI(chi)
		if err != nil {
			return "", err
		}
		parts[i] = p
		for _, l := range p.layers {
			if !seen[l.tag] {
				seen[l.tag] = true
				tags = append(tags, l.tag)
			}
		}
	}

	joined := chiParts{prefix: parts[0].prefix}
	formulas := make([]string, len(parts))
	for i, p := range parts {
		formulas[i] = p.formula
	}
	joined.formula = strings.Join(formulas, ".")

	for _, tag := range tags {
		values := make([]string, len(parts))
		for i, p := range parts {
			values[i] = p.layer(tag)
		}
		switch tag {
		case 's', 'p':
			joined.layers = append(joined.layers, chiLayer{tag: tag, value: firstNonEmpty(values)})
		case 'm':
			joined.layers = append(joined.layers, chiLayer{tag: tag, value: strings.Join(values, ".")})
		default:
			joined.layers = append(joined.layers, chiLayer{tag: tag, value: strings.Join(values, ";")})
		}
	}
	return joined.String(), nil
}

func (p chiParts) layer(tag byte) string {
	for _, l := range p.layers {
		if l.tag == tag {
			return l.value
		}
	}
	return ""
}

func (p chiParts) String() string {
	var sb strings.Builder
	sb.WriteString(p.prefix)
	sb.WriteByte('/')
	sb.WriteString(p.formula)
	for _, l := range p.layers {
		sb.WriteByte('/')
		sb.WriteByte(l.tag)
		sb.WriteString(l.value)
	}
	return sb.String()
}

func expandLayer(layer, sep string, re *regexp.Regexp, n int) ([]string, error) {
	if layer == "" {
		return make([]string, n), nil
	}
	var out []string
	for _, item := range strings.Split(layer, sep) {
		m := re.FindStringSubmatch(item)
		if m == nil {
			return nil, errors.Newf(errors.ErrCodeMalformedIdentifier, "Bad ChI layer %q", layer)
		}
		count := 1
		if m[1] != "" {
			c, err := strconv.Atoi(m[1])
			if err != nil || c < 1 {
				return nil, errors.Newf(errors.ErrCodeMalformedIdentifier, "Bad ChI layer %q", layer)
			}
			count = c
		}
		out = append(out, repeat(m[2], count)...)
	}
	return out, nil
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
