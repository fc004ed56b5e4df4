package identity

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/flame-data/pkg/errors"
)

// FormulaFilter narrows a connectivity search. An empty Formula matches
// everything; Partial matches every row containing the given element counts.
type FormulaFilter struct {
	Formula string
	Partial bool
}

// Formula maps element symbols to atom counts.
type Formula map[string]int

var formulaTokenRe = regexp.MustCompile(`([A-Z][a-z]?)(\d*)`)

// ParseFormula parses a molecular formula such as "C2H6O". An all-lowercase
// query ("ch4o") is upper-cased first so typed searches still match.
func ParseFormula(s string) (Formula, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Formula{}, nil
	}
	if strings.ToLower(s) == s {
		s = strings.ToUpper(s)
	}

	fml := Formula{}
	consumed := 0
	for _, m := range formulaTokenRe.FindAllStringSubmatchIndex(s, -1) {
		if m[0] != consumed {
			return nil, badFormula(s)
		}
		symb := s[m[2]:m[3]]
		count := 1
		if m[4] != m[5] {
			n, err := strconv.Atoi(s[m[4]:m[5]])
			if err != nil {
				return nil, badFormula(s)
			}
			count = n
		}
		fml[symb] += count
		consumed = m[1]
	}
	if consumed != len(s) {
		return nil, badFormula(s)
	}
	return fml, nil
}

// FormulaFromChI sums the formula layer of an InChI or AMChI string, including
// "." separated components and their leading multipliers ("2H2O").
func FormulaFromChI(chi string) (Formula, error) {
	layers := strings.Split(chi, "/")
	if len(layers) < 2 {
		return nil, errors.Newf(errors.ErrCodeMalformedIdentifier, "No formula layer in %q", chi)
	}
	total := Formula{}
	for _, comp := range strings.Split(layers[1], ".") {
		mult, rest := leadingMultiplier(comp)
		f, err := ParseFormula(rest)
		if err != nil {
			return nil, err
		}
		total.add(f, mult)
	}
	return total, nil
}

func (f Formula) add(o Formula, times int) {
	for symb, n := range o {
		f[symb] += n * times
	}
}

// String renders the formula with C, then H, then the remaining symbols in
// alphabetical order; counts of one are omitted.
func (f Formula) String() string {
	var sb strings.Builder
	for _, symb := range SortedSymbols(f) {
		n := f[symb]
		if n <= 0 {
			continue
		}
		sb.WriteString(symb)
		if n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String()
}

// HeavyAtomCount is the number of non-hydrogen atoms.
func (f Formula) HeavyAtomCount() int {
	n := 0
	for symb, c := range f {
		if symb != "H" {
			n += c
		}
	}
	return n
}

// SortedSymbols returns the symbols of every formula given, C and H first
// and the rest alphabetical, without duplicates.
func SortedSymbols(fmls ...Formula) []string {
	seen := map[string]bool{}
	var rest []string
	for _, f := range fmls {
		for symb := range f {
			if !seen[symb] {
				seen[symb] = true
				if symb != "C" && symb != "H" {
					rest = append(rest, symb)
				}
			}
		}
	}
	sort.Strings(rest)
	var out []string
	for _, symb := range []string{"C", "H"} {
		if seen[symb] {
			out = append(out, symb)
		}
	}
	return append(out, rest...)
}

// SortVector lists the counts of f for each of symbs, in order.
func (f Formula) SortVector(symbs []string) []int {
	vec := make([]int, len(symbs))
	for i, symb := range symbs {
		vec[i] = f[symb]
	}
	return vec
}

// PartialMatchPatterns builds one regular expression per element for a
// partial formula search: a row matches when its formula contains every
// element with exactly the requested count. "CH4" yields
// ["C(?![0-9a-z])", "H4(?![0-9])"].
func (f Formula) PartialMatchPatterns() []string {
	var out []string
	for _, symb := range SortedSymbols(f) {
		n := f[symb]
		if n > 1 {
			out = append(out, fmt.Sprintf("%s%d(?![0-9])", symb, n))
		} else {
			out = append(out, symb+"(?![0-9a-z])")
		}
	}
	return out
}

// SortByFormula stable-sorts rows by heavy atom count and then by the sort
// vector over the symbols of every row's formula. Rows with an unparseable
// formula sort last in their original order.
func SortByFormula[T any](rows []T, formulaOf func(T) string) {
	if len(rows) < 2 {
		return
	}
	type keyed struct {
		heavy int
		fml   Formula
		ok    bool
	}
	keys := make([]keyed, len(rows))
	var fmls []Formula
	for i, r := range rows {
		f, err := ParseFormula(formulaOf(r))
		if err != nil {
			continue
		}
		keys[i] = keyed{heavy: f.HeavyAtomCount(), fml: f, ok: true}
		fmls = append(fmls, f)
	}
	symbs := SortedSymbols(fmls...)

	idx := make([]int, len(rows))
	vecs := make([][]int, len(rows))
	for i := range rows {
		idx[i] = i
		if keys[i].ok {
			vecs[i] = keys[i].fml.SortVector(symbs)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		if ka.heavy != kb.heavy {
			return ka.heavy < kb.heavy
		}
		return lessVector(vecs[idx[a]], vecs[idx[b]])
	})

	sorted := make([]T, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
}

func lessVector(a, b []int) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func leadingMultiplier(s string) (int, string) {
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if i == 0 {
		return 1, s
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n == 0 {
		return 1, s[i:]
	}
	return n, s[i:]
}

func badFormula(s string) error {
	return errors.Newf(errors.ErrCodeBadRequest, "Invalid formula %q", s)
}
