package identity

import (
	"strings"

	"github.com/turtacn/flame-data/pkg/errors"
)

// ReactionSmiles is a reaction SMILES split into its three fields.
type ReactionSmiles struct {
	Reactants []string
	Agents    []string
	Products  []string
}

// IsReactionSmiles reports whether smi has the reactants>agents>products shape.
func IsReactionSmiles(smi string) bool {
	_, err := ParseReactionSmiles(smi)
	return err == nil
}

// ParseReactionSmiles splits "A.B>C>D.E" into its reactant, agent and
// product components. Anything after the first space (a reaction name or
// a ChemAxon |f...| block) is ignored. Both sides must be non-empty.
func ParseReactionSmiles(smi string) (ReactionSmiles, error) {
	rxn := strings.TrimSpace(smi)
	if i := strings.IndexAny(rxn, " \t"); i >= 0 {
		rxn = rxn[:i]
	}

	fields := strings.Split(rxn, ">")
	if len(fields) != 3 {
		return ReactionSmiles{}, notAReaction(smi)
	}
	out := ReactionSmiles{
		Reactants: splitComponents(fields[0]),
		Agents:    splitComponents(fields[1]),
		Products:  splitComponents(fields[2]),
	}
	if len(out.Reactants) == 0 || len(out.Products) == 0 {
		return ReactionSmiles{}, notAReaction(smi)
	}
	return out, nil
}

// ReactantSmiles joins the reactants into one multi-component SMILES.
func (r ReactionSmiles) ReactantSmiles() string { return strings.Join(r.Reactants, ".") }

// ProductSmiles joins the products into one multi-component SMILES.
func (r ReactionSmiles) ProductSmiles() string { return strings.Join(r.Products, ".") }

// Participants returns reactants followed by products.
func (r ReactionSmiles) Participants() []string {
	out := make([]string, 0, len(r.Reactants)+len(r.Products))
	out = append(out, r.Reactants...)
	return append(out, r.Products...)
}

// String renders the reaction without agents.
func (r ReactionSmiles) String() string {
	return FormatReactionSmiles(r.Reactants, r.Products)
}

// FormatReactionSmiles builds "A.B>>C.D".
func FormatReactionSmiles(reactants, products []string) string {
	return strings.Join(reactants, ".") + ">>" + strings.Join(products, ".")
}

func splitComponents(field string) []string {
	if field == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(field, ".") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func notAReaction(smi string) error {
	return errors.Newf(errors.ErrCodeNotAReaction, "Not a reaction SMILES string: %s", smi)
}
