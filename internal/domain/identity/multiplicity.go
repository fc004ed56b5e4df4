package identity

// TSLowSpinMultiplicity returns the lowest spin multiplicity of a transition
// state connecting reactants with the given multiplicities to products with
// the given multiplicities. Each side's low-spin multiplicity follows from
// the parity of its total unpaired electrons; the larger of the two wins.
func TSLowSpinMultiplicity(reactantMults, productMults []int) int {
	r := sideLowSpin(reactantMults)
	p := sideLowSpin(productMults)
	if r > p {
		return r
	}
	return p
}

func sideLowSpin(mults []int) int {
	unpaired := 0
	for _, m := range mults {
		if m > 1 {
			unpaired += m - 1
		}
	}
	if unpaired%2 == 0 {
		return 1
	}
	return 2
}
