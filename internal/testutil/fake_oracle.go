package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/pkg/errors"
)

// SpeciesFixture describes one connectivity known to FakeOracle.
type SpeciesFixture struct {
	Smiles  string
	Formula string
	// SpinMult defaults to 1.
	SpinMult int
	// Isomers is the number of stereoisomers; defaults to 1. A negative
	// value makes the expansion empty.
	Isomers int
}

// ReactionFixture describes the channels FakeOracle reports between two
// reagent SMILES.
type ReactionFixture struct {
	Reactants string
	Products  string
	Class     string
	// Groups is the number of distinct net stereo channels; defaults to 1.
	Groups int
	// TSPerGroup is the number of transition states per channel; defaults to 1.
	TSPerGroup int
}

// FakeOracle is a deterministic identity.Oracle driven by registered
// fixtures. Identifiers are synthesised so that they round-trip:
//
//	InChI  "InChI=1S/<formula>/c<smiles>"
//	AMChI  "AMChI=1/<formula>/c<smiles>"
//	xyz    the AMChI it represents is carried on the comment line
//
// Unknown SMILES fail with ErrCodeMalformedIdentifier.
type FakeOracle struct {
	mu        sync.Mutex
	species   map[string]SpeciesFixture
	reactions map[string]ReactionFixture
	failures  map[string]error
	calls     map[string]int
}

// DefaultSpecies are the fixtures registered by NewFakeOracle.
var DefaultSpecies = []SpeciesFixture{
	{Smiles: "C", Formula: "CH4"},
	{Smiles: "O", Formula: "H2O"},
	{Smiles: "[OH]", Formula: "HO", SpinMult: 2},
	{Smiles: "[CH3]", Formula: "CH3", SpinMult: 2},
	{Smiles: "CO", Formula: "CH4O"},
	{Smiles: "CC", Formula: "C2H6"},
	{Smiles: "CCO", Formula: "C2H6O"},
	{Smiles: "CCC", Formula: "C3H8"},
	{Smiles: "[O][O]", Formula: "O2", SpinMult: 3},
	{Smiles: "CC(O[O])C", Formula: "C3H7O2", SpinMult: 2},
	{Smiles: "CC(O)CC", Formula: "C4H10O", Isomers: 2},
	{Smiles: "[CH2]C(O)CC", Formula: "C4H9O", SpinMult: 2, Isomers: 2},
}

// DefaultReactions are the fixtures registered by NewFakeOracle.
var DefaultReactions = []ReactionFixture{
	{Reactants: "C.[OH]", Products: "[CH3].O", Class: "hydrogen abstraction"},
	{Reactants: "CC(O)CC.[OH]", Products: "[CH2]C(O)CC.O", Class: "hydrogen abstraction", Groups: 2, TSPerGroup: 2},
}

// NewFakeOracle returns a FakeOracle preloaded with DefaultSpecies and
// DefaultReactions.
func NewFakeOracle() *FakeOracle {
	o := &FakeOracle{
		species:   map[string]SpeciesFixture{},
		reactions: map[string]ReactionFixture{},
		failures:  map[string]error{},
		calls:     map[string]int{},
	}
	for _, f := range DefaultSpecies {
		o.RegisterSpecies(f)
	}
	for _, f := range DefaultReactions {
		o.RegisterReaction(f)
	}
	return o
}

// RegisterSpecies adds or replaces a species fixture.
func (o *FakeOracle) RegisterSpecies(f SpeciesFixture) {
	if f.SpinMult == 0 {
		f.SpinMult = 1
	}
	if f.Isomers == 0 {
		f.Isomers = 1
	}
	o.mu.Lock()
	o.species[f.Smiles] = f
	o.mu.Unlock()
}

// RegisterReaction adds or replaces a reaction fixture.
func (o *FakeOracle) RegisterReaction(f ReactionFixture) {
	if f.Groups == 0 {
		f.Groups = 1
	}
	if f.TSPerGroup == 0 {
		f.TSPerGroup = 1
	}
	o.mu.Lock()
	o.reactions[f.Reactants+">>"+f.Products] = f
	o.mu.Unlock()
}

// FailOn makes every later call of op return err.
func (o *FakeOracle) FailOn(op string, err error) {
	o.mu.Lock()
	o.failures[op] = err
	o.mu.Unlock()
}

// Calls reports how many times op was invoked.
func (o *FakeOracle) Calls(op string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[op]
}

func (o *FakeOracle) enter(op string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[op]++
	return o.failures[op]
}

func (o *FakeOracle) fixture(smi string) (SpeciesFixture, error) {
	o.mu.Lock()
	f, ok := o.species[smi]
	o.mu.Unlock()
	if !ok {
		return SpeciesFixture{}, errors.Newf(errors.ErrCodeMalformedIdentifier, "Unable to parse SMILES %q", smi)
	}
	return f, nil
}

func (o *FakeOracle) components(smi string) ([]SpeciesFixture, error) {
	var out []SpeciesFixture
	for _, c := range strings.Split(smi, ".") {
		f, err := o.fixture(c)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// FixtureChI builds the connectivity identifier FakeOracle reports for a
// registered fixture. prefix is "InChI=1S" or "AMChI=1".
func FixtureChI(prefix string, f SpeciesFixture) string {
	return fmt.Sprintf("%s/%s/c%s", prefix, f.Formula, f.Smiles)
}

// IsomerChI is FixtureChI with the stereo layer of isomer i.
func IsomerChI(prefix string, f SpeciesFixture, i int) string {
	return fmt.Sprintf("%s/t%d", FixtureChI(prefix, f), i)
}

// FixtureXYZ renders a geometry block that FakeOracle maps back to chi.
func FixtureXYZ(chi string) string {
	return fmt.Sprintf("1\n%s\nC    0.000000    0.000000    0.000000", chi)
}

func (o *FakeOracle) chi(prefix, smi string, stereo bool) (string, error) {
	comps, err := o.components(smi)
	if err != nil {
		return "", err
	}
	chis := make([]string, len(comps))
	for i, f := range comps {
		if stereo {
			chis[i] = IsomerChI(prefix, f, 0)
		} else {
			chis[i] = FixtureChI(prefix, f)
		}
	}
	return identity.JoinChI(chis)
}

func (o *FakeOracle) ConnectivitySmiles(ctx context.Context, smiles string) (string, error) {
	if err := o.enter("ConnectivitySmiles"); err != nil {
		return "", err
	}
	if _, err := o.components(smiles); err != nil {
		return "", err
	}
	return smiles, nil
}

func (o *FakeOracle) InChI(ctx context.Context, smiles string, stereo bool) (string, error) {
	if err := o.enter("InChI"); err != nil {
		return "", err
	}
	return o.chi("InChI=1S", smiles, stereo)
}

func (o *FakeOracle) AMChI(ctx context.Context, smiles string, stereo bool) (string, error) {
	if err := o.enter("AMChI"); err != nil {
		return "", err
	}
	return o.chi("AMChI=1", smiles, stereo)
}

func (o *FakeOracle) ChIKey(ctx context.Context, chi string) (string, error) {
	if err := o.enter("ChIKey"); err != nil {
		return "", err
	}
	if !strings.Contains(chi, "=") {
		return "", errors.Newf(errors.ErrCodeMalformedIdentifier, "Not a ChI string %q", chi)
	}
	return FixtureKey(chi), nil
}

// FixtureKey is the key FakeOracle derives for chi.
func FixtureKey(chi string) string {
	sum := sha256.Sum256([]byte(chi))
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:14] + "-" + h[14:24] + "-N"
}

// FixtureHash is the hash prefix of FixtureKey(chi).
func FixtureHash(chi string) string {
	return identity.FirstHash(FixtureKey(chi))
}

func (o *FakeOracle) ChISmiles(ctx context.Context, chi string) (string, error) {
	if err := o.enter("ChISmiles"); err != nil {
		return "", err
	}
	comps, err := identity.SplitChI(chi)
	if err != nil {
		return "", err
	}
	smis := make([]string, 0, len(comps))
	for _, c := range comps {
		i := strings.Index(c, "/c")
		if i < 0 {
			return "", errors.Newf(errors.ErrCodeMalformedIdentifier, "No connection layer in %q", c)
		}
		smi := c[i+2:]
		if j := strings.IndexByte(smi, '/'); j >= 0 {
			smi = smi[:j]
		}
		smis = append(smis, smi)
	}
	return strings.Join(smis, "."), nil
}

func (o *FakeOracle) SVG(ctx context.Context, smiles string) (string, error) {
	if err := o.enter("SVG"); err != nil {
		return "", err
	}
	if _, err := o.components(smiles); err != nil {
		return "", err
	}
	return "<svg><text>" + smiles + "</text></svg>", nil
}

func (o *FakeOracle) LowSpinMultiplicity(ctx context.Context, chi string) (int, error) {
	if err := o.enter("LowSpinMultiplicity"); err != nil {
		return 0, err
	}
	smi, err := o.ChISmiles(ctx, chi)
	if err != nil {
		return 0, err
	}
	comps, err := o.components(smi)
	if err != nil {
		return 0, err
	}
	if len(comps) == 1 {
		return comps[0].SpinMult, nil
	}
	mults := make([]int, len(comps))
	for i, f := range comps {
		mults[i] = f.SpinMult
	}
	return identity.TSLowSpinMultiplicity(mults, nil), nil
}

func (o *FakeOracle) Stereoisomers(ctx context.Context, smiles string) ([]identity.Stereoisomer, error) {
	if err := o.enter("Stereoisomers"); err != nil {
		return nil, err
	}
	f, err := o.fixture(smiles)
	if err != nil {
		return nil, err
	}
	n := f.Isomers
	if n < 0 {
		n = 0
	}
	out := make([]identity.Stereoisomer, n)
	for i := range out {
		ach := IsomerChI("AMChI=1", f, i)
		out[i] = identity.Stereoisomer{
			Geometry: FixtureXYZ(ach),
			Smiles:   fmt.Sprintf("%s{%d}", f.Smiles, i),
			InChI:    IsomerChI("InChI=1S", f, i),
			AMChI:    ach,
		}
	}
	return out, nil
}

func (o *FakeOracle) ReactionChannels(ctx context.Context, reactants, products string) ([]identity.ReactionChannel, error) {
	if err := o.enter("ReactionChannels"); err != nil {
		return nil, err
	}
	o.mu.Lock()
	rf, ok := o.reactions[reactants+">>"+products]
	o.mu.Unlock()
	if !ok {
		return nil, nil
	}
	rcomps, err := o.components(reactants)
	if err != nil {
		return nil, err
	}
	pcomps, err := o.components(products)
	if err != nil {
		return nil, err
	}

	var out []identity.ReactionChannel
	for g := 0; g < rf.Groups; g++ {
		ch := identity.ReactionChannel{Class: rf.Class}
		var rsmis, psmis []string
		for _, f := range rcomps {
			k := g % f.Isomers
			ch.ReactantInChIs = append(ch.ReactantInChIs, IsomerChI("InChI=1S", f, k))
			ch.ReactantAMChIs = append(ch.ReactantAMChIs, IsomerChI("AMChI=1", f, k))
			rsmis = append(rsmis, fmt.Sprintf("%s{%d}", f.Smiles, k))
		}
		for _, f := range pcomps {
			k := g % f.Isomers
			ch.ProductInChIs = append(ch.ProductInChIs, IsomerChI("InChI=1S", f, k))
			ch.ProductAMChIs = append(ch.ProductAMChIs, IsomerChI("AMChI=1", f, k))
			psmis = append(psmis, fmt.Sprintf("%s{%d}", f.Smiles, k))
		}
		ch.Smiles = identity.FormatReactionSmiles(rsmis, psmis)
		for t := 0; t < rf.TSPerGroup; t++ {
			c := ch
			c.TSAMChI = fmt.Sprintf("AMChI=1/ts/%s/g%dt%d", ch.Smiles, g, t)
			c.TSGeometry = FixtureXYZ(c.TSAMChI)
			out = append(out, c)
		}
	}
	return out, nil
}

func (o *FakeOracle) GeometryAMChI(ctx context.Context, xyz string) (string, error) {
	if err := o.enter("GeometryAMChI"); err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(xyz), "\n")
	if len(lines) < 3 {
		return "", errors.New(errors.ErrCodeMalformedIdentifier, "Unable to parse xyz block")
	}
	return strings.TrimSpace(lines[1]), nil
}

func (o *FakeOracle) NormalizeGeometry(ctx context.Context, xyz string) (string, error) {
	if err := o.enter("NormalizeGeometry"); err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(xyz), "\n")
	if len(lines) < 3 {
		return "", errors.New(errors.ErrCodeMalformedIdentifier, "Unable to parse xyz block")
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	return strings.Join(lines, "\n"), nil
}

var _ identity.Oracle = (*FakeOracle)(nil)
