// Package group holds the public parameters of the proof group: a prime
// modulus q and two generators g and h. Parameters are created once at
// startup, either generated or loaded from a TOML file, and are read-only
// for the process lifetime.
package group

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/IKycTI/SigmaProtocol/internal/arith"
)

// Params is the public triple (q, g, h). All protocol arithmetic is
// performed mod Q. The shipped generation defaults are demonstration-sized
// and must not be treated as cryptographically strong.
type Params struct {
	// Q is the group modulus, intended to be prime.
	Q *big.Int
	// G and H are the two generators, both in [0, Q).
	G *big.Int
	H *big.Int
}

var three = big.NewInt(3)

// Validate checks the constraints the protocol algebra relies on: q > 3 so
// that q-1 and q-2 are valid operands, and both generators in [0, q).
func (p *Params) Validate() error {
	var err *multierror.Error
	if p.Q == nil || p.G == nil || p.H == nil {
		return fmt.Errorf("group: parameters not set")
	}
	if p.Q.Cmp(three) <= 0 {
		err = multierror.Append(err, fmt.Errorf("modulus %v must be greater than 3", p.Q))
	}
	if p.G.Sign() < 0 || p.G.Cmp(p.Q) >= 0 {
		err = multierror.Append(err, fmt.Errorf("generator g = %v out of range [0, %v)", p.G, p.Q))
	}
	if p.H.Sign() < 0 || p.H.Cmp(p.Q) >= 0 {
		err = multierror.Append(err, fmt.Errorf("generator h = %v out of range [0, %v)", p.H, p.Q))
	}
	return err.ErrorOrNil()
}

// Generate creates fresh parameters: a random probable-prime modulus of the
// configured bit length and two uniform generators below it.
func Generate(source io.Reader, cfg arith.PrimeConfig) (*Params, error) {
	q, err := arith.GeneratePrime(source, cfg)
	if err != nil {
		return nil, fmt.Errorf("group: generating modulus: %w", err)
	}
	g, err := arith.RandElement(source, q)
	if err != nil {
		return nil, fmt.Errorf("group: generating g: %w", err)
	}
	h, err := arith.RandElement(source, q)
	if err != nil {
		return nil, fmt.Errorf("group: generating h: %w", err)
	}
	p := &Params{Q: q, G: g, H: h}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParamsTOML is the TOML-compatible representation of Params. The integers
// are decimal strings so arbitrary sizes survive the round trip.
type ParamsTOML struct {
	Q string
	G string
	H string
}

// TOML returns a TOML-encodable version of the parameters.
func (p *Params) TOML() interface{} {
	return &ParamsTOML{
		Q: p.Q.String(),
		G: p.G.String(),
		H: p.H.String(),
	}
}

// FromTOML decodes the parameters from the toml struct and validates them.
func (p *Params) FromTOML(i interface{}) error {
	pt, ok := i.(*ParamsTOML)
	if !ok {
		return fmt.Errorf("group: unknown toml type %T", i)
	}
	var errs *multierror.Error
	fields := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"q", pt.Q, &p.Q},
		{"g", pt.G, &p.G},
		{"h", pt.H, &p.H},
	}
	for _, f := range fields {
		v, ok := new(big.Int).SetString(f.raw, 10)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("invalid %s value %q", f.name, f.raw))
			continue
		}
		*f.dst = v
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	return p.Validate()
}

func (p *Params) String() string {
	var b bytes.Buffer
	_ = toml.NewEncoder(&b).Encode(p.TOML())
	return b.String()
}

// Load reads and validates parameters from a TOML file.
func Load(path string) (*Params, error) {
	pt := &ParamsTOML{}
	if _, err := toml.DecodeFile(path, pt); err != nil {
		return nil, fmt.Errorf("group: reading %s: %w", path, err)
	}
	p := &Params{}
	if err := p.FromTOML(pt); err != nil {
		return nil, fmt.Errorf("group: parsing %s: %w", path, err)
	}
	return p, nil
}

// Save writes the parameters to a TOML file.
func (p *Params) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("group: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(p.TOML()); err != nil {
		return fmt.Errorf("group: writing %s: %w", path, err)
	}
	return nil
}
