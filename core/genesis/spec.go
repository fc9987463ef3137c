package genesis

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GenesisSpec seeds a fresh ledger.
type GenesisSpec struct {
	GenesisTime   string            `yaml:"genesisTime"`
	ChainID       uint64            `yaml:"chainId"`
	ProgramLabel  string            `yaml:"programLabel"`
	RecordDeposit *uint64           `yaml:"recordDeposit,omitempty"`
	Deposits      map[string]uint64 `yaml:"deposits"`
	RewardMint    *RewardMintSpec   `yaml:"rewardMint,omitempty"`

	genesisTimestamp time.Time
	deposits         []Allocation
}

// RewardMintSpec pre-creates the reward token at genesis.
type RewardMintSpec struct {
	Address string `yaml:"address"`
	Payer   string `yaml:"payer"`

	address [20]byte
	payer   [20]byte
}

// Allocation is a validated storage deposit grant.
type Allocation struct {
	Address [20]byte
	Amount  uint64
}

// LoadGenesisSpec reads and validates a YAML genesis file.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates raw YAML. Unknown fields are rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

// GenesisTimestamp returns the parsed genesis time.
func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// Allocations returns the deposit grants sorted by address.
func (s *GenesisSpec) Allocations() []Allocation {
	return append([]Allocation(nil), s.deposits...)
}

// RewardMintAddresses returns the decoded reward mint and payer.
func (r *RewardMintSpec) RewardMintAddresses() (mint, payer [20]byte) {
	return r.address, r.payer
}

func (s *GenesisSpec) validate() error {
	parsed, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsed
	if s.ChainID == 0 {
		return fmt.Errorf("chainId must be greater than zero")
	}
	s.ProgramLabel = strings.TrimSpace(s.ProgramLabel)
	if s.ProgramLabel == "" {
		return fmt.Errorf("programLabel must be provided")
	}

	s.deposits = s.deposits[:0]
	seen := make(map[[20]byte]string, len(s.Deposits))
	for raw, amount := range s.Deposits {
		addr, err := ParseBech32Account(raw)
		if err != nil {
			return fmt.Errorf("deposits[%s]: %w", raw, err)
		}
		if prev, dup := seen[addr]; dup {
			return fmt.Errorf("deposits[%s]: duplicate of %s", raw, prev)
		}
		seen[addr] = raw
		s.deposits = append(s.deposits, Allocation{Address: addr, Amount: amount})
	}
	sort.Slice(s.deposits, func(i, j int) bool {
		return bytes.Compare(s.deposits[i].Address[:], s.deposits[j].Address[:]) < 0
	})

	if s.RewardMint != nil {
		mint, err := ParseBech32Account(s.RewardMint.Address)
		if err != nil {
			return fmt.Errorf("rewardMint.address: %w", err)
		}
		payer, err := ParseBech32Account(s.RewardMint.Payer)
		if err != nil {
			return fmt.Errorf("rewardMint.payer: %w", err)
		}
		s.RewardMint.address = mint
		s.RewardMint.payer = payer
	}
	return nil
}

func parseGenesisTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid genesisTime %q: %w", raw, err)
	}
	if ts.Unix() < 0 {
		return time.Time{}, fmt.Errorf("genesisTime %q predates the unix epoch", raw)
	}
	return ts.UTC(), nil
}
