package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const (
	coreIdentityLabel = "Core identity: "
	personaLabel      = "Persona: "
)

// Contract is the normalized identity contract. CorePillars is never empty for a
// contract returned by LoadContract or ParseContract.
type Contract struct {
	CorePillars        []string `json:"core_pillars"`
	CoreIdentity       string   `json:"core_identity,omitempty"`
	PersonaDescription string   `json:"persona_description,omitempty"`
}

type rawContract struct {
	CorePillars        json.RawMessage `json:"core_pillars"`
	CoreIdentity       json.RawMessage `json:"core_identity"`
	PersonaDescription json.RawMessage `json:"persona_description"`
}

func LoadContract(path string) (Contract, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Contract{}, fmt.Errorf("%w: %s", ErrContractNotFound, path)
		}
		return Contract{}, fmt.Errorf("read contract: %w", err)
	}
	c, err := ParseContract(b)
	if err != nil {
		return Contract{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func ParseContract(b []byte) (Contract, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Contract{}, fmt.Errorf("%w: expected a JSON object", ErrContractParse)
	}
	var raw rawContract
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Contract{}, fmt.Errorf("%w: %v", ErrContractParse, err)
	}
	return normalizeContract(raw)
}

func normalizeContract(raw rawContract) (Contract, error) {
	c := Contract{
		CoreIdentity:       rawString(raw.CoreIdentity),
		PersonaDescription: rawString(raw.PersonaDescription),
	}

	// Fields holding the wrong JSON type count as absent.
	var pillars []string
	if len(raw.CorePillars) > 0 {
		if err := json.Unmarshal(raw.CorePillars, &pillars); err != nil {
			pillars = nil
		}
	}
	for _, p := range pillars {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		c.CorePillars = append(c.CorePillars, p)
	}
	if len(c.CorePillars) > 0 {
		return c, nil
	}

	if c.CoreIdentity != "" {
		c.CorePillars = append(c.CorePillars, coreIdentityLabel+c.CoreIdentity)
	}
	if c.PersonaDescription != "" {
		c.CorePillars = append(c.CorePillars, personaLabel+c.PersonaDescription)
	}
	if len(c.CorePillars) == 0 {
		return Contract{}, ErrContractInvalid
	}
	return c, nil
}

func rawString(m json.RawMessage) string {
	var s string
	if len(m) == 0 || json.Unmarshal(m, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Serialize renders the contract as indented JSON for prompt embedding.
func (c Contract) Serialize() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		// Contract only holds strings; marshal cannot fail.
		panic(err)
	}
	return string(b)
}
