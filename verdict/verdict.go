// Package verdict turns check outcomes into declared-severity verdicts and
// aggregates them into a scenario report.
//
// Every check carries a Tier chosen when the check is declared, never at
// runtime: a Required miss fails the scenario, a Recommended miss only warns,
// an Informational check is recorded and nothing else. Classification is a
// pure function of (outcome, tier) so the same inputs always produce the
// same verdict.
package verdict

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tier is the declared importance of a check.
type Tier int

const (
	// TierRequired failures fail the scenario.
	TierRequired Tier = iota
	// TierRecommended failures warn without failing the scenario.
	TierRecommended
	// TierInformational checks are recorded only.
	TierInformational
)

var tierNames = map[Tier]string{
	TierRequired:      "required",
	TierRecommended:   "recommended",
	TierInformational: "informational",
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier parses a tier name. Case-insensitive.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required":
		return TierRequired, nil
	case "recommended", "":
		return TierRecommended, nil
	case "informational", "info":
		return TierInformational, nil
	}
	return 0, fmt.Errorf("verdict: unknown tier %q", s)
}

// MarshalJSON encodes the tier as its name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts tier names.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalYAML accepts tier names in YAML configuration.
func (t *Tier) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Verdict is the classified result of one check.
type Verdict int

const (
	Pass Verdict = iota
	Warn
	Info
	Fail
)

var verdictNames = map[Verdict]string{
	Pass: "pass",
	Warn: "warn",
	Info: "info",
	Fail: "fail",
}

func (v Verdict) String() string {
	if s, ok := verdictNames[v]; ok {
		return s
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// MarshalJSON encodes the verdict as its name.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON accepts verdict names.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseVerdict(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVerdict parses a verdict name.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass":
		return Pass, nil
	case "warn":
		return Warn, nil
	case "info":
		return Info, nil
	case "fail":
		return Fail, nil
	}
	return 0, fmt.Errorf("verdict: unknown verdict %q", s)
}

// Classify maps an outcome and its declared tier to a verdict.
//
// Informational checks classify to Info whether or not they succeeded: they
// exist for the report, not for the gate. Everything else passes on success;
// on a miss, Required fails and Recommended warns.
func Classify(ok bool, tier Tier) Verdict {
	if tier == TierInformational {
		return Info
	}
	if ok {
		return Pass
	}
	if tier == TierRequired {
		return Fail
	}
	return Warn
}
