package rule

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// Polarity says whether a rule's pattern must be absent or present.
// The zero value is [Forbidden]; no other values can be constructed.
type Polarity struct {
	required bool
}

var (
	// Forbidden rules fail when the pattern matches.
	Forbidden = Polarity{}
	// Required rules fail when the pattern does not match.
	Required = Polarity{required: true}
)

// ParsePolarity parses "forbidden" or "required". The empty string is
// [Forbidden].
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "", "forbidden":
		return Forbidden, nil
	case "required":
		return Required, nil
	}

	return Forbidden, fmt.Errorf("%w: %q", ErrInvalidPolarity, s)
}

func (p Polarity) String() string {
	if p.required {
		return "required"
	}

	return "forbidden"
}

func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Polarity) UnmarshalText(text []byte) error {
	parsed, err := ParsePolarity(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

func (Polarity) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Title:       "Polarity",
		Description: "Whether the pattern must be absent (forbidden) or present (required).",
		Enum:        []any{Forbidden.String(), Required.String()},
		Default:     Forbidden.String(),
	}
}
