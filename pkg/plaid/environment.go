package plaid

import (
	"errors"
	"fmt"
	"strings"
)

// Environment selects which Plaid deployment a Client talks to.
type Environment int

const (
	Sandbox Environment = iota + 1
	Development
	Production
)

// ErrInvalidEnvironment is returned for any environment name other than
// sandbox, development or production.
var ErrInvalidEnvironment = errors.New("plaid environment must be one of sandbox, development, production")

var environmentNames = map[Environment]string{
	Sandbox:     "sandbox",
	Development: "development",
	Production:  "production",
}

var baseURLs = map[Environment]string{
	Sandbox:     "https://sandbox.plaid.com",
	Development: "https://development.plaid.com",
	Production:  "https://production.plaid.com",
}

// ParseEnvironment maps a case-insensitive environment name to its Environment.
func ParseEnvironment(raw string) (Environment, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for env, candidate := range environmentNames {
		if candidate == name {
			return env, nil
		}
	}
	return 0, fmt.Errorf("%w: got %q", ErrInvalidEnvironment, raw)
}

// Valid reports whether e is one of the known Plaid environments.
func (e Environment) Valid() bool {
	_, ok := environmentNames[e]
	return ok
}

func (e Environment) String() string {
	if name, ok := environmentNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Environment(%d)", int(e))
}

// BaseURL returns the API host for the environment, or "" when e is invalid.
func (e Environment) BaseURL() string {
	return baseURLs[e]
}

// MarshalText encodes e by name and rejects unknown values.
func (e Environment) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidEnvironment, int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText parses a name accepted by ParseEnvironment.
func (e *Environment) UnmarshalText(text []byte) error {
	parsed, err := ParseEnvironment(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
