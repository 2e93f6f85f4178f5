package call

import (
	"encoding/base64"
	"fmt"
)

// CredentialKind selects the Authorization scheme.
type CredentialKind int

const (
	CredBasic CredentialKind = iota
	CredBearer
)

// Credential is an immutable authorization value attached to outgoing
// requests.
type Credential struct {
	Kind     CredentialKind
	Username string
	Password string
	Token    string
}

// Basic returns a username/password credential.
func Basic(username, password string) Credential {
	return Credential{Kind: CredBasic, Username: username, Password: password}
}

// Bearer returns a token credential.
func Bearer(token string) Credential {
	return Credential{Kind: CredBearer, Token: token}
}

// HeaderValue renders the Authorization header value.
func (c Credential) HeaderValue() string {
	switch c.Kind {
	case CredBearer:
		return "Bearer " + c.Token
	default:
		pair := c.Username + ":" + c.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(pair))
	}
}

// String renders the credential with the secret redacted.
func (c Credential) String() string {
	switch c.Kind {
	case CredBearer:
		return "bearer(***)"
	default:
		return fmt.Sprintf("basic(%s:***)", c.Username)
	}
}

// DefaultUsernameField and DefaultPasswordField name the parameter keys
// a derived credential reads when the rules name none.
const (
	DefaultUsernameField = "username"
	DefaultPasswordField = "password"
)

// CredentialRules configures how the credential for a call is chosen.
// A fixed credential always wins. Otherwise, when Fields is non-nil, a
// basic credential is derived from two request parameters; missing
// field names fall back to the defaults.
type CredentialRules struct {
	Fixed  *Credential
	Fields []string
}

// Empty reports whether no credential source is configured.
func (r CredentialRules) Empty() bool {
	return r.Fixed == nil && r.Fields == nil
}

// BuildCredential resolves the credential for one call. The boolean is
// false when no credential applies: nothing configured, or a derived
// credential whose parameters are absent. Derivation requires both
// fields present and non-nil; a half-configured pair yields nothing
// rather than a credential with an empty half.
func BuildCredential(params Params, rules CredentialRules) (Credential, bool) {
	if rules.Fixed != nil {
		return *rules.Fixed, true
	}
	if rules.Fields == nil {
		return Credential{}, false
	}

	userField := DefaultUsernameField
	passField := DefaultPasswordField
	if len(rules.Fields) > 0 && rules.Fields[0] != "" {
		userField = rules.Fields[0]
	}
	if len(rules.Fields) > 1 && rules.Fields[1] != "" {
		passField = rules.Fields[1]
	}

	user, okUser := params[userField]
	pass, okPass := params[passField]
	if !okUser || !okPass || user == nil || pass == nil {
		return Credential{}, false
	}
	return Basic(Stringify(user), Stringify(pass)), true
}
