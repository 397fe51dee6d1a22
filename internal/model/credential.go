package model

// CredentialPair is the OAuth token pair for the Salesforce org. The access
// token is short-lived; the refresh token mints a new one.
type CredentialPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NamedCredential identifies the Salesforce named credential that points at
// the AWS account.
type NamedCredential struct {
	ID            string `json:"Id"`
	DeveloperName string `json:"DeveloperName"`
	Label         string `json:"MasterLabel,omitempty"`
}

// NamedCredentialMetadata is the tooling-API metadata written when binding
// the named credential to the AWS account.
type NamedCredentialMetadata struct {
	Label         string `json:"label"`
	Endpoint      string `json:"endpoint"`
	PrincipalType string `json:"principalType"`
	Protocol      string `json:"protocol"`
}

// Event relay callouts are authorized by network identity, not by the
// credential itself.
const (
	PrincipalTypeAnonymous = "Anonymous"
	ProtocolNoAuth         = "NoAuthentication"
)
