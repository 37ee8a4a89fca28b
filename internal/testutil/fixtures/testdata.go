// Package fixtures holds usernames and authority values shared by tests so
// packages agree on the same directory contents.
package fixtures

const (
	Alice     = "alice"
	Bob       = "bob"
	Admin     = "admin"
	Guest     = "guest"
	System    = "system"
	NewHire   = "new.hire"
	Suspended = "suspended"
)

const (
	GroupEveryone = "GROUP_EVERYONE"
	GroupAdmins   = "GROUP_ALFRESCO_ADMINISTRATORS"
	GroupSales    = "GROUP_SALES"
	RoleUser      = "ROLE_USER"
	RoleAdmin     = "ROLE_ADMIN"
)

// TokenSecret signs tokens in tests. It is at least 32 bytes.
const TokenSecret = "test-secret-0123456789abcdefghijklmnop"

// TestIssuer is the issuer claim used by test signers.
const TestIssuer = "stricklysoft-gateway-test"
