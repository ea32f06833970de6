package security

// TestSecret is the HS256 secret used by NewTestTokenProvider. For tests only.
const TestSecret = "test-secret-test-secret-test-secret!"

// NewTestTokenProvider returns an HS256 TokenProvider with fixed issuer and audience.
// For unit tests only.
func NewTestTokenProvider(opts ...Option) *TokenProvider {
	p, err := NewHMACTokenProvider([]byte(TestSecret), "test-issuer", "test-audience", opts...)
	if err != nil {
		panic(err)
	}
	return p
}
