package oracle

import "fmt"

// NewProvider builds the named provider. "mock" echoes the input back as
// already correct and needs no credential.
func NewProvider(name, model string, creds CredentialSource) (Provider, error) {
	switch name {
	case "gemini", "":
		return NewGeminiProvider(model, creds), nil
	case "mock":
		return &Static{}, nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", name)
	}
}
