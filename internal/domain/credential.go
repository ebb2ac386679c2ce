package domain

import "fmt"

type CredentialName string

const (
	CredentialAzureAPIKey     CredentialName = "azure_openai_api_key"
	CredentialAzureEndpoint   CredentialName = "azure_openai_endpoint"
	CredentialAzureAPIVersion CredentialName = "azure_openai_api_version"
	CredentialOllamaAPIKey    CredentialName = "ollama_api_key"
	CredentialOllamaEndpoint  CredentialName = "ollama_endpoint"
	CredentialOpenAIAPIKey    CredentialName = "openai_api_key"
	CredentialNCBIAPIKey      CredentialName = "ncbi_api_key"
)

var credentialEnv = map[CredentialName]string{
	CredentialAzureAPIKey:     "AZURE_OPENAI_API_KEY",
	CredentialAzureEndpoint:   "AZURE_OPENAI_API_ENDPOINT",
	CredentialAzureAPIVersion: "AZURE_OPENAI_API_VERSION",
	CredentialOllamaAPIKey:    "OLLAMA_API_KEY",
	CredentialOllamaEndpoint:  "OLLAMA_API_ENDPOINT",
	CredentialOpenAIAPIKey:    "OPENAI_API_KEY",
	CredentialNCBIAPIKey:      "NCBI_API_KEY",
}

func CredentialNames() []CredentialName {
	return []CredentialName{
		CredentialAzureAPIKey,
		CredentialAzureEndpoint,
		CredentialAzureAPIVersion,
		CredentialOllamaAPIKey,
		CredentialOllamaEndpoint,
		CredentialOpenAIAPIKey,
		CredentialNCBIAPIKey,
	}
}

func ParseCredentialName(raw string) (CredentialName, error) {
	name := CredentialName(raw)
	if _, ok := credentialEnv[name]; !ok {
		return "", fmt.Errorf("unknown credential %q", raw)
	}
	return name, nil
}

// EnvVar is the environment variable consulted before any secret store.
func (n CredentialName) EnvVar() string {
	return credentialEnv[n]
}
