package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrCredentialNotFound = errors.New("credential not found")

// Credential is a decrypted credential as handed over by the external
// credential provider. Data holds the provider-specific configuration
// (connection strings, tokens, header values).
type Credential struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	WorkspaceID string         `json:"workspace_id"`
	Type        string         `json:"type"`
	Data        map[string]any `json:"data"`
}

// CredentialProvider is implemented outside the engine. Decryption and
// storage of secrets are not the engine's concern.
type CredentialProvider interface {
	GetCredential(ctx context.Context, workspaceID, credentialID string) (Credential, error)
}

// CredentialManager adds client-handle caching on top of the provider.
// Handles are cached per workspace scope and must be released exactly once
// when the owning execution or session terminates.
type CredentialManager interface {
	CredentialProvider

	Release(ctx context.Context) error
}

// CredentialGetter decodes a credential's data into a typed struct.
type CredentialGetter[T any] interface {
	GetDecryptedCredential(ctx context.Context, credentialID string) (T, error)
}

type credentialGetter[T any] struct {
	workspaceID string
	provider    CredentialProvider
}

func NewCredentialGetter[T any](workspaceID string, provider CredentialProvider) CredentialGetter[T] {
	return &credentialGetter[T]{
		workspaceID: workspaceID,
		provider:    provider,
	}
}

func (g *credentialGetter[T]) GetDecryptedCredential(ctx context.Context, credentialID string) (T, error) {
	var decoded T

	credential, err := g.provider.GetCredential(ctx, g.workspaceID, credentialID)
	if err != nil {
		return decoded, NewCredentialError(credentialID, err)
	}

	data, err := json.Marshal(credential.Data)
	if err != nil {
		return decoded, NewCredentialError(credentialID, fmt.Errorf("failed to marshal credential data: %w", err))
	}

	if err := json.Unmarshal(data, &decoded); err != nil {
		return decoded, NewCredentialError(credentialID, fmt.Errorf("failed to decode credential data: %w", err))
	}

	return decoded, nil
}
