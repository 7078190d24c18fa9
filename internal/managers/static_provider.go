package managers

import (
	"context"
	"fmt"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

// StaticCredentialProvider serves credentials from a fixed set, typically
// loaded from the configuration file for CLI runs and tests.
type StaticCredentialProvider struct {
	credentialsByID map[string]domain.Credential
}

func NewStaticCredentialProvider(credentials []domain.Credential) *StaticCredentialProvider {
	credentialsByID := make(map[string]domain.Credential, len(credentials))
	for _, credential := range credentials {
		credentialsByID[credential.ID] = credential
	}

	return &StaticCredentialProvider{
		credentialsByID: credentialsByID,
	}
}

func (p *StaticCredentialProvider) GetCredential(ctx context.Context, workspaceID, credentialID string) (domain.Credential, error) {
	credential, ok := p.credentialsByID[credentialID]
	if !ok {
		return domain.Credential{}, fmt.Errorf("%w: %s", domain.ErrCredentialNotFound, credentialID)
	}

	if credential.WorkspaceID != "" && credential.WorkspaceID != workspaceID {
		return domain.Credential{}, fmt.Errorf("%w: %s", domain.ErrCredentialNotFound, credentialID)
	}

	return credential, nil
}
