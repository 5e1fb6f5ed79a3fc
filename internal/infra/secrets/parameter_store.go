// Package secrets resolves configuration values held in AWS Systems Manager
// Parameter Store.
package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
)

// ParameterGetter is the part of the SSM client the store needs.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type ParameterStore struct {
	client ParameterGetter
}

func NewParameterStore(cfg aws.Config) *ParameterStore {
	return &ParameterStore{client: ssm.NewFromConfig(cfg)}
}

func NewParameterStoreWithClient(client ParameterGetter) *ParameterStore {
	return &ParameterStore{client: client}
}

// GetSecret returns the decrypted value of the named parameter.
func (ps *ParameterStore) GetSecret(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty: %w", app_errors.ErrConfig)
	}

	result, err := ps.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w: %w", name, app_errors.ErrConfig, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value: %w", name, app_errors.ErrConfig)
	}

	return *result.Parameter.Value, nil
}
