package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	values map[string]string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("decryption not requested")
	}
	v, ok := f.values[aws.ToString(in.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func TestGetSecret(t *testing.T) {
	store := secrets.NewParameterStoreWithClient(&fakeSSM{values: map[string]string{
		"/sysaudit/db_url": "postgres://u:p@db:5432/checks",
	}})

	got, err := store.GetSecret(context.Background(), "/sysaudit/db_url")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/checks", got)

	_, err = store.GetSecret(context.Background(), "/sysaudit/missing")
	require.ErrorIs(t, err, app_errors.ErrConfig)

	_, err = store.GetSecret(context.Background(), "")
	require.ErrorIs(t, err, app_errors.ErrConfig)
}
