package config

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	params  map[string]string
	batches [][]string
}

func (f *fakeSSM) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	f.batches = append(f.batches, in.Names)
	if in.WithDecryption == nil || !*in.WithDecryption {
		return nil, fmt.Errorf("decryption not requested")
	}
	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		if v, ok := f.params[name]; ok {
			out.Parameters = append(out.Parameters, ssmtypes.Parameter{Name: aws.String(name), Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func TestSSMProvider_BatchesByTen(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{}}
	keys := make([]string, 23)
	for i := range keys {
		keys[i] = fmt.Sprintf("/dev/recipebox/p%02d", i)
		fake.params[keys[i]] = fmt.Sprintf("v%d", i)
	}

	got, err := newSSMProviderWithClient(fake).GetParametersBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("GetParametersBatch: %v", err)
	}
	if len(got) != 23 {
		t.Errorf("resolved %d params", len(got))
	}
	if len(fake.batches) != 3 || len(fake.batches[2]) != 3 {
		t.Errorf("batches = %v", fake.batches)
	}
}

func TestSSMProvider_InvalidParameterFails(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{"/a": "1"}}
	_, err := newSSMProviderWithClient(fake).GetParametersBatch(context.Background(), []string{"/a", "/missing"})
	if err == nil || !strings.Contains(err.Error(), "/missing") {
		t.Fatalf("want not-found error naming /missing, got %v", err)
	}
}

func TestSSMProvider_EmptyKeys(t *testing.T) {
	got, err := NewSSMProvider("us-east-1", "").GetParametersBatch(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}
