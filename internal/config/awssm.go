package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const awsLookupTimeout = 15 * time.Second

// resolveAWSSecretsManager resolves a reference of the form id or id#key.
// With a key, the secret string must be a JSON object and the key's value is
// returned. Region and credentials come from the default AWS chain.
func resolveAWSSecretsManager(ref string) (string, error) {
	id, key, _ := strings.Cut(ref, "#")
	if id == "" {
		return "", fmt.Errorf("invalid AWS Secrets Manager reference %q", ref)
	}

	ctx, cancel := context.WithTimeout(context.Background(), awsLookupTimeout)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}
	out, err := secretsmanager.NewFromConfig(cfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value", id)
	}
	if key == "" {
		return *out.SecretString, nil
	}
	return jsonSecretField(*out.SecretString, id, key)
}

func jsonSecretField(secret, id, key string) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(secret), &fields); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", id, err)
	}
	switch v := fields[key].(type) {
	case nil:
		return "", fmt.Errorf("key %q not found in secret %q", key, id)
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}
