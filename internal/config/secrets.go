package config

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/sirupsen/logrus"
)

// ResolveJWTSecret fills cfg.JWT.Secret from AWS Secrets Manager when
// JWT_SECRET_FROM_SECRETS is set. Called once at startup, before the
// token service is constructed; the secret is immutable afterwards.
func ResolveJWTSecret(cfg *Config, logger *logrus.Logger) error {
	if !cfg.JWT.SecretFromSecrets {
		return nil
	}

	secret, err := getSecretValue(&cfg.AWS, cfg.JWT.SecretName, logger)
	if err != nil {
		return fmt.Errorf("failed to get JWT secret from secrets: %w", err)
	}
	if secret == "" {
		return fmt.Errorf("secret '%s' resolved to an empty JWT secret", cfg.JWT.SecretName)
	}

	cfg.JWT.Secret = secret
	return nil
}

// getSecretValue retrieves a secret string from AWS Secrets Manager
func getSecretValue(awsCfg *AWSConfig, secretName string, logger *logrus.Logger) (string, error) {
	sessConfig := &aws.Config{
		Region: aws.String(awsCfg.Region),
	}

	if awsCfg.Profile != "" {
		sessConfig.WithCredentialsChainVerboseErrors(true)
	}

	sess, err := session.NewSession(sessConfig)
	if err != nil {
		return "", fmt.Errorf("failed to create AWS session: %w", err)
	}

	svc := secretsmanager.New(sess)

	result, err := svc.GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret '%s': %w", secretName, err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret '%s' has no string value", secretName)
	}

	logger.WithField("secret_name", secretName).Info("Retrieved JWT signing secret from Secrets Manager")
	return *result.SecretString, nil
}
