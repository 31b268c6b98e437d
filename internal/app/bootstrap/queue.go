package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/agenda-platform/internal/config"
	"github.com/wolfman30/agenda-platform/internal/conversation"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

const memoryQueueBuffer = 256

// BuildQueue selects the conversation queue named by CONVERSATION_QUEUE.
func BuildQueue(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.Queue, error) {
	switch cfg.ConversationQueue {
	case "", "memory":
		return conversation.NewShardedMemoryQueue(memoryQueueBuffer, cfg.WorkerCount), nil
	case "sqs":
		if strings.TrimSpace(cfg.ConversationQueueURL) == "" {
			return nil, fmt.Errorf("bootstrap: CONVERSATION_QUEUE_URL is required for the sqs queue")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		if logger != nil {
			logger.Info("using sqs conversation queue", "url", cfg.ConversationQueueURL)
		}
		return conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown conversation queue %q", cfg.ConversationQueue)
	}
}

// LoadAWSConfig centralizes AWS SDK initialization so both binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		loaders = append(loaders, config.WithBaseEndpoint(endpoint))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}
