// 외부 AI provider(Gemini)와 통신하는 임베딩 클라이언트 정의
//
// 환경변수:
//   - AI_API_KEY: Gemini API Key
//   - AI_EMBEDDING_MODEL: 임베딩 모델 이름 (default: text-embedding-004)

package client

import (
	"context"
	"fmt"

	"github.com/logsense/backend/internal/config"
	"google.golang.org/genai"
)

// EmbeddingClient 구조체 정의
type EmbeddingClient struct {
	client *genai.Client
	model  string
}

// EmbeddingClient 객체 생성
func NewEmbeddingClient(cfg config.AIConfig) (*EmbeddingClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY environment variable")
	}

	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return &EmbeddingClient{client: c, model: cfg.EmbeddingModel}, nil
}

// EmbedText - 텍스트 임베딩 생성. 벡터와 사용한 모델 이름 반환
func (e *EmbeddingClient) EmbedText(ctx context.Context, text string) ([]float32, string, error) {
	result, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, "", fmt.Errorf("embedding request failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, "", fmt.Errorf("embedding response contains no vectors")
	}

	return result.Embeddings[0].Values, e.model, nil
}
