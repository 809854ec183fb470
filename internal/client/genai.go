// 외부 AI 분류 provider(Gemini)와 통신하는 클라이언트 정의
//
// 환경변수:
//   - AI_API_KEY: Gemini API Key
//   - AI_MODEL: 분류 모델 이름 (default: gemini-2.0-flash)
//
// 응답은 model.Analysis로 엄격하게 디코딩되며, 필수 필드 누락이나
// 범위 위반은 ErrInvalidResponse (재시도 없이 fallback 대상)

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/logsense/backend/internal/config"
	"github.com/logsense/backend/internal/model"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

var (
	// ErrInvalidResponse - provider 응답 스키마 검증 실패 (non-transient)
	ErrInvalidResponse = errors.New("provider response failed schema validation")

	// ErrNotConfigured - API key 미설정 (non-transient, 즉시 fallback)
	ErrNotConfigured = errors.New("ai provider not configured")
)

const analysisPrompt = `You are an expert Site Reliability Engineer (SRE) analyzing production logs.

Analyze the following %d error/warning log(s) from service "%s" (occurred %d times, severity %s) and provide a SINGLE, UNIFIED analysis:

1. **category**: One of: database | network | auth | crash | performance | security | config | other
2. **severity**: One of: fatal | critical | warn
3. **confidence**: Float 0.0-1.0
4. **summary**: One-line summary covering all logs (max 120 chars)
5. **root_cause**: Clear explanation of WHY this error happened (2-3 sentences)
6. **recommended_actions**: Ordered list of actionable fixes (immediate workaround first)
7. **verification_steps**: How to verify the fix worked
8. **needs_human_review**: Boolean - does a human need to intervene?

LOGS:
%s

Respond with ONLY a single JSON object, no markdown, no extra text:
{
  "category": "...",
  "severity": "...",
  "confidence": 0.85,
  "summary": "...",
  "root_cause": "...",
  "recommended_actions": ["..."],
  "verification_steps": ["..."],
  "needs_human_review": true
}`

// ClassifyRequest - 배치 요약 정보 (prompt 구성에 사용)
type ClassifyRequest struct {
	Service         string
	Severity        string
	OccurrenceCount int
	LogsText        string
	LineCount       int
}

// ClassifierClient 구조체 정의
type ClassifierClient struct {
	client *genai.Client
	model  string
	ready  bool
}

// ClassifierClient 객체 생성
// API key가 없으면 비활성 클라이언트를 반환 (호출 시 즉시 fallback)
func NewClassifierClient(cfg config.AIConfig) *ClassifierClient {
	if cfg.APIKey == "" {
		log.Warn("No AI_API_KEY - AI classification disabled, fallback only")
		return &ClassifierClient{}
	}

	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		log.Warnf("Failed to init AI client, fallback only: %v", err)
		return &ClassifierClient{}
	}
	return &ClassifierClient{client: c, model: cfg.Model, ready: true}
}

// AI 설정 여부 체크
func (c *ClassifierClient) IsReady() bool {
	return c.ready
}

// Classify - 배치를 분류하고 구조화된 분석 결과 반환 (동기)
func (c *ClassifierClient) Classify(ctx context.Context, req ClassifyRequest) (*model.Analysis, error) {
	if !c.ready {
		return nil, ErrNotConfigured
	}

	prompt := fmt.Sprintf(analysisPrompt, req.LineCount, req.Service, req.OccurrenceCount, req.Severity, req.LogsText)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  1024,
	})
	if err != nil {
		return nil, err
	}

	return decodeAnalysis(resp.Text())
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// decodeAnalysis - provider 응답 텍스트를 Analysis로 디코딩
// JSON 모드여도 markdown 래핑이 섞여 오는 경우가 있어 JSON 오브젝트를 추출 후 파싱
func decodeAnalysis(raw string) (*model.Analysis, error) {
	raw = strings.TrimSpace(raw)

	var analysis model.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		m := jsonObjectPattern.FindString(raw)
		if m == "" {
			return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidResponse)
		}
		if err := json.Unmarshal([]byte(m), &analysis); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	if err := validateAnalysis(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func validateAnalysis(a *model.Analysis) error {
	if a.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidResponse)
	}
	if model.SeverityRank(a.Severity) == 0 {
		return fmt.Errorf("%w: invalid severity %q", ErrInvalidResponse, a.Severity)
	}
	if a.Confidence < 0.0 || a.Confidence > 1.0 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidResponse, a.Confidence)
	}
	if a.Summary == "" {
		return fmt.Errorf("%w: missing summary", ErrInvalidResponse)
	}
	return nil
}

// IsTransient - 재시도 대상 오류인지 판별
// timeout, rate-limit(429), 5xx, 네트워크 오류만 transient
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
