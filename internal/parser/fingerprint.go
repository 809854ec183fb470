// 중복 제거용 fingerprint 계산
//
// 동일한 실패가 타임스탬프/ID/숫자만 바뀌어 반복될 때 같은 키로 수렴하도록
// 가변 토큰을 마스킹한 뒤 해싱한다. 순수 함수 — 시간/난수 의존 없음

package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/logsense/backend/internal/model"
)

// 가변 토큰 마스킹 패턴 (순서 중요 — 타임스탬프를 숫자 런보다 먼저)
var maskPatterns = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[t ]\d{2}:\d{2}:\d{2}[.\d]*z?`), "TS"},
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`), "IP"},
	{regexp.MustCompile(`\b[0-9a-f]{8}(?:-[0-9a-f]{4}){3}-[0-9a-f]{12}\b`), "UUID"},
	{regexp.MustCompile(`\b[0-9a-f]{8,}\b`), "HEX"},
	{regexp.MustCompile(`\b\d+\b`), "N"},
}

// MaskMessage - 메시지를 소문자화하고 가변 토큰을 플레이스홀더로 치환
func MaskMessage(message string) string {
	masked := strings.ToLower(message)
	for _, mp := range maskPatterns {
		masked = mp.pattern.ReplaceAllString(masked, mp.repl)
	}
	return masked
}

// Fingerprint - service + severity + 마스킹된 메시지의 고정폭 해시 키
func Fingerprint(record *model.LogRecord) string {
	key := record.Service + "|" + record.Severity + "|" + MaskMessage(record.RawLog)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}
