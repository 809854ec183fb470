package parser

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/logsense/backend/internal/model"
)

func TestMaskMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "timestamp",
			in:   "2026-08-24T10:15:32.123Z request failed",
			want: "TS request failed",
		},
		{
			name: "ip address",
			in:   "connection refused from 10.0.12.7",
			want: "connection refused from IP",
		},
		{
			name: "uuid",
			in:   "order 550e8400-e29b-41d4-a716-446655440000 not found",
			want: "order UUID not found",
		},
		{
			name: "hex id",
			in:   "pod deadbeef01234567 evicted",
			want: "pod HEX evicted",
		},
		{
			name: "plain numbers",
			in:   "retry 3 of 5 failed",
			want: "retry N of N failed",
		},
		{
			name: "case folded",
			in:   "Connection REFUSED",
			want: "connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskMessage(tt.in); got != tt.want {
				t.Errorf("MaskMessage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func rec(service, severity, raw string) *model.LogRecord {
	return &model.LogRecord{Service: service, Severity: severity, RawLog: raw}
}

func TestFingerprintStability(t *testing.T) {
	// 가변 토큰만 다른 두 로그는 같은 fingerprint로 수렴해야 한다
	a := Fingerprint(rec("api", "critical", "ERROR: timeout connecting to 10.0.0.1 attempt 3"))
	b := Fingerprint(rec("api", "critical", "ERROR: timeout connecting to 192.168.4.20 attempt 17"))
	if a != b {
		t.Errorf("fingerprints differ: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(a))
	}
}

func TestFingerprintDiscriminates(t *testing.T) {
	base := rec("api", "critical", "ERROR: connection refused")

	if Fingerprint(base) == Fingerprint(rec("auth", "critical", "ERROR: connection refused")) {
		t.Error("different services must not collide")
	}
	if Fingerprint(base) == Fingerprint(rec("api", "warn", "ERROR: connection refused")) {
		t.Error("different severities must not collide")
	}
	if Fingerprint(base) == Fingerprint(rec("api", "critical", "ERROR: permission denied")) {
		t.Error("different messages must not collide")
	}
}

// 가변 토큰(숫자/IP/타임스탬프/UUID)을 무작위로 바꿔 넣어도
// 같은 템플릿이면 fingerprint는 하나로 수렴해야 한다
func TestFingerprintInvariantUnderRandomizedTokens(t *testing.T) {
	r := rand.New(rand.NewSource(0x5eed))

	randomIP := func() string {
		return fmt.Sprintf("%d.%d.%d.%d", r.Intn(256), r.Intn(256), r.Intn(256), r.Intn(256))
	}
	randomTS := func() string {
		return fmt.Sprintf("2026-%02d-%02dT%02d:%02d:%02d.%03dZ",
			1+r.Intn(12), 1+r.Intn(28), r.Intn(24), r.Intn(60), r.Intn(60), r.Intn(1000))
	}
	randomUUID := func() string {
		return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
			r.Uint32(), r.Intn(0x10000), r.Intn(0x10000), r.Intn(0x10000), r.Int63n(1<<48))
	}

	variant := func() string {
		return fmt.Sprintf("ERROR: request %s from %s failed after %d retries at %s",
			randomUUID(), randomIP(), r.Intn(100000), randomTS())
	}

	want := Fingerprint(rec("api", "critical", variant()))
	for i := 0; i < 200; i++ {
		raw := variant()
		if got := Fingerprint(rec("api", "critical", raw)); got != want {
			t.Fatalf("variant %d %q fingerprint = %s, want %s (masked: %q)",
				i, raw, got, want, MaskMessage(raw))
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	r := rec("api", "critical", "ERROR: pod 10.2.3.4 OOMKilled at 2026-08-24T10:00:00Z")
	if Fingerprint(r) != Fingerprint(r) {
		t.Error("fingerprint must be deterministic")
	}
}
