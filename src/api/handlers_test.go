package api_test

import (
	"encoding/binary"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nagisa/bernoulli-distribution/src/api"
	"github.com/nagisa/bernoulli-distribution/src/rng"
)

type uint32CounterReader struct {
	next uint32
	buf  [4]byte
	off  int
}

func (r *uint32CounterReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.off == 0 {
			binary.BigEndian.PutUint32(r.buf[:], r.next)
			r.next++
		}
		copied := copy(p[n:], r.buf[r.off:])
		n += copied
		r.off = (r.off + copied) % 4
	}
	return n, nil
}

var uuidV4Re = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func newTestHandlers() (*api.Handlers, *rng.Health) {
	rr := &uint32CounterReader{next: 1}
	health := rng.NewHealth()
	health.Set(true, "")
	flipper := rng.NewFlipper(rr, health)
	return api.NewHandlers(rr, flipper, health, zap.NewNop().Sugar()), health
}

func get(h func(*gin.Context), target string, json bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", target, nil)
	if json {
		c.Request.Header.Set("Accept", "application/json")
	}
	h(c)
	return w
}

func extractJSONField(body string, field string) string {
	// naive extractor for `"field":"value"`
	needle := `"` + field + `":"`
	i := strings.Index(body, needle)
	if i < 0 {
		return ""
	}
	start := i + len(needle)
	end := strings.Index(body[start:], `"`)
	if end < 0 {
		return ""
	}
	return body[start : start+end]
}

func TestRandomFlips_JSONAndPlaintext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestHandlers()

	w := get(h.RandomFlips, "/?percent=75&words=2", true)
	if w.Code != 200 {
		t.Fatalf("json expected 200 got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, field := range []string{"\"request_id\"", "\"words\"", "\"ones\"", "\"bits\":64", "\"success\":75", "\"out_of\":100"} {
		if !strings.Contains(body, field) {
			t.Fatalf("json response missing %s: %s", field, body)
		}
	}
	rid := extractJSONField(body, "request_id")
	if rid == "" || !uuidV4Re.MatchString(rid) {
		t.Fatalf("invalid request_id: %q body=%s", rid, body)
	}

	w2 := get(h.RandomFlips, "/?percent=75&words=2", false)
	if w2.Code != 200 {
		t.Fatalf("text expected 200 got %d: %s", w2.Code, w2.Body.String())
	}
	if body2 := w2.Body.String(); !strings.Contains(body2, "request_id:") ||
		!strings.Contains(body2, "of 64 bits set") {
		t.Fatalf("unexpected text response: %s", body2)
	}
}

func TestRandomFlips_DegeneratePercents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestHandlers()

	w := get(h.RandomFlips, "/?percent=0&words=4", true)
	if w.Code != 200 {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); !strings.Contains(body, "\"ones\":0") {
		t.Fatalf("percent=0 produced set bits: %s", body)
	}

	w2 := get(h.RandomFlips, "/?percent=100&words=4", true)
	if w2.Code != 200 {
		t.Fatalf("expected 200 got %d: %s", w2.Code, w2.Body.String())
	}
	if body := w2.Body.String(); !strings.Contains(body, "\"ones\":128") {
		t.Fatalf("percent=100 left bits unset: %s", body)
	}
}

func TestRandomFlips_RejectsBadParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestHandlers()

	for _, target := range []string{
		"/?percent=-1",
		"/?percent=101",
		"/?percent=abc",
		"/?words=0",
		"/?words=10000",
		"/?words=xyz",
	} {
		if w := get(h.RandomFlips, target, false); w.Code != 400 {
			t.Fatalf("%s expected 400 got %d: %s", target, w.Code, w.Body.String())
		}
	}
}

func TestHandlers_RefuseWhenUnhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, health := newTestHandlers()
	health.Set(false, "entropy source appears stuck")

	for name, fn := range map[string]func(*gin.Context){
		"flips":  h.RandomFlips,
		"bytes":  h.RandomBytes,
		"number": h.RandomNumber,
	} {
		if w := get(fn, "/", false); w.Code != 503 {
			t.Fatalf("%s expected 503 got %d: %s", name, w.Code, w.Body.String())
		}
	}

	if w := get(h.Health, "/health", false); w.Code != 503 {
		t.Fatalf("health expected 503 got %d: %s", w.Code, w.Body.String())
	}

	health.Set(true, "")
	if w := get(h.Health, "/health", false); w.Code != 200 {
		t.Fatalf("health expected 200 got %d: %s", w.Code, w.Body.String())
	}
}
