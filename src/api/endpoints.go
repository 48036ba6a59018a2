package api

import (
	"fmt"
	"io"
	"math/bits"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nagisa/bernoulli-distribution/src/rng"
)

// RandomFlips is the main endpoint: a batch of biased coin flips, 32 per
// word, each bit 1 with the requested percent probability. Leftover interval
// entropy for a given percent is recycled across requests by the Flipper.
func (h *Handlers) RandomFlips(c *gin.Context) {
	const maxWords = 256

	percentStr := c.DefaultQuery("percent", "50")

	words, err := strconv.Atoi(c.DefaultQuery("words", "1"))
	if err != nil || words < 1 || words > maxWords {
		responder{c}.err(http.StatusBadRequest,
			fmt.Sprintf("Words must be an integer between 1 and %d.", maxWords))
		return
	}

	h.handleRNG(c, func() (string, gin.H, int, string) {
		num, den, err := rng.ParsePercentExact(percentStr)
		if err != nil {
			return "", nil, http.StatusBadRequest, err.Error()
		}

		out, err := h.flipper.Flip(num, den, words)
		if err != nil {
			return "", nil, http.StatusInternalServerError,
				"Error generating biased bits."
		}

		// a device failure inside Flip is recorded on the health monitor
		// rather than returned; don't serve the zero-padded output.
		if ok, _, _ := h.health.Snapshot(); !ok {
			h.log.Error("entropy source failed during flip")
			return "", nil, http.StatusInternalServerError,
				"Error fetching random bytes."
		}

		ones := 0
		hexWords := make([]string, len(out))
		for i, w := range out {
			ones += bits.OnesCount32(w)
			hexWords[i] = fmt.Sprintf("%08x", w)
		}

		text := strings.Join(hexWords, " ") +
			fmt.Sprintf("\n%d of %d bits set", ones, 32*len(out))
		return text, gin.H{
			"percent": percentStr,
			"success": num,
			"out_of":  den,
			"words":   hexWords,
			"ones":    ones,
			"bits":    32 * len(out),
		}, 0, ""
	})
}

func (h *Handlers) RandomBytes(c *gin.Context) {
	const maxSize = 256

	sizeVar := c.DefaultQuery("size", "1")
	size, err := strconv.Atoi(sizeVar)
	if err != nil || size < 1 || size > maxSize {
		responder{c}.err(http.StatusBadRequest,
			fmt.Sprintf("Size must be an integer between 1 and %d.", maxSize))
		return
	}

	h.handleRNG(c, func() (string, gin.H, int, string) {
		buf := make([]byte, size)
		if _, err := io.ReadFull(h.r, buf); err != nil {
			if h.health != nil {
				h.health.Set(false, "error fetching random bytes: "+err.Error())
			}
			h.log.Error(err)
			return "", nil, http.StatusInternalServerError, "Error fetching random bytes."
		}

		hex := fmt.Sprintf("%x", buf)
		return hex, gin.H{"bytes": hex, "size": size}, 0, ""
	})
}

func (h *Handlers) RandomNumber(c *gin.Context) {
	min, err := strconv.Atoi(c.DefaultQuery("min", "1"))
	if err != nil {
		responder{c}.err(http.StatusBadRequest, "Invalid min value.")
		return
	}

	max, err := strconv.Atoi(c.DefaultQuery("max", "100"))
	if err != nil {
		responder{c}.err(http.StatusBadRequest, "Invalid max value.")
		return
	}

	h.handleRNG(c, func() (string, gin.H, int, string) {
		n, err := rng.UniformInt32(h.r, h.health, min, max)
		if err != nil {
			return "", nil, http.StatusBadRequest, err.Error()
		}

		return fmt.Sprintf("%d", n),
			gin.H{"number": n, "min": min, "max": max},
			0, ""
	})
}

func (h *Handlers) Health(c *gin.Context) {
	if h.health == nil {
		responder{c}.err(http.StatusServiceUnavailable, "UNHEALTHY: missing health monitor")
		return
	}

	ok, msg, t := h.health.Snapshot()
	if ok {
		responder{c}.ok(
			fmt.Sprintf("OK (last checked %s)", t.Format(time.RFC3339)),
			gin.H{"ok": true, "last_checked": t.Format(time.RFC3339)},
			"health-check",
		)
		return
	}

	responder{c}.err(http.StatusServiceUnavailable,
		fmt.Sprintf("UNHEALTHY: %s (last checked %s)", msg, t.Format(time.RFC3339)))
}
