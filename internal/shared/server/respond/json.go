package respond

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Accepted acknowledges work that continues in the background.
func Accepted(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusAccepted, payload)
}

// File writes raw bytes with a Content-Disposition of the given kind
// ("inline" or "attachment").
func File(c *gin.Context, contentType, disposition, fileName string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, fileName))
	c.Data(http.StatusOK, contentType, data)
}

// RetryAfterSeconds rounds d up to whole seconds; zero or less yields 0.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// SetRetryAfter sets the Retry-After header and returns the seconds written.
func SetRetryAfter(c *gin.Context, d time.Duration) int {
	secs := RetryAfterSeconds(d)
	if secs > 0 {
		c.Header("Retry-After", strconv.Itoa(secs))
	}
	return secs
}
