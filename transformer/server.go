package transformer

import (
	"io"
	"net/http"
	"server/config"
	"server/imaging"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// The worker is stateless apart from these per-format counters, so any
// number of replicas can sit behind one address.
var (
	served    = cmap.New[uint64]()
	startedAt = time.Now()
)

func countServed(format string) {
	served.Upsert(format, 1, func(exists bool, current, inc uint64) uint64 {
		if exists {
			return current + inc
		}
		return inc
	})
}

func NewRouter() *gin.Engine {
	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.POST("/transform", transform)
	router.POST("/info", info)
	router.GET("/health", health)
	return router
}

func readBody(c *gin.Context) []byte {
	// One byte over the limit is enough to tell the payload is oversized
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, imaging.MaxInputSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil
	}
	if len(data) > imaging.MaxInputSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds maximum input size"})
		return nil
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return nil
	}
	return data
}

func transform(c *gin.Context) {
	data := readBody(c)
	if data == nil {
		return
	}
	opts := imaging.Options{}
	if v, err := strconv.ParseUint(c.Query("width"), 10, 16); err == nil {
		opts.Width = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("height"), 10, 16); err == nil {
		opts.Height = uint(v)
	}
	if v, err := strconv.Atoi(c.Query("quality")); err == nil {
		opts.Quality = v
	}
	out, err := imaging.Convert(data, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	countServed("webp")
	c.Header("X-Original-Size", strconv.Itoa(len(data)))
	c.Header("X-Transformed-Size", strconv.Itoa(len(out)))
	c.Data(http.StatusOK, "image/webp", out)
}

func info(c *gin.Context) {
	data := readBody(c)
	if data == nil {
		return
	}
	result, err := imaging.Inspect(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	countServed("info")
	c.JSON(http.StatusOK, result)
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		"served":         served.Items(),
	})
}
