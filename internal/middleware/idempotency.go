package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ridedispatch/internal/redis"
)

const idempotencyHeader = "Idempotency-Key"

// ReplyStore records replies per idempotency key.
type ReplyStore interface {
	Claim(ctx context.Context, key string) (*redis.StoredReply, bool, error)
	Complete(ctx context.Context, key string, reply redis.StoredReply) error
	Release(ctx context.Context, key string) error
}

// recorder tees the response body so it can be stored after the handler.
type recorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency answers a repeated POST or DELETE carrying the same
// Idempotency-Key with the first reply. A duplicate that arrives while the
// first is still running is rejected with 409. Keys are scoped to the
// principal, method and path. Store failures degrade to normal processing.
func Idempotency(store ReplyStore, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(idempotencyHeader)
		if header == "" || (c.Request.Method != http.MethodPost && c.Request.Method != http.MethodDelete) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := scopedKey(c, header)
		log := logger.WithField("idempotency_key", header)

		reply, claimed, err := store.Claim(ctx, key)
		switch {
		case err != nil:
			log.WithError(err).Warn("idempotency store unavailable, serving request uncached")
			c.Next()
			return
		case reply != nil:
			c.Header("Idempotent-Replayed", "true")
			c.Data(reply.Status, reply.ContentType, reply.Body)
			c.Abort()
			return
		case !claimed:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"code":  "ALREADY_EXISTS",
				"error": "a request with this idempotency key is in progress",
			})
			return
		}

		w := &recorder{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// Server errors are not final; the client may retry them.
		bg := context.WithoutCancel(ctx)
		if status := w.Status(); status >= http.StatusInternalServerError {
			if err := store.Release(bg, key); err != nil {
				log.WithError(err).Warn("failed to release idempotency key")
			}
			return
		}
		err = store.Complete(bg, key, redis.StoredReply{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err != nil {
			log.WithError(err).Warn("failed to store idempotent reply")
		}
	}
}

func scopedKey(c *gin.Context, key string) string {
	owner := "anonymous"
	if p, ok := PrincipalFrom(c); ok {
		owner = string(p.Role) + ":" + p.ID
	}
	return owner + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}
