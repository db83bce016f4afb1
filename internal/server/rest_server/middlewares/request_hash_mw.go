package middlewares

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/constants"
)

type digestWriter struct {
	gin.ResponseWriter
}

// Write adds a Content-Digest of the first chunk while headers can still be
// changed. Single-write bodies (every JSON reply) get an exact digest.
func (w *digestWriter) Write(data []byte) (int, error) {
	if !w.Written() {
		sum := sha256.Sum256(data)
		w.Header().Set(constants.HeaderContentDigest, "sha256="+hex.EncodeToString(sum[:]))
	}
	return w.ResponseWriter.Write(data)
}

func ResponseHashMW() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Writer = &digestWriter{ResponseWriter: ctx.Writer}
		ctx.Next()
	}
}
