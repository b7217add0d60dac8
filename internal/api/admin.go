package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// POST /api/admin/reload: перечитать выгрузку, терминологию и codelist'ы.
// Новый документ публикуется целиком; при ошибке остаётся прежний.
func AdminReloadHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := storage.Reload(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed", "details": err.Error()})
			return
		}
		doc := snap.Doc()
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"loadId":    snap.LoadID,
			"objects":   len(doc.Objects()),
			"classes":   len(doc.Classes()),
			"orphans":   len(doc.Orphans()),
			"codelists": len(doc.CodeLists()),
			"issues":    len(Lint(snap.Result)),
		})
	}
}
