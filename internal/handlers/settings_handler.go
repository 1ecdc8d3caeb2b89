package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

// GET /settings/:key
func (a *api) getSetting(c *gin.Context) {
	st, err := a.cfg.Settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": st.Key, "value": st.Value})
}

// PUT /admin/settings/:key
func (a *api) adminSetSetting(c *gin.Context) {
	var req validation.SettingRequest
	if err := validation.Bind(c, &req, a.v); err != nil {
		writeError(c, err)
		return
	}
	st, err := a.cfg.Settings.Set(c.Request.Context(), c.Param("key"), req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": st.Key, "value": st.Value})
}

// POST /admin/settings/:key/toggle
func (a *api) adminToggleSetting(c *gin.Context) {
	key := c.Param("key")
	v, err := a.cfg.Settings.Toggle(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	loggerFrom(c).Info("setting toggled", zap.String("key", key), zap.Bool("value", v))
	c.JSON(http.StatusOK, gin.H{"key": key, "value": v})
}
