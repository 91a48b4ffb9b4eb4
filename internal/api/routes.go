package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, s *Server) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.POST("/sessions", s.createSession)

		sess := api.Group("/sessions/:id", s.limitBody)
		{
			sess.GET("", s.getSession)
			sess.DELETE("", s.deleteSession)

			sess.POST("/placeholders", s.addPlaceholder)
			sess.PATCH("/placeholders/:pid", s.updatePlaceholder)
			sess.POST("/placeholders/:pid/select", s.selectPlaceholder)
			sess.DELETE("/selection", s.deleteSelection)

			sess.PUT("/background", s.setBackground)
			sess.POST("/data", s.uploadData)

			sess.GET("/sample", s.downloadSample)
			sess.POST("/export", s.export)
			sess.GET("/preview", s.preview)

			sess.GET("/template", s.getTemplate)
			sess.PUT("/template", s.putTemplate)
		}
	}
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	c.Next()
}
