package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Courses *CourseHandler
	Grades  *GradeHandler
	Exports *ExportHandler
	Metrics *MetricsHandler
}

// Register mounts probes on r and the API under prefix. Middleware passed in
// api applies to the API group only.
func Register(r *gin.Engine, prefix string, h Handlers, api ...gin.HandlerFunc) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	v1 := r.Group(prefix, api...)

	courses := v1.Group("/courses/:courseId")
	courses.POST("/fetch", h.Courses.Fetch)
	courses.GET("/structure", h.Courses.Structure)
	courses.GET("/students", h.Courses.Students)
	courses.GET("/students/:studentId/grades", h.Grades.StudentGrades)
	courses.GET("/students/:studentId/report", h.Grades.StudentReport)
	courses.POST("/exports", h.Exports.Create)

	exports := v1.Group("/exports")
	exports.GET("/:id", h.Exports.Status)
	exports.GET("/:id/download", h.Exports.Download)
}
