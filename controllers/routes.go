package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pedido-service/middlewares"
)

// RegisterRoutes mounts the health and metrics endpoints, the public catalog
// and the authenticated pedidos routes.
func RegisterRoutes(r *gin.Engine, orders *OrderController, products *ProductController, jwtSecret string) {
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/productos", products.ListProducts)
	api.GET("/productos/:id", products.GetProduct)

	// 需要认证的路由组
	authGroup := api.Group("")
	authGroup.Use(middlewares.AuthMiddleware(jwtSecret))
	{
		authGroup.POST("/pedidos", orders.CreateOrder)
		authGroup.GET("/pedidos", orders.GetUserOrders)
		authGroup.GET("/pedidos/:id", orders.GetOrderDetails)
		authGroup.DELETE("/pedidos/:id", orders.DeleteOrder)
	}
}
