package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pedido-service/models"
	"pedido-service/services"
)

type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
}

type ProductController struct {
	catalog ProductCatalog
}

func NewProductController(catalog ProductCatalog) *ProductController {
	return &ProductController{catalog: catalog}
}

// ListProducts returns the catalog, narrowed by the optional q parameter.
func (pc *ProductController) ListProducts(c *gin.Context) {
	defer recordOperation(c, "catalog")

	products, err := pc.catalog.ListProducts(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list products: %v", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.FilterProducts(products, c.Query("q")))
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	defer recordOperation(c, "product")

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, fmt.Errorf("%w: invalid product id %q", models.ErrValidation, c.Param("id")))
		return
	}

	product, err := pc.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}
