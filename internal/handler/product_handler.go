package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/handler/dto"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	"github.com/briansimoni/weewoo.study-sub000/internal/service"
)

// ProductHandler обрабатывает запросы каталога вариантов товара
type ProductHandler struct {
	productService *service.ProductService
	logger         *zap.Logger
}

// NewProductHandler создает обработчик вариантов товара
func NewProductHandler(productService *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, logger: logging.OrNop(logger)}
}

// ListVariants возвращает все варианты
// GET /api/products/variants
func (h *ProductHandler) ListVariants(c *gin.Context) {
	variants, err := h.productService.ListVariants(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": dto.NewProductVariantListResponse(variants)})
}

// GetVariantByProvider находит вариант по идентификатору цены платежного провайдера
// GET /api/products/variants/by-provider/:providerId
func (h *ProductHandler) GetVariantByProvider(c *gin.Context) {
	variant, err := h.productService.GetVariantByPaymentProviderID(c.Request.Context(), c.GetString("providerID"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductVariantResponse(variant))
}

// SaveVariant создает или обновляет вариант вместе с индексом провайдера
// PUT /api/products/variants
func (h *ProductHandler) SaveVariant(c *gin.Context) {
	var req dto.ProductVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	variant, err := h.productService.SaveVariant(c.Request.Context(), req.ToEntity())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductVariantResponse(variant))
}

// DeleteVariant удаляет вариант и его запись индекса
// DELETE /api/products/variants/:id
func (h *ProductHandler) DeleteVariant(c *gin.Context) {
	if err := h.productService.DeleteVariant(c.Request.Context(), c.GetString("variantID")); err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Variant deleted"})
}

// GetVariant возвращает вариант по ID
// GET /api/products/variants/:id
func (h *ProductHandler) GetVariant(c *gin.Context) {
	variant, err := h.productService.GetVariant(c.Request.Context(), c.GetString("variantID"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductVariantResponse(variant))
}
