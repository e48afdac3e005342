package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skirent/internal/app/uow"
	domaincatalog "skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/money"
	"skirent/internal/infra/storage/s3"
)

type AdminHTTP interface {
	CreateProduct(c *gin.Context)
	UpdateProduct(c *gin.Context)
	UploadProductImage(c *gin.Context)
	CreateVariant(c *gin.Context)
	CreateUnit(c *gin.Context)
	UpdateUnitStatus(c *gin.Context)
	CreatePeriod(c *gin.Context)
	SetPrice(c *gin.Context)
	DeletePrice(c *gin.Context)
	GetSettings(c *gin.Context)
	UpdateSettings(c *gin.Context)
}

// AdminHandler is the back-office inventory surface: products, variants,
// physical units, price periods, price lists and shop settings.
type AdminHandler struct {
	UoWFactory uow.UoWFactory
	Uploader   s3.Uploader
	Logger     *slog.Logger
}

type createProductRequest struct {
	Name           string `json:"name"`
	HasVariants    bool   `json:"has_variants"`
	CanBeDelivered bool   `json:"can_be_delivered"`
	CanBePickedUp  bool   `json:"can_be_picked_up"`
}

func (h AdminHandler) CreateProduct(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		now := time.Now().UTC()
		product, err := domaincatalog.NewProduct(domaincatalog.NewProductParams{
			ID:             domaincatalog.ProductID(uuid.NewString()),
			Name:           req.Name,
			HasVariants:    req.HasVariants,
			CanBeDelivered: req.CanBeDelivered,
			CanBePickedUp:  req.CanBePickedUp,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		if err := unit.Products().Save(c.Request.Context(), product); err != nil {
			return err
		}
		// A variant-less product still needs its implicit variant so
		// pricing and stock have something to hang off.
		if !product.HasVariants {
			v := domaincatalog.NewDefaultVariant(domaincatalog.VariantID(uuid.NewString()), product.ID, now)
			if err := unit.Variants().Save(c.Request.Context(), v); err != nil {
				return err
			}
		}
		c.JSON(http.StatusCreated, gin.H{"id": string(product.ID)})
		return nil
	})
}

type updateProductRequest struct {
	Name           *string `json:"name"`
	Active         *bool   `json:"active"`
	CanBeDelivered *bool   `json:"can_be_delivered"`
	CanBePickedUp  *bool   `json:"can_be_picked_up"`
}

func (h AdminHandler) UpdateProduct(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		product, err := unit.Products().ByID(c.Request.Context(), domaincatalog.ProductID(c.Param("id")))
		if err != nil {
			return err
		}
		if req.Name != nil {
			product.Name = *req.Name
		}
		if req.CanBeDelivered != nil {
			product.CanBeDelivered = *req.CanBeDelivered
		}
		if req.CanBePickedUp != nil {
			product.CanBePickedUp = *req.CanBePickedUp
		}
		if req.Active != nil {
			if *req.Active {
				product.Enable(time.Now().UTC())
			} else {
				product.Disable(time.Now().UTC())
			}
		}
		if err := unit.Products().Save(c.Request.Context(), product); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

func (h AdminHandler) UploadProductImage(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads unavailable"})
		return
	}
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	productID := c.Param("id")
	key := fmt.Sprintf("products/%s/%s%s", productID, uuid.NewString(), path.Ext(header.Filename))
	url, err := h.Uploader.Upload(c.Request.Context(), key, file, header.Header.Get("Content-Type"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("product image upload failed", "product_id", productID, "error", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}

	h.inUnit(c, func(unit uow.UnitOfWork) error {
		product, err := unit.Products().ByID(c.Request.Context(), domaincatalog.ProductID(productID))
		if err != nil {
			return err
		}
		product.ImageURL = url
		if err := unit.Products().Save(c.Request.Context(), product); err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"image_url": url})
		return nil
	})
}

type createVariantRequest struct {
	Attributes []struct {
		Attribute string `json:"attribute"`
		Value     string `json:"value"`
	} `json:"attributes"`
	DepositCents int64 `json:"deposit_cents"`
}

func (h AdminHandler) CreateVariant(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req createVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		productID := domaincatalog.ProductID(c.Param("id"))
		if _, err := unit.Products().ByID(c.Request.Context(), productID); err != nil {
			return err
		}
		attrs := make([]domaincatalog.AttributeValue, 0, len(req.Attributes))
		for _, a := range req.Attributes {
			attrs = append(attrs, domaincatalog.AttributeValue{Attribute: a.Attribute, Value: a.Value})
		}
		existing, err := unit.Variants().ByProduct(c.Request.Context(), productID)
		if err != nil {
			return err
		}
		variant := domaincatalog.NewVariant(domaincatalog.NewVariantParams{
			ID:         domaincatalog.VariantID(uuid.NewString()),
			ProductID:  productID,
			Attributes: attrs,
			Deposit:    money.EUR(req.DepositCents),
			CreatedAt:  time.Now().UTC(),
		})
		if err := domaincatalog.EnsureUniqueCombination(variant, existing); err != nil {
			return err
		}
		if err := unit.Variants().Save(c.Request.Context(), variant); err != nil {
			return err
		}
		c.JSON(http.StatusCreated, gin.H{"id": string(variant.ID)})
		return nil
	})
}

type createUnitRequest struct {
	Serial string `json:"serial"`
}

func (h AdminHandler) CreateUnit(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req createUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		variantID := domaincatalog.VariantID(c.Param("id"))
		if _, err := unit.Variants().ByID(c.Request.Context(), variantID); err != nil {
			return err
		}
		u := domaincatalog.NewUnit(domaincatalog.UnitID(uuid.NewString()), variantID, req.Serial, time.Now().UTC())
		if err := unit.Units().Save(c.Request.Context(), u); err != nil {
			return err
		}
		c.JSON(http.StatusCreated, gin.H{"id": string(u.ID)})
		return nil
	})
}

type updateUnitStatusRequest struct {
	Status string `json:"status"`
}

func (h AdminHandler) UpdateUnitStatus(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req updateUnitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := domaincatalog.ParseUnitStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		u, err := unit.Units().ByID(c.Request.Context(), domaincatalog.UnitID(c.Param("id")))
		if err != nil {
			return err
		}
		u.SetStatus(status, time.Now().UTC())
		if err := unit.Units().Save(c.Request.Context(), u); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

type createPeriodRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	MinDays  int    `json:"min_days"`
	MaxDays  *int   `json:"max_days"`
	Days     int    `json:"days"`
}

func (h AdminHandler) CreatePeriod(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req createPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		period, err := domaincatalog.NewPricePeriod(domaincatalog.NewPeriodParams{
			ID:        domaincatalog.PeriodID(uuid.NewString()),
			Code:      req.Code,
			Name:      req.Name,
			Position:  req.Position,
			MinDays:   req.MinDays,
			MaxDays:   req.MaxDays,
			Days:      req.Days,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		active, err := unit.Periods().ListActive(c.Request.Context())
		if err != nil {
			return err
		}
		if err := domaincatalog.EnsureNonOverlapping(period, active); err != nil {
			return err
		}
		if err := unit.Periods().Save(c.Request.Context(), period); err != nil {
			return err
		}
		c.JSON(http.StatusCreated, gin.H{"id": string(period.ID)})
		return nil
	})
}

type setPriceRequest struct {
	VariantID  string `json:"variant_id"`
	PeriodID   string `json:"period_id"`
	PriceCents int64  `json:"price_cents"`
}

func (h AdminHandler) SetPrice(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req setPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		if _, err := unit.Variants().ByID(c.Request.Context(), domaincatalog.VariantID(req.VariantID)); err != nil {
			return err
		}
		if _, err := unit.Periods().ByID(c.Request.Context(), domaincatalog.PeriodID(req.PeriodID)); err != nil {
			return err
		}
		entry := &domaincatalog.PriceEntry{
			VariantID: domaincatalog.VariantID(req.VariantID),
			PeriodID:  domaincatalog.PeriodID(req.PeriodID),
			Price:     money.EUR(req.PriceCents),
			UpdatedAt: time.Now().UTC(),
		}
		if err := unit.Prices().Save(c.Request.Context(), entry); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

func (h AdminHandler) DeletePrice(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	variantID := c.Query("variant_id")
	periodID := c.Query("period_id")
	if variantID == "" || periodID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variant_id and period_id required"})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		if err := unit.Prices().Delete(c.Request.Context(), domaincatalog.VariantID(variantID), domaincatalog.PeriodID(periodID)); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

func (h AdminHandler) GetSettings(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		settings, err := unit.Settings().Get(c.Request.Context())
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"refund_hours": settings.RefundCutoffHours()})
		return nil
	})
}

type updateSettingsRequest struct {
	RefundHours int `json:"refund_hours"`
}

func (h AdminHandler) UpdateSettings(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RefundHours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refund_hours must be positive"})
		return
	}
	h.inUnit(c, func(unit uow.UnitOfWork) error {
		settings := domaincatalog.ShopSettings{RefundHours: req.RefundHours, UpdatedAt: time.Now().UTC()}
		if err := unit.Settings().Save(c.Request.Context(), settings); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

// inUnit wraps one admin action in a unit of work and funnels errors through
// the shared responder.
func (h AdminHandler) inUnit(c *gin.Context, fn func(unit uow.UnitOfWork) error) {
	unit, err := h.UoWFactory.Begin(c.Request.Context(), uow.TxOptions{})
	if err != nil {
		respondDomainError(c, h.Logger, err)
		return
	}
	if err := fn(unit); err != nil {
		_ = unit.Rollback(c.Request.Context())
		respondDomainError(c, h.Logger, err)
		return
	}
	if err := unit.Commit(c.Request.Context()); err != nil {
		respondDomainError(c, h.Logger, err)
	}
}

var _ AdminHTTP = (*AdminHandler)(nil)
