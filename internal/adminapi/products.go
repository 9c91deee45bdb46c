package adminapi

import (
	stdbytes "bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/boutiqueapp/boutique/internal/domain"
	"github.com/boutiqueapp/boutique/internal/webserver"
	"github.com/boutiqueapp/boutique/pkg/common"
)

const maxImportSize = 8 << 20

type productPayload struct {
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Category    string  `json:"category" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price" validate:"gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url,max=1024"`
	IsFeatured  bool    `json:"is_featured"`
}

func (p *productPayload) trim() {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
}

func payloadOf(p domain.Product) productPayload {
	return productPayload{
		Name:        p.Name,
		Category:    p.Category,
		Description: common.Deref(p.Description),
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    common.Deref(p.ImageURL),
		IsFeatured:  p.IsFeatured,
	}
}

// productUpdatePayload holds the fields to change. The merged product is
// checked against the productPayload rules.
type productUpdatePayload struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	ImageURL    *string  `json:"image_url"`
	IsFeatured  *bool    `json:"is_featured"`
}

func (u productUpdatePayload) merge(p productPayload) productPayload {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	if u.IsFeatured != nil {
		p.IsFeatured = *u.IsFeatured
	}
	p.trim()
	return p
}

// registerProductRoutes registers product CRUD, export and import endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/export", exportProducts)
	webserver.ApiPOST("/products/import", importProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

var productSortColumns = map[string]string{
	"name":       "name",
	"category":   "category",
	"price":      "price",
	"stock":      "stock",
	"created_at": "created_at",
	"sold_count": "sold_count",
	"view_count": "view_count",
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Product{})
	db = whereLike(db, strings.TrimSpace(c.QueryParam("q")), "name")
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("category = ?", category)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	var rows []domain.Product
	err := db.Order(sortOrder(c, productSortColumns, "created_at")).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.trim()
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p := domain.Product{
		Name:        payload.Name,
		Category:    payload.Category,
		Description: common.StringPtr(payload.Description),
		Price:       payload.Price,
		Stock:       payload.Stock,
		ImageURL:    common.StringPtr(payload.ImageURL),
		IsFeatured:  payload.IsFeatured,
	}
	if err := GetDB(c).Create(&p).Error; err != nil {
		return webserver.FailWithToast(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create product",
			"Impossible d'ajouter le produit")
	}
	logOperation(c, "create_product", fmt.Sprintf("create product %s (%d)", p.Name, p.ID))
	return webserver.OKWithToast(c, http.StatusCreated, p, webserver.InfoToast("Succès", "Produit ajouté avec succès."))
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	merged := payload.merge(payloadOf(p))
	if err := c.Validate(&merged); err != nil {
		return handleValidationError(c, err)
	}

	updates := map[string]interface{}{}
	if payload.Name != nil {
		updates["name"] = merged.Name
	}
	if payload.Category != nil {
		updates["category"] = merged.Category
	}
	if payload.Description != nil {
		updates["description"] = common.StringPtr(merged.Description)
	}
	if payload.Price != nil {
		updates["price"] = merged.Price
	}
	if payload.Stock != nil {
		updates["stock"] = merged.Stock
	}
	if payload.ImageURL != nil {
		updates["image_url"] = common.StringPtr(merged.ImageURL)
	}
	if payload.IsFeatured != nil {
		updates["is_featured"] = merged.IsFeatured
	}
	if len(updates) > 0 {
		if err := GetDB(c).Model(&p).Updates(updates).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update product", err.Error())
		}
	}
	GetDB(c).Where("id = ?", id).First(&p)
	logOperation(c, "update_product", fmt.Sprintf("update product %s (%d)", p.Name, p.ID))
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete product", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	logOperation(c, "delete_product", fmt.Sprintf("delete product %d", id))
	return c.NoContent(http.StatusNoContent)
}

var productExportHeader = []string{"id", "name", "category", "description", "price", "stock", "image_url", "is_featured", "sold_count", "view_count"}

// WriteProductsCSV writes rows with a header line using the csv struct tags.
func WriteProductsCSV(w io.Writer, rows []domain.Product) error {
	return gocsv.Marshal(&rows, w)
}

// WriteProductsXLSX writes rows to the first sheet of a workbook.
func WriteProductsXLSX(w io.Writer, rows []domain.Product) error {
	const sheet = "Sheet1"
	f := excelize.NewFile()
	for i, h := range productExportHeader {
		f.SetCellValue(sheet, cellName(i, 1), h)
	}
	for r, p := range rows {
		line := r + 2
		values := []interface{}{
			fmt.Sprint(p.ID), p.Name, p.Category, common.Deref(p.Description), p.Price,
			p.Stock, common.Deref(p.ImageURL), p.IsFeatured, p.SoldCount, p.ViewCount,
		}
		for i, v := range values {
			f.SetCellValue(sheet, cellName(i, line), v)
		}
	}
	return f.Write(w)
}

func cellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return fmt.Sprintf("%s%d", name, row)
}

func exportProducts(c echo.Context) error {
	var rows []domain.Product
	if err := GetDB(c).Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	stamp := time.Now().Format("20060102150405")
	var buf stdbytes.Buffer
	switch c.QueryParam("format") {
	case "", "csv":
		if err := WriteProductsCSV(&buf, rows); err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export products", err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=products-"+stamp+".csv")
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	case "xlsx":
		if err := WriteProductsXLSX(&buf, rows); err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export products", err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=products-"+stamp+".xlsx")
		return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		return fail(c, http.StatusBadRequest, "INVALID_FORMAT", "Format must be csv or xlsx", nil)
	}
}

// importProducts upserts products from a CSV body (or "file" form field).
// Rows with a known id are updated, the others are created.
func importProducts(c echo.Context) error {
	var src io.Reader = c.Request().Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_FILE", "Unable to open upload", err.Error())
		}
		defer f.Close()
		src = f
	}
	data, err := io.ReadAll(io.LimitReader(src, maxImportSize+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILE", "Unable to read upload", err.Error())
	}
	if len(data) > maxImportSize {
		return webserver.FailWithToast(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Import file too large",
			"Le fichier dépasse "+bytes.Format(maxImportSize))
	}
	var rows []domain.Product
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_CSV", "Unable to parse CSV", err.Error())
	}

	created, updated := 0, 0
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			p := rows[i]
			row := payloadOf(p)
			row.trim()
			if err := c.Validate(&row); err != nil {
				return errors.Wrapf(err, "line %d", i+2)
			}
			p.Name, p.Category = row.Name, row.Category
			p.Description, p.ImageURL = common.StringPtr(row.Description), common.StringPtr(row.ImageURL)
			if p.ID != 0 {
				res := tx.Model(&domain.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
					"name":        p.Name,
					"category":    p.Category,
					"description": p.Description,
					"price":       p.Price,
					"stock":       p.Stock,
					"image_url":   p.ImageURL,
					"is_featured": p.IsFeatured,
				})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected > 0 {
					updated++
					continue
				}
				p.ID = 0
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return fail(c, http.StatusBadRequest, "IMPORT_FAILED", "Failed to import products", err.Error())
	}
	logOperation(c, "import_products", fmt.Sprintf("import products: %d created, %d updated", created, updated))
	return ok(c, map[string]int{"created": created, "updated": updated})
}
