package cafe24

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/manwonyori/cafe24-hub/internal/models"
)

const (
	// maxPageSize is the hard cap the Admin API puts on a single page.
	maxPageSize = 500

	defaultPageSize  = 100
	defaultBatchSize = 10

	// defaultSupplyRate derives a supply price when none is given.
	defaultSupplyRate = 0.7
)

// ListProducts fetches one page of products with optional field selection
// and filters.
func (c *Client) ListProducts(ctx context.Context, limit, offset int, fields []string, filters url.Values) (*models.ProductPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	for key, values := range filters {
		for _, value := range values {
			params.Add(key, value)
		}
	}

	response, err := c.Get(ctx, "/admin/products", params)
	if err != nil {
		return nil, err
	}

	products := extractList(response, "products")
	return &models.ProductPage{
		Products:   products,
		TotalCount: len(products),
		Limit:      limit,
		Offset:     offset,
		HasMore:    len(products) == limit,
	}, nil
}

// ListAllProducts pages through the catalog until a short page signals the
// end of data.
func (c *Client) ListAllProducts(ctx context.Context, fields []string) ([]map[string]any, error) {
	var all []map[string]any
	offset := 0

	c.logger.Info().Str("mall_id", c.mallID).Msg("Fetching full product catalog")

	for {
		page, err := c.ListProducts(ctx, defaultPageSize, offset, fields, nil)
		if err != nil {
			return all, err
		}
		if len(page.Products) == 0 {
			break
		}

		all = append(all, page.Products...)
		c.logger.Debug().Int("fetched", len(page.Products)).Int("total", len(all)).Msg("Fetched product page")

		if len(page.Products) < defaultPageSize {
			break
		}
		offset += defaultPageSize
	}

	c.logger.Info().Int("total", len(all)).Msg("Completed product catalog fetch")
	return all, nil
}

// GetProduct returns a single product, or nil when the product number does
// not exist.
func (c *Client) GetProduct(ctx context.Context, productNo string) (map[string]any, error) {
	if productNo == "" {
		return nil, &ValidationError{Field: "product_no", Message: "product number is required"}
	}

	response, err := c.Get(ctx, "/admin/products/"+url.PathEscape(productNo), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			c.logger.Warn().Str("product_no", productNo).Msg("Product not found")
			return nil, nil
		}
		return nil, err
	}

	if product, ok := response["product"].(map[string]any); ok {
		return product, nil
	}
	if products := extractList(response, "products"); len(products) > 0 {
		return products[0], nil
	}
	return response, nil
}

// SearchProducts looks up products by name, code or brand.
func (c *Client) SearchProducts(ctx context.Context, query, searchType string, limit int) ([]map[string]any, error) {
	if query == "" {
		return nil, &ValidationError{Field: "query", Message: "search query is required"}
	}

	filters := url.Values{}
	switch searchType {
	case "product_code":
		filters.Set("product_code", query)
	case "brand_name":
		filters.Set("brand_name", query)
	default:
		filters.Set("product_name", query)
	}

	page, err := c.ListProducts(ctx, limit, 0, nil, filters)
	if err != nil {
		return nil, err
	}
	return page.Products, nil
}

// UpdateProduct applies field updates to a product.
func (c *Client) UpdateProduct(ctx context.Context, productNo string, updates map[string]any, shopNo int) error {
	if productNo == "" {
		return &ValidationError{Field: "product_no", Message: "product number is required"}
	}
	if len(updates) == 0 {
		return &ValidationError{Field: "updates", Message: "no updates provided"}
	}
	if shopNo <= 0 {
		shopNo = 1
	}

	body := map[string]any{
		"shop_no": shopNo,
		"request": updates,
	}
	if _, err := c.Put(ctx, "/admin/products/"+url.PathEscape(productNo), body); err != nil {
		return err
	}

	c.logger.Info().Str("product_no", productNo).Int("fields", len(updates)).Msg("Updated product")
	return nil
}

// UpdateProductPrice updates the selling price. The retail price defaults
// to the selling price and the supply price to 70 percent of it.
func (c *Client) UpdateProductPrice(ctx context.Context, productNo, price, retailPrice, supplyPrice string, shopNo int) error {
	if price == "" {
		return &ValidationError{Field: "price", Message: "price is required"}
	}

	if retailPrice == "" {
		retailPrice = price
	}
	if supplyPrice == "" {
		parsed, err := strconv.ParseFloat(price, 64)
		if err != nil {
			return &ValidationError{Field: "price", Message: fmt.Sprintf("price %q is not numeric", price)}
		}
		supplyPrice = strconv.Itoa(int(parsed * defaultSupplyRate))
	}

	updates := map[string]any{
		"price":        price,
		"retail_price": retailPrice,
		"supply_price": supplyPrice,
	}
	return c.UpdateProduct(ctx, productNo, updates, shopNo)
}

// UpdateProductStock sets the stock quantity.
func (c *Client) UpdateProductStock(ctx context.Context, productNo string, quantity int, shopNo int) error {
	if quantity < 0 {
		return &ValidationError{Field: "stock_quantity", Message: "quantity cannot be negative"}
	}
	updates := map[string]any{
		"stock_quantity": strconv.Itoa(quantity),
	}
	return c.UpdateProduct(ctx, productNo, updates, shopNo)
}

// GetProductVariants returns the variants of a product, empty when the
// product has none or does not exist.
func (c *Client) GetProductVariants(ctx context.Context, productNo string) ([]map[string]any, error) {
	if productNo == "" {
		return nil, &ValidationError{Field: "product_no", Message: "product number is required"}
	}

	response, err := c.Get(ctx, "/admin/products/"+url.PathEscape(productNo)+"/variants", nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return []map[string]any{}, nil
		}
		return nil, err
	}
	return extractList(response, "variants"), nil
}

// BulkUpdatePrices applies price changes product by product, collecting
// failures instead of aborting the run.
func (c *Client) BulkUpdatePrices(ctx context.Context, updates map[string]string, batchSize int) (*models.BulkUpdateResult, error) {
	if len(updates) == 0 {
		return nil, &ValidationError{Field: "updates", Message: "no price updates provided"}
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	result := &models.BulkUpdateResult{TotalUpdates: len(updates)}
	c.logger.Info().Int("total", len(updates)).Msg("Starting bulk price update")

	processed := 0
	for productNo, price := range updates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := c.UpdateProductPrice(ctx, productNo, price, "", "", 1); err != nil {
			result.FailedUpdates = append(result.FailedUpdates, models.FailedUpdate{
				ProductNo: productNo,
				Error:     err.Error(),
			})
			c.logger.Error().Err(err).Str("product_no", productNo).Msg("Price update failed")
		} else {
			result.SuccessfulUpdates++
		}

		processed++
		if processed%batchSize == 0 {
			c.logger.Debug().Int("completed", processed).Int("total", len(updates)).Msg("Bulk update progress")
		}
	}

	result.SuccessRate = float64(result.SuccessfulUpdates) / float64(result.TotalUpdates)
	c.logger.Info().
		Int("successful", result.SuccessfulUpdates).
		Int("failed", len(result.FailedUpdates)).
		Msg("Bulk price update completed")
	return result, nil
}

// extractList pulls a []map payload out of a decoded response.
func extractList(response map[string]any, key string) []map[string]any {
	raw, ok := response[key].([]any)
	if !ok {
		return []map[string]any{}
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}
	return items
}
