package cafe24

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})
	return client, srv
}

func TestListProducts_Pagination(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/products", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "100", r.URL.Query().Get("offset"))
		assert.Equal(t, "product_no,product_name", r.URL.Query().Get("fields"))
		assert.Equal(t, "T", r.URL.Query().Get("display"))

		products := make([]map[string]any, 50)
		for i := range products {
			products[i] = map[string]any{"product_no": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"products": products})
	})

	filters := url.Values{}
	filters.Set("display", "T")

	page, err := client.ListProducts(context.Background(), 50, 100, []string{"product_no", "product_name"}, filters)
	require.NoError(t, err)
	assert.Len(t, page.Products, 50)
	assert.Equal(t, 50, page.TotalCount)
	assert.True(t, page.HasMore, "a full page implies more data")
}

func TestListProducts_ClampsLimit(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{"products": []map[string]any{}})
	})

	page, err := client.ListProducts(context.Background(), 9999, 0, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.False(t, page.HasMore)
}

func TestListAllProducts_StopsOnShortPage(t *testing.T) {
	var calls int
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		count := 100
		if offset >= 100 {
			count = 30 // short page ends the scan
		}
		products := make([]map[string]any, count)
		for i := range products {
			products[i] = map[string]any{"product_no": offset + i}
		}
		json.NewEncoder(w).Encode(map[string]any{"products": products})
	})

	all, err := client.ListAllProducts(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 130)
	assert.Equal(t, 2, calls)
}

func TestGetProduct_UnwrapsEnvelope(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/products/42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"product": map[string]any{"product_no": 42, "product_name": "만원요리 세트"},
		})
	})

	product, err := client.GetProduct(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "만원요리 세트", product["product_name"])
}

func TestGetProduct_NotFoundReturnsNil(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"message": "no such product"})
	})

	product, err := client.GetProduct(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestGetProduct_EmptyNumberRejectedLocally(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.GetProduct(context.Background(), "")
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "product_no", valErr.Field)
}

func TestSearchProducts_MapsSearchType(t *testing.T) {
	tests := []struct {
		searchType string
		wantParam  string
	}{
		{"product_name", "product_name"},
		{"product_code", "product_code"},
		{"brand_name", "brand_name"},
		{"unknown", "product_name"},
	}

	for _, tc := range tests {
		t.Run(tc.searchType, func(t *testing.T) {
			client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "셔츠", r.URL.Query().Get(tc.wantParam))
				json.NewEncoder(w).Encode(map[string]any{
					"products": []map[string]any{{"product_no": 1}},
				})
			})

			products, err := client.SearchProducts(context.Background(), "셔츠", tc.searchType, 10)
			require.NoError(t, err)
			assert.Len(t, products, 1)
		})
	}
}

func TestUpdateProduct_WrapsRequestBody(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/admin/products/42", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2), body["shop_no"])

		request, ok := body["request"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "New Name", request["product_name"])

		json.NewEncoder(w).Encode(map[string]any{"product": map[string]any{}})
	})

	err := client.UpdateProduct(context.Background(), "42", map[string]any{"product_name": "New Name"}, 2)
	require.NoError(t, err)
}

func TestUpdateProduct_EmptyUpdatesRejected(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	err := client.UpdateProduct(context.Background(), "42", nil, 1)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestUpdateProductPrice_DerivesDefaults(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		request := body["request"].(map[string]any)
		assert.Equal(t, "10000", request["price"])
		assert.Equal(t, "10000", request["retail_price"], "retail defaults to selling price")
		assert.Equal(t, "7000", request["supply_price"], "supply defaults to 70 percent")

		json.NewEncoder(w).Encode(map[string]any{})
	})

	err := client.UpdateProductPrice(context.Background(), "42", "10000", "", "", 1)
	require.NoError(t, err)
}

func TestUpdateProductPrice_ExplicitValuesKept(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		request := body["request"].(map[string]any)
		assert.Equal(t, "12000", request["retail_price"])
		assert.Equal(t, "8000", request["supply_price"])

		json.NewEncoder(w).Encode(map[string]any{})
	})

	err := client.UpdateProductPrice(context.Background(), "42", "10000", "12000", "8000", 1)
	require.NoError(t, err)
}

func TestUpdateProductPrice_NonNumericRejected(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	err := client.UpdateProductPrice(context.Background(), "42", "abc", "", "", 1)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestUpdateProductStock(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		request := body["request"].(map[string]any)
		assert.Equal(t, "25", request["stock_quantity"])

		json.NewEncoder(w).Encode(map[string]any{})
	})

	require.NoError(t, client.UpdateProductStock(context.Background(), "42", 25, 1))

	err := client.UpdateProductStock(context.Background(), "42", -1, 1)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestGetProductVariants(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/products/42/variants", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"variants": []map[string]any{{"variant_code": "A"}, {"variant_code": "B"}},
		})
	})

	variants, err := client.GetProductVariants(context.Background(), "42")
	require.NoError(t, err)
	assert.Len(t, variants, 2)
}

func TestGetProductVariants_NotFoundIsEmpty(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	variants, err := client.GetProductVariants(context.Background(), "999")
	require.NoError(t, err)
	assert.Empty(t, variants)
}

func TestBulkUpdatePrices_CollectsFailures(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/products/2" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"message": "locked product"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{})
	})

	updates := map[string]string{
		"1": "10000",
		"2": "20000",
		"3": "30000",
	}
	result, err := client.BulkUpdatePrices(context.Background(), updates, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalUpdates)
	assert.Equal(t, 2, result.SuccessfulUpdates)
	require.Len(t, result.FailedUpdates, 1)
	assert.Equal(t, "2", result.FailedUpdates[0].ProductNo)
	assert.Contains(t, result.FailedUpdates[0].Error, "locked product")
	assert.InDelta(t, 2.0/3.0, result.SuccessRate, 0.001)
}

func TestBulkUpdatePrices_EmptyInputRejected(t *testing.T) {
	client, _ := productServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.BulkUpdatePrices(context.Background(), nil, 10)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}
