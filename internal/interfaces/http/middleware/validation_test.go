package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type InvoiceHeaderFields struct {
	Number   string `json:"invoice_number" binding:"required"`
	Currency string `json:"currency_code" binding:"omitempty,currency"`
}

type testLine struct {
	Description string `json:"description" binding:"required"`
	Pricing     string `json:"price_per_type" binding:"omitempty,oneof=UNIT CARTON"`
}

type testInvoiceRequest struct {
	InvoiceHeaderFields
	DueDate string     `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Lines   []testLine `json:"line_items" binding:"required,min=1,dive"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req testInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func postValidation(t *testing.T, router *gin.Engine, body string) (int, dto.Response) {
	t.Helper()
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func detailFields(resp dto.Response) map[string]string {
	out := make(map[string]string)
	if resp.Error == nil {
		return out
	}
	for _, d := range resp.Error.Details {
		out[d.Field] = d.Message
	}
	return out
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type currencyOnly struct {
		Code string `binding:"currency"`
	}
	assert.NoError(t, v.Struct(currencyOnly{Code: "EUR"}))
	assert.Error(t, v.Struct(currencyOnly{Code: "eur"}))
	assert.Error(t, v.Struct(currencyOnly{Code: "EURO"}))
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("accepts a valid request", func(t *testing.T) {
		code, resp := postValidation(t, router,
			`{"invoice_number":"INV-1","currency_code":"USD","due_date":"2024-07-01","line_items":[{"description":"Widget","price_per_type":"UNIT"}]}`)
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, resp.Success)
	})

	t.Run("reports every failing field with its path", func(t *testing.T) {
		code, resp := postValidation(t, router,
			`{"currency_code":"usd","due_date":"01/07/2024","line_items":[{"description":"ok"},{"price_per_type":"BOX"}]}`)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, ValidationFailedMessage, resp.Error.Message)

		fields := detailFields(resp)
		assert.Equal(t, "This field is required", fields["invoice_number"])
		assert.Equal(t, "Must be a 3-letter uppercase currency code", fields["currency_code"])
		assert.Equal(t, "Must be a date in YYYY-MM-DD format", fields["due_date"])
		assert.Equal(t, "This field is required", fields["line_items[1].description"])
		assert.Equal(t, "Must be one of: UNIT CARTON", fields["line_items[1].price_per_type"])
		assert.Len(t, fields, 5)
	})

	t.Run("requires at least one line item", func(t *testing.T) {
		code, resp := postValidation(t, router, `{"invoice_number":"INV-1","line_items":[]}`)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Must contain at least 1 item(s)", detailFields(resp)["line_items"])
	})
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
