package render

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Decode error response and check fields that do not depend on time
func requireErrorResponse(t *testing.T, resp *http.Response, status int, message string) ErrorResponse {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, status, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got), "body has to be valid json: %s", string(body))
	require.Equal(t, status, got.Status)
	require.Equal(t, message, got.Message)
	require.WithinDuration(t, time.Now(), got.Timestamp, time.Minute)

	return got
}

func TestRender_JSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		data := map[string]any{"key1": 1, "key2": "222"}
		JSON(w, data)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"key1":1,"key2":"222"}`+"\n", string(body))
}

func TestRender_Created(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		Created(w, map[string]string{"id": "1"})
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRender_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, http.StatusNotFound, "user not found", "detail")
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/users/1")
	require.NoError(t, err)

	got := requireErrorResponse(t, resp, http.StatusNotFound, "user not found")
	require.Equal(t, "Not Found", got.Error)
	require.Equal(t, "/api/users/1", got.Path)
	require.Equal(t, []string{"detail"}, got.Details)
}

func TestRender_DecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value := struct {
			Key       string `json:"key"`
			OrderName int    `json:"order_name"`
		}{}

		err := json.NewDecoder(r.Body).Decode(&value)
		require.Error(t, err, "Please check what JSON was sent. Test expected that it is invalid")
		DecodeError(w, r, err)
	}))
	defer ts.Close()

	tests := []struct {
		name        string
		requestBody string
		expected    string
	}{
		{
			name:        "json parsing error",
			requestBody: `invalid-json`,
			expected:    "Failed to parse JSON: invalid character 'i' looking for beginning of value",
		},
		{
			name:        "invalid type ok",
			requestBody: `{"key": "valid_json", "order_name": "but incorrect type"}`,
			expected:    "Invalid data type for field 'order_name'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/test", "application/json", strings.NewReader(tc.requestBody))
			require.NoError(t, err)

			got := requireErrorResponse(t, resp, http.StatusBadRequest, tc.expected)
			require.Equal(t, "Bad Request", got.Error)
		})
	}
}

func TestRender_ValidationErrors(t *testing.T) {
	validate := validator.New()

	type T struct {
		Username string `validate:"required"`
		Email    string `validate:"email"`
		Password string `validate:"min=6"`
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invalidData := T{
			Password: "123",
			Email:    "not-valid-email",
		}

		err := validate.Struct(invalidData)
		require.Error(t, err, "test expects that data not pass validation")
		errs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "be sure you pass structure to validator")
		ValidationErrors(w, r, errs)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)

	got := requireErrorResponse(t, resp, http.StatusBadRequest, "Invalid request payload")
	require.Equal(t, "Validation failed", got.Error)
	require.Equal(t, []string{
		"Username: must not be blank",
		"Email: must be a well-formed email address",
		"Password: invalid value", // Unknown validation tag failed: default validation error message
	}, got.Details)
}

func TestRender_BindAndValidate(t *testing.T) {
	type request struct {
		UserID uuid.UUID       `json:"userId" validate:"required"`
		Name   string          `json:"name" validate:"required,notblank"`
		Amount decimal.Decimal `json:"amount" validate:"amount"`
	}

	userID := uuid.NewString()
	invalidAmount := "amount: must be between 0.01 and 1000000000000000 with at most 2 decimal places"

	tests := []struct {
		name            string
		requestBody     string
		expectedStatus  int
		expectedDetails []string
	}{
		{
			name:           "valid request",
			requestBody:    `{"userId": "` + userID + `", "name": "john", "amount": "100.00"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "amount as number ok",
			requestBody:    `{"userId": "` + userID + `", "name": "john", "amount": 0.01}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid json",
			requestBody:    `invalid-json`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid uuid",
			requestBody:    `{"userId": "42", "name": "john", "amount": 1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:            "missing fields",
			requestBody:     `{}`,
			expectedStatus:  http.StatusBadRequest,
			expectedDetails: []string{"userId: must not be blank", "name: must not be blank", invalidAmount},
		},
		{
			name:            "blank name and negative amount",
			requestBody:     `{"userId": "` + userID + `", "name": "   ", "amount": "-1"}`,
			expectedStatus:  http.StatusBadRequest,
			expectedDetails: []string{"name: must not be blank", invalidAmount},
		},
		{
			name:            "amount with huge exponent",
			requestBody:     `{"userId": "` + userID + `", "name": "john", "amount": "1e2000000"}`,
			expectedStatus:  http.StatusBadRequest,
			expectedDetails: []string{invalidAmount},
		},
		{
			name:            "amount below one cent",
			requestBody:     `{"userId": "` + userID + `", "name": "john", "amount": "1e-400"}`,
			expectedStatus:  http.StatusBadRequest,
			expectedDetails: []string{invalidAmount},
		},
		{
			name:            "amount with fraction of cent",
			requestBody:     `{"userId": "` + userID + `", "name": "john", "amount": 10.005}`,
			expectedStatus:  http.StatusBadRequest,
			expectedDetails: []string{invalidAmount},
		},
		{
			name:           "body too large",
			requestBody:    `{"userId": "` + userID + `", "name": "` + strings.Repeat("a", MaxBodyBytes) + `", "amount": 1}`,
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, err := BindAndValidate[request](w, r)
				if err != nil {
					return // Error response already written
				}
				// Success case
				JSON(w, map[string]bool{"success": true})
			}))
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/test", "application/json", strings.NewReader(tc.requestBody))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck

			require.Equalf(t, tc.expectedStatus, resp.StatusCode, "body: %s", string(body))
			if tc.expectedDetails != nil {
				var got ErrorResponse
				require.NoError(t, json.Unmarshal(body, &got))
				require.Equal(t, tc.expectedDetails, got.Details)
			}
		})
	}
}
