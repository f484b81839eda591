package pkg

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/vaultfeed/internal/domain"
)

// Response is the JSON envelope every API endpoint answers with.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ValidationErrorResponse carries per-field validation failures.
type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// Success sends a 200 response wrapping data.
func Success(c *gin.Context, data any) {
	respond(c, http.StatusOK, "success", data)
}

// Created sends a 201 response wrapping data.
func Created(c *gin.Context, data any) {
	respond(c, http.StatusCreated, "created", data)
}

// Error maps err to an HTTP status. Only *domain.AppError messages reach the
// client; anything else is reported as an internal error. An expired request
// deadline anywhere in the chain is reported as 408.
func Error(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		respond(c, http.StatusRequestTimeout, "request timeout", nil)
		return
	}
	status := domain.HTTPStatusCode(err)

	msg := "internal error"
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	respond(c, status, msg, nil)
}

func respond(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Response{Code: status, Message: msg, Data: data})
}

// ValidationError sends a 400 response. validator.ValidationErrors are
// reported per field.
func ValidationError(c *gin.Context, err error) {
	validationError(c, err, nil)
}

// BindJSON binds the JSON body into obj. On failure the 400 response has
// already been written and false is returned:
//
//	if !pkg.BindJSON(c, &req) { return }
func BindJSON(c *gin.Context, obj any) bool {
	return bindWith(c, obj, c.ShouldBindJSON)
}

// BindQuery binds the query string into obj using its form tags.
func BindQuery(c *gin.Context, obj any) bool {
	return bindWith(c, obj, c.ShouldBindQuery)
}

// BindURI binds path parameters into obj using its uri tags.
func BindURI(c *gin.Context, obj any) bool {
	return bindWith(c, obj, c.ShouldBindUri)
}

func bindWith(c *gin.Context, obj any, bind func(any) error) bool {
	if err := bind(obj); err != nil {
		validationError(c, err, obj)
		return false
	}
	return true
}

func validationError(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	names := fieldNames(obj)
	fieldErrors := make(map[string]string, len(ve))
	for _, fe := range ve {
		name, ok := names[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fieldErrors[name] = msg
	}

	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation error",
		Errors:  fieldErrors,
	})
}

// fieldNames maps struct field names to the name the client used: the json
// tag, then the form tag, then the uri tag.
func fieldNames(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		for _, key := range []string{"json", "form", "uri"} {
			if name := tagName(f.Tag.Get(key)); name != "" {
				m[f.Name] = name
				break
			}
		}
	}
	return m
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
