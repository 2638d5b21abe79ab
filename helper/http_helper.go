package helper

import (
	"errors"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"wiki-engine/models"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	textError             = `error`
	textOk                = `ok`
	codeSuccess           = 200
	codeBadRequestError   = 400
	codeUnauthorizedError = 401
	codeValidationError   = 403
	codeNotFound          = 404
)

// ResponseHelper ...
type ResponseHelper struct {
	C        *gin.Context
	Status   string
	Message  string
	Data     interface{}
	Code     int // not the http code
	CodeType string
	// HTTPStatus overrides the status derived from Code when set.
	HTTPStatus int
}

// HTTPHelper ...
type HTTPHelper struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

var (
	setupOnce  sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

// NewHTTPHelper wires English translations and the wiki validations into
// gin's binding validator.
func NewHTTPHelper() *HTTPHelper {
	setupOnce.Do(func() {
		uni := ut.New(en.New())
		translator, _ = uni.GetTranslator("en")

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			v = validator.New()
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return Underscore(field.Name)
			}
			return name
		})
		_ = en_translations.RegisterDefaultTranslations(v, translator)
		_ = v.RegisterValidation("wikititle", validateWikiTitle)
		_ = v.RegisterTranslation("wikititle", translator,
			func(ut ut.Translator) error {
				return ut.Add("wikititle", "{0} must be a valid article title", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T("wikititle", fe.Field())
				return t
			})
		validate = v
	})
	return &HTTPHelper{Validate: validate, Translator: translator}
}

func validateWikiTitle(fl validator.FieldLevel) bool {
	return models.ValidateTitle(models.NormalizeTitle(fl.Field().String())) == nil
}

// Underscore converts a Go identifier such as "NewTitle" to "new_title".
func Underscore(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetStatusCode ...
func (u *HTTPHelper) GetStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		notFound    models.ErrorNotFound
		noVersions  models.ErrorNoVersions
		duplicate   models.ErrorDuplicateTitle
		denied      models.ErrorPermissionDenied
		unauth      models.ErrorUnauthorized
		contention  models.ErrorLockContention
		lost        models.ErrorLockLost
		invalid     models.ErrorValidation
		conflict    models.ErrorConflict
		redirection models.ErrorRedirectLoop
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &noVersions):
		return http.StatusNotFound
	case errors.As(err, &duplicate), errors.As(err, &contention), errors.As(err, &lost), errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.As(err, &unauth):
		return http.StatusUnauthorized
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &redirection):
		return http.StatusLoopDetected
	default:
		return http.StatusInternalServerError
	}
}

func (u *HTTPHelper) getCodeType(err error) string {
	var (
		contention models.ErrorLockContention
		lost       models.ErrorLockLost
		duplicate  models.ErrorDuplicateTitle
	)
	switch {
	case errors.As(err, &contention):
		return `lockContention`
	case errors.As(err, &lost):
		return `lockLost`
	case errors.As(err, &duplicate):
		return `duplicateTitle`
	}

	switch u.GetStatusCode(err) {
	case http.StatusNotFound:
		return `notFound`
	case http.StatusConflict:
		return `conflict`
	case http.StatusForbidden:
		return `forbidden`
	case http.StatusUnauthorized:
		return `unAuthorized`
	case http.StatusBadRequest:
		return `validationError`
	case http.StatusLoopDetected:
		return `redirectLoop`
	default:
		return `internalError`
	}
}

// SetResponse ...
// Set response data.
func (u *HTTPHelper) SetResponse(c *gin.Context, status string, message string, data interface{}, code int, codeType string) ResponseHelper {
	return ResponseHelper{C: c, Status: status, Message: message, Data: data, Code: code, CodeType: codeType}
}

// SendModelError ...
// Send an error returned by the services, with the HTTP status it maps to.
// Unclassified errors are reported without their details.
func (u *HTTPHelper) SendModelError(c *gin.Context, err error) error {
	status := u.GetStatusCode(err)
	message := err.Error()
	data := interface{}(u.EmptyJsonMap())

	var (
		contention models.ErrorLockContention
		invalid    models.ErrorValidation
	)
	switch {
	case errors.As(err, &contention):
		lease := map[string]interface{}{"holder": contention.Holder}
		if !contention.ExpiresAt.IsZero() {
			lease["expires_at"] = contention.ExpiresAt.UTC().Format(time.RFC3339)
			lease["expires_in"] = humanize.Time(contention.ExpiresAt)
		}
		data = lease
	case errors.As(err, &invalid):
		data = map[string][]string{invalid.Field: {invalid.Message}}
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
		message = "internal server error"
	}

	res := u.SetResponse(c, textError, message, data, status, u.getCodeType(err))
	res.HTTPStatus = status
	return u.SendResponse(res)
}

// SendBindError ...
// Send the outcome of a failed ShouldBind call.
func (u *HTTPHelper) SendBindError(c *gin.Context, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return u.SendValidationError(c, validationErrors)
	}
	return u.SendBadRequest(c, err.Error(), u.EmptyJsonMap())
}

// SendBadRequest ...
// Send bad request response to consumers.
func (u *HTTPHelper) SendBadRequest(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textError, message, data, codeBadRequestError, `badRequest`)

	return u.SendResponse(res)
}

// SendValidationError ...
// Send validation error response to consumers.
func (u *HTTPHelper) SendValidationError(c *gin.Context, validationErrors validator.ValidationErrors) error {
	errorResponse := map[string][]string{}
	errorTranslation := validationErrors.Translate(u.Translator)
	for _, err := range validationErrors {
		errKey := Underscore(err.StructField())
		errorResponse[errKey] = append(errorResponse[errKey], errorTranslation[err.Namespace()])
	}

	c.JSON(http.StatusBadRequest, map[string]interface{}{
		"code":         codeValidationError,
		"code_type":    "validationError",
		"code_message": errorResponse,
		"data":         u.EmptyJsonMap(),
	})
	return nil
}

// SendUnauthorizedError ...
// Send unauthorized response to consumers.
func (u *HTTPHelper) SendUnauthorizedError(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textError, message, data, codeUnauthorizedError, `unAuthorized`)
	res.HTTPStatus = http.StatusUnauthorized
	return u.SendResponse(res)
}

// SendNotFoundError ...
// Send not found response to consumers.
func (u *HTTPHelper) SendNotFoundError(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textError, message, data, codeNotFound, `notFound`)
	res.HTTPStatus = http.StatusNotFound
	return u.SendResponse(res)
}

// SendSuccess ...
// Send success response to consumers.
func (u *HTTPHelper) SendSuccess(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textOk, message, data, codeSuccess, `success`)

	return u.SendResponse(res)
}

// SendResponse ...
// Send response
func (u *HTTPHelper) SendResponse(res ResponseHelper) error {
	if len(res.Message) == 0 {
		res.Message = `success`
	}

	resCode := res.HTTPStatus
	if resCode == 0 {
		if res.Code != codeSuccess {
			resCode = http.StatusBadRequest
		} else {
			resCode = http.StatusOK
		}
	}

	res.C.JSON(resCode, map[string]interface{}{
		"code":         res.Code,
		"code_type":    res.CodeType,
		"code_message": res.Message,
		"data":         res.Data,
	})
	return nil
}

func (u *HTTPHelper) EmptyJsonMap() map[string]interface{} {
	return make(map[string]interface{})
}

// get pagination URL
func (u *HTTPHelper) GetPagingUrl(c *gin.Context, page, limit int) string {
	r := c.Request
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	query := r.URL.Query()
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	return scheme + "://" + r.Host + r.URL.Path + "?" + query.Encode()
}

// Set paginantion response
func (u *HTTPHelper) GeneratePaging(c *gin.Context, prev, next, limit, page, totalRecord int) map[string]interface{} {

	prevURL, nextURL, firstURL, lastURL := "", "", "", ""

	totalPages := int(math.Ceil(float64(totalRecord) / float64(limit)))

	if page > 1 {
		prev = page - 1
	}
	if page < totalPages {
		next = page + 1
	} else {
		next = totalPages
	}

	if totalPages >= page && page > 1 {
		prevURL = u.GetPagingUrl(c, prev, limit)
	}

	if totalPages > page {
		nextURL = u.GetPagingUrl(c, next, limit)
	}

	if totalPages >= page && page > 1 {
		firstURL = u.GetPagingUrl(c, 1, limit)
	}

	if totalPages >= page && totalPages != page {
		lastURL = u.GetPagingUrl(c, totalPages, limit)
	}

	links := map[string]interface{}{
		"previous": prevURL,
		"next":     nextURL,
		"first":    firstURL,
		"last":     lastURL,
	}

	pagination := map[string]interface{}{
		"total_records": totalRecord,
		"per_page":      limit,
		"current_page":  page,
		"total_pages":   totalPages,
		"links":         links,
	}

	return pagination
}
