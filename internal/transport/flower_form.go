package transport

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"flower-shop/internal/domain"
	"flower-shop/internal/middleware"
	"flower-shop/internal/service"

	"github.com/shopspring/decimal"
)

const (
	imageField         = "image"
	multipartMemory    = 8 << 20
	formOverheadBytes  = 1 << 20
	maxDecimalLength   = 32
	errMustBeNumber    = "Must be a number"
	errMustBeInteger   = "Must be a whole number"
	errMustBeBoolean   = "Must be true or false"
	errOutOfRange      = "Value is out of range"
	errImageTooLarge   = "Image is too large"
	errInvalidFormBody = "invalid form body"
)

// FlowerForm is the create/update payload, submitted as a form so an image
// can ride along.
type FlowerForm struct {
	CategoryID      int64               `form:"category_id" validate:"required,gte=1"`
	Name            string              `form:"name" validate:"required,max=150"`
	Type            string              `form:"type" validate:"required,max=50"`
	SKU             *string             `form:"sku" validate:"omitempty,max=50"`
	Price           decimal.Decimal     `form:"price" validate:"gte=0,lte=99999999"`
	QuantityInStock int                 `form:"quantity_in_stock" validate:"gte=0,lte=2147483647"`
	Color           *string             `form:"color" validate:"omitempty,max=30"`
	StemLengthCm    decimal.NullDecimal `form:"stem_length_cm" validate:"omitempty,gte=0,lte=999"`
	ImageURL        *string             `form:"image_url" validate:"omitempty,max=2083"`
	Active          bool                `form:"active"`
	Version         int64               `form:"version"`

	// KeepImage is set when an update form has no image_url field at all.
	KeepImage bool `form:"-"`
}

// flowerFormRequest is a parsed form plus its optional upload. Close releases
// the upload and any temporary files.
type flowerFormRequest struct {
	Form   FlowerForm
	Upload *service.ImageUpload

	file  multipart.File
	mform *multipart.Form
}

func (r *flowerFormRequest) Close() {
	if r.file != nil {
		r.file.Close()
	}
	if r.mform != nil {
		r.mform.RemoveAll()
	}
}

// formError is returned for fields that could not be parsed.
type formError struct {
	fields []middleware.ValidationError
}

func (e *formError) Error() string {
	return "invalid form fields"
}

// parseFlowerForm reads a multipart or urlencoded flower form. forUpdate
// requires a version and honors image_url, which on create is ignored.
func parseFlowerForm(w http.ResponseWriter, r *http.Request, maxUploadBytes int64, forUpdate bool) (*flowerFormRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+formOverheadBytes)

	req := &flowerFormRequest{}
	var values url.Values

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
		req.mform = r.MultipartForm
		values = url.Values(r.MultipartForm.Value)
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		values = r.PostForm
	}

	var fieldErrors []middleware.ValidationError
	fail := func(field, message string) {
		fieldErrors = append(fieldErrors, middleware.ValidationError{Field: field, Message: message})
	}

	form := &req.Form
	form.Name = strings.TrimSpace(values.Get("name"))
	form.Type = strings.TrimSpace(values.Get("type"))
	form.SKU = optionalValue(values, "sku")
	form.Color = optionalValue(values, "color")
	if forUpdate {
		form.ImageURL = optionalValue(values, "image_url")
		form.KeepImage = !values.Has("image_url")
	}

	if raw := strings.TrimSpace(values.Get("category_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail("category_id", errMustBeInteger)
		}
		form.CategoryID = id
	}

	if raw := strings.TrimSpace(values.Get("price")); raw == "" {
		fail("price", "This field is required")
	} else if price, err := parseDecimal(raw); err != nil {
		fail("price", errMustBeNumber)
	} else {
		form.Price = price
	}

	if raw := strings.TrimSpace(values.Get("quantity_in_stock")); raw != "" {
		// The column is a Postgres INTEGER.
		qty, err := strconv.ParseInt(raw, 10, 32)
		switch {
		case errors.Is(err, strconv.ErrRange):
			fail("quantity_in_stock", errOutOfRange)
		case err != nil:
			fail("quantity_in_stock", errMustBeInteger)
		default:
			form.QuantityInStock = int(qty)
		}
	}

	if raw := strings.TrimSpace(values.Get("stem_length_cm")); raw != "" {
		stem, err := parseDecimal(raw)
		if err != nil {
			fail("stem_length_cm", errMustBeNumber)
		} else {
			form.StemLengthCm = decimal.NewNullDecimal(stem)
		}
	}

	form.Active = true
	if raw := strings.TrimSpace(values.Get("active")); raw != "" {
		active, err := parseFormBool(raw)
		if err != nil {
			fail("active", errMustBeBoolean)
		}
		form.Active = active
	}

	if raw := strings.TrimSpace(values.Get("version")); raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || version < 1 {
			fail("version", errMustBeInteger)
		}
		form.Version = version
	} else if forUpdate {
		fail("version", "This field is required")
	}

	if req.mform != nil {
		if headers := req.mform.File[imageField]; len(headers) > 0 && headers[0].Size > 0 {
			header := headers[0]
			if header.Size > maxUploadBytes {
				fail(imageField, errImageTooLarge)
			} else {
				file, err := header.Open()
				if err != nil {
					req.Close()
					return nil, err
				}
				req.file = file
				req.Upload = &service.ImageUpload{
					Reader:   file,
					Size:     header.Size,
					Filename: header.Filename,
				}
			}
		}
	}

	if len(fieldErrors) > 0 {
		req.Close()
		return nil, &formError{fields: fieldErrors}
	}

	if err := middleware.ValidateRequest(form); err != nil {
		req.Close()
		return nil, err
	}

	return req, nil
}

// respondWithFormError answers a failed parseFlowerForm.
func respondWithFormError(w http.ResponseWriter, err error) {
	var fe *formError
	if errors.As(err, &fe) {
		middleware.RespondWithValidationErrors(w, fe.fields)
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	if fieldErrors := middleware.FormatValidationErrors(err); len(fieldErrors) > 0 {
		middleware.RespondWithValidationErrors(w, fieldErrors)
		return
	}

	middleware.RespondWithError(w, http.StatusBadRequest, errInvalidFormBody)
}

// toDomain copies the form onto a flower with the given id. Decimals are
// rounded to the two places the columns keep.
func (f *FlowerForm) toDomain(id int64) *domain.Flower {
	stem := f.StemLengthCm
	if stem.Valid {
		stem.Decimal = stem.Decimal.Round(2)
	}

	return &domain.Flower{
		ID:              id,
		CategoryID:      f.CategoryID,
		Name:            f.Name,
		Type:            f.Type,
		SKU:             f.SKU,
		Price:           f.Price.Round(2),
		QuantityInStock: f.QuantityInStock,
		Color:           f.Color,
		StemLengthCm:    stem,
		ImageURL:        f.ImageURL,
		Active:          f.Active,
	}
}

// parseDecimal accepts plain decimal notation only. Exponents are refused so a
// value like 1e999999999 cannot blow up later arithmetic.
func parseDecimal(raw string) (decimal.Decimal, error) {
	if len(raw) > maxDecimalLength || strings.ContainsAny(raw, "eE") {
		return decimal.Decimal{}, errors.New("unsupported decimal format")
	}
	return decimal.NewFromString(raw)
}

func optionalValue(values url.Values, key string) *string {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

// parseFormBool accepts what HTML checkboxes and hidden inputs send.
func parseFormBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(raw)
}
