package handler

import (
	"net/http"

	"marina/internal/vessel/models"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/httputil"
)

var allowedFields = []string{models.FieldName, models.FieldType, models.FieldLength}

// Request is a full vessel body for POST and PUT.
type Request struct {
	Name   string
	Type   string
	Length float64
}

func decodeFull(r *http.Request) (Request, error) {
	fields, err := httputil.DecodeFields(r, allowedFields, true)
	if err != nil {
		return Request{}, err
	}
	p, err := typedPatch(fields)
	if err != nil {
		return Request{}, err
	}
	return Request{Name: *p.Name, Type: *p.Type, Length: *p.Length}, nil
}

func decodePatch(r *http.Request) (models.Patch, error) {
	fields, err := httputil.DecodeFields(r, allowedFields, false)
	if err != nil {
		return models.Patch{}, err
	}
	return typedPatch(fields)
}

func typedPatch(fields httputil.Fields) (models.Patch, error) {
	var p models.Patch
	var err error
	if p.Name, err = fields.Text(models.FieldName); err != nil {
		return models.Patch{}, err
	}
	if p.Type, err = fields.Text(models.FieldType); err != nil {
		return models.Patch{}, err
	}
	if p.Length, err = fields.Number(models.FieldLength); err != nil {
		return models.Patch{}, err
	}
	if p.Empty() {
		return models.Patch{}, dErrors.New(dErrors.CodeBadRequest, httputil.MsgAttributeMismatch)
	}
	return p, nil
}
