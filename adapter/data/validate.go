package data

import (
	"strings"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// CheckFieldNames walks doc, nested documents and lists included, and returns
// an [domain.ErrFieldName] for the first name that cannot be stored: empty
// names, names starting with '$' and names containing '.'.
func CheckFieldNames(doc domain.Document) error {
	for k, v := range doc.Iter() {
		if err := checkName(k); err != nil {
			return err
		}
		if err := checkValue(v); err != nil {
			return err
		}
	}
	return nil
}

func checkName(k string) error {
	switch {
	case k == "":
		return domain.ErrFieldName{Field: k, Reason: "empty field name"}
	case strings.HasPrefix(k, "$"):
		return domain.ErrFieldName{Field: k, Reason: "field names cannot start with '$'"}
	case strings.Contains(k, "."):
		return domain.ErrFieldName{Field: k, Reason: "field names cannot contain '.'"}
	}
	return nil
}

func checkValue(v any) error {
	switch t := v.(type) {
	case domain.Document:
		return CheckFieldNames(t)
	case []any:
		for _, item := range t {
			if err := checkValue(item); err != nil {
				return err
			}
		}
	}
	return nil
}
