package apiv1

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
)

// The served contract must stay a valid OpenAPI document.
func TestOpenAPIDocumentIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../public/docs/v1/openapi.yml")
	assert.NoError(t, err)

	err = doc.Validate(context.Background())
	assert.NoError(t, err)

	for _, path := range []string{
		"/orders",
		"/orders/{id}",
		"/orders/{id}/sync",
		"/check-id",
		"/voucher/check",
		"/chat/session",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "missing path %s", path)
	}
}
