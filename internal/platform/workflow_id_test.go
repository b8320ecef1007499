package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCertificateWorkflowID(t *testing.T) {
	assert.Equal(t, "certificate-shop.example.com", CertificateWorkflowID("shop.example.com"))
}
