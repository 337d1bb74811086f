// internal/payments/invoice_test.go
package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInvoice(t *testing.T) {
	pdf, err := renderInvoice(invoiceData{
		Number:      "INV-01HXYZTEST",
		Date:        time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		MemberName:  "Amara Okafor",
		MemberEmail: "amara.okafor@example.org",
		Description: "ACNA Institutional membership (upgrade)",
		Amount:      26000,
	})
	require.NoError(t, err)
	require.True(t, len(pdf) > 500)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
