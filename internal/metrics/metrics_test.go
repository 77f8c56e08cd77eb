package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "rejected", Outcome(apperr.InvalidState("insufficient funds")))
	assert.Equal(t, "error", Outcome(errors.New("connection reset")))
}

func TestObserveTransfer(t *testing.T) {
	before := testutil.ToFloat64(transfers.WithLabelValues("INTERNAL", "ok"))
	ObserveTransfer(models.TransactionInternal, nil)
	after := testutil.ToFloat64(transfers.WithLabelValues("INTERNAL", "ok"))

	assert.Equal(t, before+1, after)
}
