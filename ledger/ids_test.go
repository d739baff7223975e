package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTransactionID(t *testing.T) {
	at := time.Date(2026, time.January, 2, 3, 4, 5, 6007000, time.UTC)

	assert.Equal(t, "T20260102030405006007", GenerateTransactionID(PrefixNormal, at))
	assert.Equal(t, "V20260102030405006007", GenerateTransactionID(PrefixVoid, at))
}

func TestStamper(t *testing.T) {
	now := time.Date(2026, time.January, 1, 12, 0, 0, 999, time.UTC)
	s := stamper{clock: func() time.Time { return now }}

	a := s.next(nil)
	b := s.next(nil)
	assert.Equal(t, 0, a.Nanosecond(), "truncated to microseconds")
	assert.Equal(t, time.Microsecond, b.Sub(a))

	// The clock stepping backwards does not break ordering.
	now = now.Add(-time.Hour)
	c := s.next(nil)
	assert.True(t, c.After(b))

	explicit := time.Date(2020, time.May, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	got := s.next(&explicit)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(explicit))
	assert.True(t, s.next(nil).After(c), "explicit stamps do not reset the sequence")

	fine := time.Date(2020, time.May, 1, 0, 0, 5, 123456789, time.UTC)
	assert.Equal(t, 123456000, s.next(&fine).Nanosecond(), "explicit stamps are truncated to microseconds")
}

func TestParsePaymentType(t *testing.T) {
	tests := []struct {
		in   string
		want PaymentType
	}{
		{"Cash", PaymentCash},
		{"CASH", PaymentCash},
		{" cash ", PaymentCash},
		{"On Credit", PaymentOnCredit},
		{"ON_CREDIT", PaymentOnCredit},
	}
	for _, tt := range tests {
		got, err := ParsePaymentType(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParsePaymentType("Mpesa")
	assert.Equal(t, KindBusinessRule, KindOf(err))
}

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal(" 12.50 ")
	assert.NoError(t, err)
	assert.Equal(t, "12.50", Money(v))

	_, err = ParseDecimal("")
	assert.True(t, IsInvalidValue(err))
	_, err = ParseDecimal("1,5")
	assert.True(t, IsInvalidValue(err))
}

func TestParseTimestamp(t *testing.T) {
	tx := Transaction{Timestamp: time.Date(2026, time.June, 1, 8, 0, 0, 1000, time.UTC)}
	assert.Equal(t, "2026-06-01T08:00:00.000001Z", tx.TimestampISO())

	got, err := ParseTimestamp(tx.TimestampISO())
	assert.NoError(t, err)
	assert.True(t, got.Equal(tx.Timestamp))

	got, err = ParseTimestamp("2026-06-01T11:00:00+03:00")
	assert.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)))
}

func TestErrorKinds(t *testing.T) {
	err := newError(KindMissingReference, "record sale", "unknown product id: %s", "X")

	assert.Equal(t, "record sale: unknown product id: X", err.Error())
	assert.True(t, IsMissingReference(err))
	assert.True(t, IsClientError(err))
	assert.Equal(t, "missing_reference", KindOf(err).String())
	assert.Equal(t, KindUnknown, KindOf(ErrNotFound))
}
