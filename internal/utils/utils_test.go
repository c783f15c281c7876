package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bakehouse/internal/apperr"
)

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(3, 10)
	assert.Equal(t, 20, p.Offset)

	p = NewPagination(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)

	p = NewPagination(1, 1000)
	assert.Equal(t, maxPageSize, p.Limit)
}

type sampleRequest struct {
	Name  string  `json:"name" validate:"required"`
	Phone string  `json:"phone" validate:"required,phone"`
	Price float64 `json:"price" validate:"gt=0"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(&sampleRequest{Name: "Rye", Phone: "9998887776", Price: 4}))
	assert.NoError(t, Validate(&sampleRequest{Name: "Rye", Phone: "+91 (999) 888-7776", Price: 4}))

	err := Validate(&sampleRequest{Phone: "12ab", Price: 0})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "phone must be a valid phone number")
	assert.Contains(t, err.Error(), "price must be greater than 0")
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%rye%", ContainsPattern("RYE"))
	assert.Equal(t, `%50\% off\_now%`, ContainsPattern("50% off_now"))
	assert.Equal(t, `%a\\b%`, ContainsPattern(`a\b`))
}

func TestPhoneHelpers(t *testing.T) {
	assert.Equal(t, "+919998887776", NormalizePhone(" +91 999-888 7776 "))
	assert.True(t, ValidPhone("9998887776"))
	assert.False(t, ValidPhone("12345"))
}
