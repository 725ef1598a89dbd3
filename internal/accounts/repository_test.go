package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Empty optional profile fields are written as NULL, so the phone,
// institution and study_level columns must stay nullable. Registration
// inserts a profile with all three empty.
func TestOptionalProfileFieldsStoredAsNull(t *testing.T) {
	assert.Nil(t, nullable(""))

	v := nullable("0123456789")
	if assert.NotNil(t, v) {
		assert.Equal(t, "0123456789", *v)
	}

	assert.Equal(t, "", deref(nil))
	assert.Equal(t, "0123456789", deref(v))
}
